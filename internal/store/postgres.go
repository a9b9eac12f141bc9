package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/places-api/internal/models"
)

const pgUniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTxKey struct{}

// PostgresStore keeps users and places in PostgreSQL. A user's place ids
// live in a text[] column so the ordering matches the other stores.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users and places tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			image_url  TEXT NOT NULL DEFAULT '',
			place_ids  TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS places (
			id          TEXT PRIMARY KEY,
			title       VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			address     TEXT NOT NULL,
			lat         DOUBLE PRECISION NOT NULL,
			lng         DOUBLE PRECISION NOT NULL,
			creator     TEXT NOT NULL REFERENCES users(id),
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS places_creator_idx ON places (creator);
	`)
	if err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Places() PlaceRepository { return pgPlaces{s} }

func (s *PostgresStore) Users() UserRepository { return pgUsers{s} }

// WithTransaction runs fn in a database transaction. A nested call joins the
// transaction already carried by ctx.
func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = mapPgError(cerr, "postgres commit")
		}
	}()

	return fn(context.WithValue(ctx, pgTxKey{}, tx))
}

func (s *PostgresStore) db(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// mapPgError turns a unique violation into ErrDuplicateEmail and wraps
// everything else with op.
func mapPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("%s: %w", op, err)
}

type pgPlaces struct {
	s *PostgresStore
}

const placeColumns = `id, title, description, image_url, address, lat, lng, creator`

func scanPlace(row pgx.Row) (*models.Place, error) {
	var p models.Place
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.Address,
		&p.Location.Lat, &p.Location.Lng, &p.Creator)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r pgPlaces) FindByID(ctx context.Context, id string) (*models.Place, error) {
	p, err := scanPlace(r.s.db(ctx).QueryRow(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres find place: %w", err)
	}
	return p, nil
}

func (r pgPlaces) FindByCreator(ctx context.Context, userID string) ([]models.Place, error) {
	rows, err := r.s.db(ctx).Query(ctx,
		`SELECT `+placeColumns+` FROM places WHERE creator = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres find places: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres scan place: %w", err)
		}
		places = append(places, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres iterate places: %w", err)
	}
	return places, nil
}

func (r pgPlaces) Save(ctx context.Context, p *models.Place) error {
	db := r.s.db(ctx)
	if p.ID == "" {
		id := uuid.NewString()
		_, err := db.Exec(ctx,
			`INSERT INTO places (`+placeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, p.Title, p.Description, p.ImageURL, p.Address, p.Location.Lat, p.Location.Lng, p.Creator)
		if err != nil {
			return fmt.Errorf("postgres insert place: %w", err)
		}
		p.ID = id
		return nil
	}

	tag, err := db.Exec(ctx,
		`UPDATE places SET title = $2, description = $3, image_url = $4, address = $5,
			lat = $6, lng = $7, creator = $8
		 WHERE id = $1`,
		p.ID, p.Title, p.Description, p.ImageURL, p.Address, p.Location.Lat, p.Location.Lng, p.Creator)
	if err != nil {
		return fmt.Errorf("postgres update place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r pgPlaces) Delete(ctx context.Context, id string) error {
	tag, err := r.s.db(ctx).Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type pgUsers struct {
	s *PostgresStore
}

func (r pgUsers) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := r.s.db(ctx).QueryRow(ctx,
		`SELECT id, name, email, password, image_url, place_ids FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ImageURL, &u.Places)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres find user: %w", err)
	}
	if u.Places == nil {
		u.Places = []string{}
	}
	return &u, nil
}

func (r pgUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r pgUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

// List never selects the password column.
func (r pgUsers) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.s.db(ctx).Query(ctx,
		`SELECT id, name, email, image_url, place_ids FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.ImageURL, &u.Places); err != nil {
			return nil, fmt.Errorf("postgres scan user: %w", err)
		}
		if u.Places == nil {
			u.Places = []string{}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres iterate users: %w", err)
	}
	return users, nil
}

func (r pgUsers) Save(ctx context.Context, u *models.User) error {
	db := r.s.db(ctx)
	places := u.Places
	if places == nil {
		places = []string{}
	}
	if u.ID == "" {
		id := uuid.NewString()
		_, err := db.Exec(ctx,
			`INSERT INTO users (id, name, email, password, image_url, place_ids)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, u.Name, u.Email, u.PasswordHash, u.ImageURL, places)
		if err != nil {
			return mapPgError(err, "postgres insert user")
		}
		u.ID = id
		return nil
	}

	tag, err := db.Exec(ctx,
		`UPDATE users SET name = $2, email = $3, password = $4, image_url = $5, place_ids = $6
		 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.ImageURL, places)
	if err != nil {
		return mapPgError(err, "postgres update user")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
