package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/places-api/internal/models"
)

// MemoryStore is an in-process Store. Transactions are serialized. Writes
// made inside one go to a private layer carried by its ctx and reach the
// shared maps only on commit, so other requests never see them early and a
// rollback never touches committed data.
type MemoryStore struct {
	txMu sync.Mutex

	mu     sync.RWMutex
	places map[string]models.Place
	users  map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		places: make(map[string]models.Place),
		users:  make(map[string]models.User),
	}
}

// memTx holds pending writes. A nil entry marks a deletion.
type memTx struct {
	places map[string]*models.Place
	users  map[string]*models.User
}

type memTxKey struct{ s *MemoryStore }

func (s *MemoryStore) Places() PlaceRepository { return memoryPlaces{s} }

func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{
		places: make(map[string]*models.Place),
		users:  make(map[string]*models.User),
	}
	if err := fn(context.WithValue(ctx, memTxKey{s}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{s}).(*memTx)
	return tx
}

func (s *MemoryStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range tx.users {
		if u == nil {
			continue
		}
		for otherID, other := range s.users {
			if other.Email == u.Email && otherID != id {
				if pending, ok := tx.users[otherID]; !ok || (pending != nil && pending.Email == u.Email) {
					return ErrDuplicateEmail
				}
			}
		}
	}

	for id, p := range tx.places {
		if p == nil {
			delete(s.places, id)
			continue
		}
		s.places[id] = *p
	}
	for id, u := range tx.users {
		if u == nil {
			delete(s.users, id)
			continue
		}
		s.users[id] = cloneUser(*u)
	}
	return nil
}

func cloneUser(u models.User) models.User {
	u.Places = slices.Clone(u.Places)
	if u.Places == nil {
		u.Places = []string{}
	}
	return u
}

func (s *MemoryStore) place(ctx context.Context, id string) (models.Place, bool) {
	if tx := s.txFrom(ctx); tx != nil {
		if p, ok := tx.places[id]; ok {
			if p == nil {
				return models.Place{}, false
			}
			return *p, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	return p, ok
}

func (s *MemoryStore) user(ctx context.Context, id string) (models.User, bool) {
	if tx := s.txFrom(ctx); tx != nil {
		if u, ok := tx.users[id]; ok {
			if u == nil {
				return models.User{}, false
			}
			return cloneUser(*u), true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return cloneUser(u), ok
}

// allPlaces returns the places visible to ctx sorted by id.
func (s *MemoryStore) allPlaces(ctx context.Context) []models.Place {
	tx := s.txFrom(ctx)

	s.mu.RLock()
	places := make([]models.Place, 0, len(s.places))
	for id, p := range s.places {
		if tx != nil {
			if _, pending := tx.places[id]; pending {
				continue
			}
		}
		places = append(places, p)
	}
	s.mu.RUnlock()

	if tx != nil {
		for _, p := range tx.places {
			if p != nil {
				places = append(places, *p)
			}
		}
	}
	slices.SortFunc(places, func(a, b models.Place) int { return strings.Compare(a.ID, b.ID) })
	return places
}

// allUsers returns the users visible to ctx sorted by id.
func (s *MemoryStore) allUsers(ctx context.Context) []models.User {
	tx := s.txFrom(ctx)

	s.mu.RLock()
	users := make([]models.User, 0, len(s.users))
	for id, u := range s.users {
		if tx != nil {
			if _, pending := tx.users[id]; pending {
				continue
			}
		}
		users = append(users, cloneUser(u))
	}
	s.mu.RUnlock()

	if tx != nil {
		for _, u := range tx.users {
			if u != nil {
				users = append(users, cloneUser(*u))
			}
		}
	}
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(a.ID, b.ID) })
	return users
}

type memoryPlaces struct{ s *MemoryStore }

func (r memoryPlaces) FindByID(ctx context.Context, id string) (*models.Place, error) {
	p, ok := r.s.place(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memoryPlaces) FindByCreator(ctx context.Context, userID string) ([]models.Place, error) {
	places := []models.Place{}
	for _, p := range r.s.allPlaces(ctx) {
		if p.Creator == userID {
			places = append(places, p)
		}
	}
	return places, nil
}

func (r memoryPlaces) Save(ctx context.Context, p *models.Place) error {
	if tx := r.s.txFrom(ctx); tx != nil {
		if p.ID == "" {
			p.ID = primitive.NewObjectID().Hex()
		} else if _, ok := r.s.place(ctx, p.ID); !ok {
			return ErrNotFound
		}
		saved := *p
		tx.places[p.ID] = &saved
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	} else if _, ok := r.s.places[p.ID]; !ok {
		return ErrNotFound
	}
	r.s.places[p.ID] = *p
	return nil
}

func (r memoryPlaces) Delete(ctx context.Context, id string) error {
	if tx := r.s.txFrom(ctx); tx != nil {
		if _, ok := r.s.place(ctx, id); !ok {
			return ErrNotFound
		}
		tx.places[id] = nil
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.places[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.places, id)
	return nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := r.s.user(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.allUsers(ctx) {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) List(ctx context.Context) ([]models.User, error) {
	users := r.s.allUsers(ctx)
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (r memoryUsers) Save(ctx context.Context, u *models.User) error {
	if tx := r.s.txFrom(ctx); tx != nil {
		for _, other := range r.s.allUsers(ctx) {
			if other.Email == u.Email && other.ID != u.ID {
				return ErrDuplicateEmail
			}
		}
		if u.ID == "" {
			u.ID = primitive.NewObjectID().Hex()
		} else if _, ok := r.s.user(ctx, u.ID); !ok {
			return ErrNotFound
		}
		saved := cloneUser(*u)
		tx.users[u.ID] = &saved
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, other := range r.s.users {
		if other.Email == u.Email && id != u.ID {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	} else if _, ok := r.s.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.s.users[u.ID] = cloneUser(*u)
	return nil
}
