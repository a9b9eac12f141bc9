package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/places-api/internal/models"
)

type locationDoc struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type placeDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	ImageURL    string             `bson:"imageURL"`
	Address     string             `bson:"address"`
	Location    locationDoc        `bson:"location"`
	Creator     primitive.ObjectID `bson:"creator"`
}

type userDoc struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty"`
	Name     string               `bson:"name"`
	Email    string               `bson:"email"`
	Password string               `bson:"password,omitempty"`
	ImageURL string               `bson:"imageURL"`
	Places   []primitive.ObjectID `bson:"places"`
}

// MongoStore keeps users and places in two collections of one database.
// Transactions need a replica set or sharded cluster.
type MongoStore struct {
	client *mongo.Client
	places *mongo.Collection
	users  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: db.Client(),
		places: db.Collection("places"),
		users:  db.Collection("users"),
	}
}

// EnsureIndexes creates the unique email index and the creator lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}
	_, err = s.places.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "creator", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("places creator index: %w", err)
	}
	return nil
}

func (s *MongoStore) Places() PlaceRepository { return mongoPlaces{col: s.places} }

func (s *MongoStore) Users() UserRepository { return mongoUsers{col: s.users} }

// WithTransaction runs fn inside a session transaction. The driver retries
// fn on transient transaction errors, so fn must re-read what it modifies.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

type mongoPlaces struct {
	col *mongo.Collection
}

func (r mongoPlaces) FindByID(ctx context.Context, id string) (*models.Place, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc placeDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find place: %w", err)
	}
	return doc.toModel(), nil
}

func (r mongoPlaces) FindByCreator(ctx context.Context, userID string) ([]models.Place, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []models.Place{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"creator": oid})
	if err != nil {
		return nil, fmt.Errorf("mongo find places: %w", err)
	}
	defer cur.Close(ctx)

	var docs []placeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode places: %w", err)
	}
	places := make([]models.Place, 0, len(docs))
	for _, d := range docs {
		places = append(places, *d.toModel())
	}
	return places, nil
}

func (r mongoPlaces) Save(ctx context.Context, p *models.Place) error {
	doc, err := placeToDoc(p)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("mongo insert place: %w", err)
		}
		p.ID = doc.ID.Hex()
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("mongo replace place: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r mongoPlaces) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete place: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoUsers struct {
	col *mongo.Collection
}

func (r mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo find user: %w", err)
	}
	return doc.toModel(), nil
}

// List returns every user without the password hash.
func (r mongoUsers) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(bson.M{"password": 0})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, *d.toModel())
	}
	return users, nil
}

func (r mongoUsers) Save(ctx context.Context, u *models.User) error {
	doc, err := userToDoc(u)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("mongo insert user: %w", err)
		}
		u.ID = doc.ID.Hex()
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("mongo replace user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d placeDoc) toModel() *models.Place {
	return &models.Place{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Address:     d.Address,
		Location:    models.Location{Lat: d.Location.Lat, Lng: d.Location.Lng},
		Creator:     d.Creator.Hex(),
	}
}

func placeToDoc(p *models.Place) (placeDoc, error) {
	doc := placeDoc{
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Address:     p.Address,
		Location:    locationDoc{Lat: p.Location.Lat, Lng: p.Location.Lng},
	}
	var err error
	if p.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(p.ID); err != nil {
			return placeDoc{}, fmt.Errorf("place id %q: %w", p.ID, err)
		}
	}
	if doc.Creator, err = primitive.ObjectIDFromHex(p.Creator); err != nil {
		return placeDoc{}, fmt.Errorf("place creator %q: %w", p.Creator, err)
	}
	return doc, nil
}

func (d userDoc) toModel() *models.User {
	places := make([]string, 0, len(d.Places))
	for _, id := range d.Places {
		places = append(places, id.Hex())
	}
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		ImageURL:     d.ImageURL,
		Places:       places,
	}
}

func userToDoc(u *models.User) (userDoc, error) {
	doc := userDoc{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.PasswordHash,
		ImageURL: u.ImageURL,
		Places:   make([]primitive.ObjectID, 0, len(u.Places)),
	}
	var err error
	if u.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(u.ID); err != nil {
			return userDoc{}, fmt.Errorf("user id %q: %w", u.ID, err)
		}
	}
	for _, id := range u.Places {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return userDoc{}, fmt.Errorf("user place %q: %w", id, err)
		}
		doc.Places = append(doc.Places, oid)
	}
	return doc, nil
}
