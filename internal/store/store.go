// Package store persists users and places. Implementations must make the
// writes performed inside WithTransaction commit or roll back together.
package store

import (
	"context"
	"errors"

	"github.com/ayush/places-api/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// PlaceRepository persists places. Save inserts when p.ID is empty and
// assigns the new id; otherwise it replaces the stored place.
type PlaceRepository interface {
	FindByID(ctx context.Context, id string) (*models.Place, error)
	FindByCreator(ctx context.Context, userID string) ([]models.Place, error)
	Save(ctx context.Context, p *models.Place) error
	Delete(ctx context.Context, id string) error
}

// UserRepository persists users. Save follows the same insert/replace rule
// as PlaceRepository and returns ErrDuplicateEmail on an email collision.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, u *models.User) error
}

// Store groups the repositories with a transaction scope. Repository calls
// made with the ctx passed to fn take part in the transaction; fn returning
// an error or panicking rolls every write back.
type Store interface {
	Places() PlaceRepository
	Users() UserRepository
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
