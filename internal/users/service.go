// Package users implements sign-up, login and the public user listing.
package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/store"
)

const authFailedMessage = "Invalid credentials, could not log you in."

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// Service holds the user operations.
type Service struct {
	store      store.Store
	tokens     TokenIssuer
	bcryptCost int
}

func NewService(s store.Store, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{store: s, tokens: tokens, bcryptCost: bcryptCost}
}

// List returns every user without password hashes.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Fetching users failed, please try again later.", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// SignUp creates an account and returns a token for it. email must already
// be normalized.
func (s *Service) SignUp(ctx context.Context, name, email, password, imageRef string) (*models.AuthResponse, error) {
	_, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperr.New(apperr.EmailInUse, "User exists already, please login instead.")
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Wrap(apperr.Unavailable, "Signing up failed, please try again later.", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Could not create user, please try again.", err)
	}

	user, err := models.NewUser(name, email, string(hash), imageRef)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "Invalid inputs passed, please check your data.", err)
	}
	if err := s.store.Users().Save(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.Wrap(apperr.EmailInUse, "User exists already, please login instead.", err)
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Signing up failed, please try again later.", err)
	}

	return s.authenticate(user)
}

// Login checks the credentials and returns a fresh token. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.AuthenticationFailed, authFailedMessage)
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Logging in failed, please try again later.", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, apperr.New(apperr.AuthenticationFailed, authFailedMessage)
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Could not log you in, please check your credentials and try again.", err)
	}

	return s.authenticate(user)
}

func (s *Service) authenticate(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Something went wrong, please try again later.", err)
	}
	return &models.AuthResponse{UserID: user.ID, Email: user.Email, Token: token}, nil
}
