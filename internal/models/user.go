package models

import (
	"errors"
	"strings"
)

// ErrInvalidUser is returned by NewUser when a required field is missing.
var ErrInvalidUser = errors.New("invalid user")

// User is an account. Places holds the ids of the places the user created.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"` // never serialize
	ImageURL     string   `json:"imageURL"`
	Places       []string `json:"places"`
}

// NewUser builds a user record with an empty place set. The password must
// already be hashed.
func NewUser(name, email, passwordHash, imageURL string) (*User, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return nil, errors.Join(ErrInvalidUser, errors.New("name is required"))
	case email == "":
		return nil, errors.Join(ErrInvalidUser, errors.New("email is required"))
	case passwordHash == "":
		return nil, errors.Join(ErrInvalidUser, errors.New("password hash is required"))
	}
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		ImageURL:     imageURL,
		Places:       []string{},
	}, nil
}

// AddPlace records placeID as owned by the user. Adding an id twice is a no-op.
func (u *User) AddPlace(placeID string) {
	for _, id := range u.Places {
		if id == placeID {
			return
		}
	}
	u.Places = append(u.Places, placeID)
}

// RemovePlace drops placeID from the user's place set.
func (u *User) RemovePlace(placeID string) {
	kept := u.Places[:0]
	for _, id := range u.Places {
		if id != placeID {
			kept = append(kept, id)
		}
	}
	u.Places = kept
}

// SignupRequest is the form body for POST /api/users/signup.
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// LoginRequest is the JSON body for POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by sign-up and login.
type AuthResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// NormalizeEmail canonicalizes an address before validation and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
