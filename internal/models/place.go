package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinDescriptionLength is the shortest accepted place description.
const MinDescriptionLength = 5

// ErrInvalidPlace is returned by NewPlace and Place.Apply on invalid fields.
var ErrInvalidPlace = errors.New("invalid place")

// Location is a geocoded coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a location record owned by exactly one user.
type Place struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageURL"`
	Address     string   `json:"address"`
	Location    Location `json:"location"`
	Creator     string   `json:"creator"`
}

// NewPlace builds a place record, rejecting missing fields.
func NewPlace(title, description, address string, loc Location, imageURL, creator string) (*Place, error) {
	if strings.TrimSpace(address) == "" {
		return nil, errors.Join(ErrInvalidPlace, errors.New("address is required"))
	}
	if creator == "" {
		return nil, errors.Join(ErrInvalidPlace, errors.New("creator is required"))
	}
	p := &Place{
		Address:  address,
		Location: loc,
		ImageURL: imageURL,
		Creator:  creator,
	}
	if err := p.Apply(title, description); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply sets the mutable fields after checking them.
func (p *Place) Apply(title, description string) error {
	if title == "" {
		return errors.Join(ErrInvalidPlace, errors.New("title is required"))
	}
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return errors.Join(ErrInvalidPlace, errors.New("description is too short"))
	}
	p.Title = title
	p.Description = description
	return nil
}

// CreatePlaceRequest is the form body for POST /api/places.
type CreatePlaceRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=5"`
	Address     string `json:"address" validate:"required"`
}

// UpdatePlaceRequest is the JSON body for PATCH /api/places/{placeID}.
type UpdatePlaceRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"min=5"`
}
