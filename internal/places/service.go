// Package places implements place lookup, creation, update and deletion with
// ownership checks and creator bookkeeping.
package places

import (
	"context"
	"errors"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/geocode"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/store"
	"github.com/ayush/places-api/internal/upload"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, address string) (models.Location, error)
}

// ImageRemover deletes stored images by key.
type ImageRemover interface {
	Remove(ctx context.Context, key string) error
}

// Service holds the place operations.
type Service struct {
	store    store.Store
	geocoder Geocoder
	images   ImageRemover
}

func NewService(s store.Store, geocoder Geocoder, images ImageRemover) *Service {
	return &Service{store: s, geocoder: geocoder, images: images}
}

// CreateInput is a validated place creation request.
type CreateInput struct {
	Title       string
	Description string
	Address     string
	ImageRef    string
	CreatorID   string
}

// Get returns the place with the given id.
func (s *Service) Get(ctx context.Context, placeID string) (*models.Place, error) {
	p, err := s.store.Places().FindByID(ctx, placeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Could not find place for the provided id.")
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Something went wrong, could not find a place.", err)
	}
	return p, nil
}

// ListByUser returns the places created by userID. A user without places
// gets an empty list.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Place, error) {
	places, err := s.store.Places().FindByCreator(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Fetching places failed, please try again later.", err)
	}
	if places == nil {
		places = []models.Place{}
	}
	return places, nil
}

// Create geocodes the address, then stores the place and links it to its
// creator in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Place, error) {
	loc, err := s.geocoder.Coordinates(ctx, in.Address)
	if err != nil {
		if errors.Is(err, geocode.ErrAddressNotFound) {
			return nil, apperr.Wrap(apperr.AddressNotFound, "Could not find location for the specified address.", err)
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Could not look up the address, please try again later.", err)
	}

	place, err := models.NewPlace(in.Title, in.Description, in.Address, loc, in.ImageRef, in.CreatorID)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "Invalid inputs passed, please check your data.", err)
	}

	if _, err := s.store.Users().FindByID(ctx, in.CreatorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Could not find user for the provided id.")
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Creating place failed, please try again.", err)
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		creator, err := s.store.Users().FindByID(ctx, in.CreatorID)
		if err != nil {
			return err
		}
		place.ID = ""
		if err := s.store.Places().Save(ctx, place); err != nil {
			return err
		}
		creator.AddPlace(place.ID)
		return s.store.Users().Save(ctx, creator)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "Creating place failed, please try again.", err)
	}
	return place, nil
}

// Update changes the title and description of a place owned by requesterID.
func (s *Service) Update(ctx context.Context, placeID, title, description, requesterID string) (*models.Place, error) {
	place, err := s.Get(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place.Creator != requesterID {
		return nil, apperr.New(apperr.Forbidden, "You are not allowed to edit this place.")
	}
	if err := place.Apply(title, description); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, "Invalid inputs passed, please check your data.", err)
	}
	if err := s.store.Places().Save(ctx, place); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Could not find place for the provided id.")
		}
		return nil, apperr.Wrap(apperr.Unavailable, "Something went wrong, could not update place.", err)
	}
	return place, nil
}

// Delete removes a place owned by requesterID and unlinks it from the
// creator in one transaction. The image is removed afterwards on a best
// effort basis.
func (s *Service) Delete(ctx context.Context, placeID, requesterID string) (*models.Place, error) {
	place, err := s.Get(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if place.Creator != requesterID {
		return nil, apperr.New(apperr.Forbidden, "You are not allowed to delete this place.")
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Places().Delete(ctx, place.ID); err != nil {
			return err
		}
		creator, err := s.store.Users().FindByID(ctx, place.Creator)
		if err != nil {
			return err
		}
		creator.RemovePlace(place.ID)
		return s.store.Users().Save(ctx, creator)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.TransactionFailed, "Something went wrong, could not delete place.", err)
	}

	s.removeImage(ctx, place.ImageURL)
	return place, nil
}

func (s *Service) removeImage(ctx context.Context, ref string) {
	key, ok := upload.KeyFromRef(ref)
	if !ok || s.images == nil {
		return
	}
	if err := s.images.Remove(context.WithoutCancel(ctx), key); err != nil {
		logging.FromContext(ctx).Warn("remove place image", "image", key, "error", err)
	}
}
