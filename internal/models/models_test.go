package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlace(t *testing.T) {
	loc := Location{Lat: 40.7, Lng: -73.9}

	p, err := NewPlace("Cafe", "Nice spot", "1 Main St", loc, "uploads/images/a.png", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Cafe", p.Title)
	assert.Equal(t, loc, p.Location)
	assert.Empty(t, p.ID)

	_, err = NewPlace("", "Nice spot", "1 Main St", loc, "", "u1")
	assert.ErrorIs(t, err, ErrInvalidPlace)

	_, err = NewPlace("Cafe", "Nice", "1 Main St", loc, "", "u1")
	assert.ErrorIs(t, err, ErrInvalidPlace)

	_, err = NewPlace("Cafe", "Nice spot", " ", loc, "", "u1")
	assert.ErrorIs(t, err, ErrInvalidPlace)

	_, err = NewPlace("Cafe", "Nice spot", "1 Main St", loc, "", "")
	assert.ErrorIs(t, err, ErrInvalidPlace)
}

func TestPlaceApply_LeavesPlaceUntouchedOnError(t *testing.T) {
	p := &Place{Title: "Old", Description: "Old description"}

	err := p.Apply("New", "no")

	require.ErrorIs(t, err, ErrInvalidPlace)
	assert.Equal(t, "Old", p.Title)
	assert.Equal(t, "Old description", p.Description)
}

func TestUserPlaces(t *testing.T) {
	u, err := NewUser("Ann", "ann@x.com", "hash", "")
	require.NoError(t, err)
	assert.Equal(t, []string{}, u.Places)

	u.AddPlace("p1")
	u.AddPlace("p2")
	u.AddPlace("p1")
	assert.Equal(t, []string{"p1", "p2"}, u.Places)

	u.RemovePlace("p1")
	assert.Equal(t, []string{"p2"}, u.Places)
	u.RemovePlace("missing")
	assert.Equal(t, []string{"p2"}, u.Places)
}

func TestNewUser_Invalid(t *testing.T) {
	_, err := NewUser("", "a@x.com", "hash", "")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = NewUser("A", "", "hash", "")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = NewUser("A", "a@x.com", "", "")
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))
}
