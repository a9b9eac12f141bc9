package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/auth"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/store"
)

func newTestService(s store.Store) (*Service, *auth.TokenManager) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	return NewService(s, tokens, bcrypt.MinCost), tokens
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, tokens := newTestService(mem)

	resp, err := svc.SignUp(ctx, "Max", "a@x.com", "secret1", "uploads/images/a.png")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", resp.Email)
	assert.NotEmpty(t, resp.UserID)

	claims, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)

	stored, err := mem.Users().FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	assert.Equal(t, "uploads/images/a.png", stored.ImageURL)
	assert.Empty(t, stored.Places)
}

func TestService_SignUpDuplicate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem)

	_, err := svc.SignUp(ctx, "Max", "a@x.com", "secret1", "")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "Other", "a@x.com", "secret2", "")

	assert.True(t, apperr.Is(err, apperr.EmailInUse))
	users, err := mem.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

// racingStore hides existing users from FindByEmail so the duplicate is only
// detected at insert time.
type racingStore struct {
	*store.MemoryStore
}

func (s racingStore) Users() store.UserRepository {
	return racingUsers{s.MemoryStore.Users()}
}

type racingUsers struct {
	store.UserRepository
}

func (racingUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func TestService_SignUpDuplicateAtInsert(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	first, _ := newTestService(mem)
	_, err := first.SignUp(ctx, "Max", "a@x.com", "secret1", "")
	require.NoError(t, err)
	svc, _ := newTestService(racingStore{mem})

	_, err = svc.SignUp(ctx, "Other", "a@x.com", "secret2", "")

	assert.True(t, apperr.Is(err, apperr.EmailInUse))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, string) (string, error) { return "", errors.New("no key") }

func TestService_SignUpTokenFailure(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), failingIssuer{}, bcrypt.MinCost)

	_, err := svc.SignUp(context.Background(), "Max", "a@x.com", "secret1", "")

	assert.True(t, apperr.Is(err, apperr.Unavailable))
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(store.NewMemoryStore())
	signed, err := svc.SignUp(ctx, "Max", "a@x.com", "secret1", "")
	require.NoError(t, err)

	resp, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, signed.UserID, resp.UserID)
	assert.NotEmpty(t, resp.Token)

	_, wrongPassword := svc.Login(ctx, "a@x.com", "nope123")
	_, unknownEmail := svc.Login(ctx, "b@x.com", "secret1")

	require.True(t, apperr.Is(wrongPassword, apperr.AuthenticationFailed))
	require.True(t, apperr.Is(unknownEmail, apperr.AuthenticationFailed))

	var a, b *apperr.Error
	require.ErrorAs(t, wrongPassword, &a)
	require.ErrorAs(t, unknownEmail, &b)
	assert.Equal(t, a.Message, b.Message)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(store.NewMemoryStore())
	_, err := svc.SignUp(ctx, "Max", "a@x.com", "secret1", "")
	require.NoError(t, err)

	users, err := svc.List(ctx)

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)
	assert.Equal(t, "Max", users[0].Name)
}
