package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{InvalidInput, http.StatusUnprocessableEntity},
		{AddressNotFound, http.StatusUnprocessableEntity},
		{EmailInUse, http.StatusUnprocessableEntity},
		{InvalidFileType, http.StatusUnprocessableEntity},
		{FileTooLarge, http.StatusRequestEntityTooLarge},
		{NotFound, http.StatusNotFound},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusUnauthorized},
		{AuthenticationFailed, http.StatusForbidden},
		{TooManyRequests, http.StatusTooManyRequests},
		{Unavailable, http.StatusInternalServerError},
		{TransactionFailed, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Status())
		})
	}
}

func TestWrap_KeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unavailable, "Could not load place.", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "Could not load place.", err.Message)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", New(NotFound, "nope"))

	assert.True(t, Is(wrapped, NotFound))
	assert.False(t, Is(wrapped, Forbidden))
	assert.False(t, Is(errors.New("plain"), Unavailable))
}
