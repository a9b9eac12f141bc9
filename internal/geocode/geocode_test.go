package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/places-api/internal/models"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20 W 34th St, New York", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", time.Second)
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    models.Location
		wantErr error
	}{
		{
			name:   "ok",
			status: http.StatusOK,
			body:   `{"status":"OK","results":[{"geometry":{"location":{"lat":40.7484405,"lng":-73.9878584}}}]}`,
			want:   models.Location{Lat: 40.7484405, Lng: -73.9878584},
		},
		{
			name:    "zero results",
			status:  http.StatusOK,
			body:    `{"status":"ZERO_RESULTS","results":[]}`,
			wantErr: ErrAddressNotFound,
		},
		{
			name:    "ok without results",
			status:  http.StatusOK,
			body:    `{"status":"OK","results":[]}`,
			wantErr: ErrAddressNotFound,
		},
		{
			name:    "missing coordinates",
			status:  http.StatusOK,
			body:    `{"status":"OK","results":[{"geometry":{}}]}`,
			wantErr: ErrAddressNotFound,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: ErrAddressNotFound,
		},
		{
			name:    "request denied",
			status:  http.StatusOK,
			body:    `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`,
			wantErr: ErrUnavailable,
		},
		{
			name:    "upstream error",
			status:  http.StatusBadGateway,
			body:    `oops`,
			wantErr: ErrUnavailable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.status, tc.body)

			got, err := c.Coordinates(context.Background(), "20 W 34th St, New York")

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoordinates_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, "k", time.Second)

	_, err := c.Coordinates(context.Background(), "anywhere")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCoordinates_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "k", 20*time.Millisecond)

	_, err := c.Coordinates(context.Background(), "anywhere")

	assert.ErrorIs(t, err, ErrUnavailable)
}
