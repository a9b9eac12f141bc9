package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/places-api/internal/auth"
	"github.com/ayush/places-api/internal/geocode"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/places"
	"github.com/ayush/places-api/internal/store"
	"github.com/ayush/places-api/internal/upload"
	"github.com/ayush/places-api/internal/users"
)

type stubGeocoder struct{}

func (stubGeocoder) Coordinates(_ context.Context, address string) (models.Location, error) {
	if strings.Contains(address, "nowhere") {
		return models.Location{}, geocode.ErrAddressNotFound
	}
	return models.Location{Lat: 40.7484405, Lng: -73.9878584}, nil
}

type testAPI struct {
	srv    *httptest.Server
	dir    string
	images *upload.DiskStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := store.NewMemoryStore()
	tokens := auth.NewTokenManager("secret", time.Hour)
	dir := t.TempDir()
	images, err := upload.NewDiskStore(dir)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		AllowedOrigins: []string{"*"},
		Tokens:         tokens,
		Images:         images,
		MaxUploadBytes: 500000,
		Places:         places.NewHandler(places.NewService(mem, stubGeocoder{}, images)),
		Users:          users.NewHandler(users.NewService(mem, tokens, bcrypt.MinCost), nil),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, dir: dir, images: images}
}

func (a *testAPI) imageCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(a.dir)
	require.NoError(t, err)
	return len(entries)
}

func (a *testAPI) multipart(t *testing.T, method, path, token string, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
	h.Set("Content-Type", "image/png")
	w, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = w.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return a.do(t, method, path, token, mw.FormDataContentType(), &body)
}

func (a *testAPI) sendJSON(t *testing.T, method, path, token string, v any) *http.Response {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return a.do(t, method, path, token, "application/json", body)
}

func (a *testAPI) do(t *testing.T, method, path, token, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testAPI) signUp(t *testing.T, email string) models.AuthResponse {
	t.Helper()
	resp := a.multipart(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": "Max", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.AuthResponse](t, resp)
}

func TestSignUpAndLogin(t *testing.T) {
	api := newTestAPI(t)

	created := api.signUp(t, "a@x.com")
	assert.Equal(t, "a@x.com", created.Email)
	assert.NotEmpty(t, created.UserID)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, 1, api.imageCount(t))

	again := api.multipart(t, http.MethodPost, "/api/users/signup", "", map[string]string{
		"name": "Max", "email": "a@x.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, again.StatusCode)
	assert.Equal(t, 1, api.imageCount(t), "rejected sign-up must not keep its image")

	ok := api.sendJSON(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, ok.StatusCode)
	assert.Equal(t, created.UserID, decode[models.AuthResponse](t, ok).UserID)

	wrong := api.sendJSON(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "a@x.com", "password": "wrong12"})
	unknown := api.sendJSON(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "b@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, wrong.StatusCode)
	assert.Equal(t, http.StatusForbidden, unknown.StatusCode)
	wrongBody, err := io.ReadAll(wrong.Body)
	require.NoError(t, err)
	unknownBody, err := io.ReadAll(unknown.Body)
	require.NoError(t, err)
	assert.Equal(t, string(wrongBody), string(unknownBody))

	list := api.sendJSON(t, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	body, err := io.ReadAll(list.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"email":"a@x.com"`)
	assert.NotContains(t, string(body), "password")
}

func TestPlaceLifecycle(t *testing.T) {
	api := newTestAPI(t)
	owner := api.signUp(t, "owner@x.com")
	other := api.signUp(t, "other@x.com")

	resp := api.multipart(t, http.MethodPost, "/api/places", owner.Token, map[string]string{
		"title":       "Empire State Building",
		"description": "One of the most famous sky scrapers in the world",
		"address":     "20 W 34th St, New York, NY 10001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string]models.Place](t, resp)["place"]
	assert.InDelta(t, 40.7484405, created.Location.Lat, 1e-9)
	assert.InDelta(t, -73.9878584, created.Location.Lng, 1e-9)
	assert.Equal(t, owner.UserID, created.Creator)
	assert.True(t, strings.HasPrefix(created.ImageURL, upload.RefPrefix))

	image := api.sendJSON(t, http.MethodGet, "/"+created.ImageURL, "", nil)
	assert.Equal(t, http.StatusOK, image.StatusCode)
	assert.Equal(t, "image/png", image.Header.Get("Content-Type"))

	got := api.sendJSON(t, http.MethodGet, "/api/places/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, created, decode[map[string]models.Place](t, got)["place"])

	byUser := api.sendJSON(t, http.MethodGet, "/api/places/user/"+owner.UserID, "", nil)
	require.Equal(t, http.StatusOK, byUser.StatusCode)
	assert.Len(t, decode[map[string][]models.Place](t, byUser)["places"], 1)

	hijack := api.sendJSON(t, http.MethodPatch, "/api/places/"+created.ID, other.Token, map[string]string{
		"title": "Mine now", "description": "Definitely mine",
	})
	assert.Equal(t, http.StatusUnauthorized, hijack.StatusCode)
	unchanged := api.sendJSON(t, http.MethodGet, "/api/places/"+created.ID, "", nil)
	assert.Equal(t, created.Title, decode[map[string]models.Place](t, unchanged)["place"].Title)

	patched := api.sendJSON(t, http.MethodPatch, "/api/places/"+created.ID, owner.Token, map[string]string{
		"title": "Empire", "description": "Still very tall",
	})
	require.Equal(t, http.StatusOK, patched.StatusCode)
	assert.Equal(t, "Empire", decode[map[string]models.Place](t, patched)["place"].Title)

	deleted := api.sendJSON(t, http.MethodDelete, "/api/places/"+created.ID, owner.Token, nil)
	require.Equal(t, http.StatusOK, deleted.StatusCode)

	gone := api.sendJSON(t, http.MethodGet, "/api/places/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
	empty := api.sendJSON(t, http.MethodGet, "/api/places/user/"+owner.UserID, "", nil)
	require.Equal(t, http.StatusOK, empty.StatusCode)
	assert.Empty(t, decode[map[string][]models.Place](t, empty)["places"])
	assert.Equal(t, 2, api.imageCount(t), "only the two avatars remain")
}

func TestCreatePlaceRejections(t *testing.T) {
	api := newTestAPI(t)
	owner := api.signUp(t, "owner@x.com")

	noAuth := api.multipart(t, http.MethodPost, "/api/places", "", map[string]string{
		"title": "T", "description": "Long enough", "address": "somewhere",
	})
	assert.Equal(t, http.StatusUnauthorized, noAuth.StatusCode)

	invalid := api.multipart(t, http.MethodPost, "/api/places", owner.Token, map[string]string{
		"title": "", "description": "abc", "address": "somewhere",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, invalid.StatusCode)

	unknownAddress := api.multipart(t, http.MethodPost, "/api/places", owner.Token, map[string]string{
		"title": "T", "description": "Long enough", "address": "nowhere at all",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, unknownAddress.StatusCode)

	assert.Equal(t, 1, api.imageCount(t), "failed creates must not keep their images")
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/nothing"},
		{http.MethodPut, "/api/places/abc"},
	} {
		resp := api.sendJSON(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.path)
		assert.Equal(t, "Could not find this route.", decode[map[string]string](t, resp)["message"])
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.sendJSON(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req, err := http.NewRequest(http.MethodOptions, api.srv.URL+"/api/places", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := api.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
