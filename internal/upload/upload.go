// Package upload stores user-submitted images and serves them back.
package upload

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/store"
)

// RefPrefix is prepended to stored image names to form the reference kept
// in user and place records.
const RefPrefix = "uploads/images/"

// FileStore is an image backend. Download returns store.ErrNotFound for a
// missing key.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// Extension returns the file extension for an accepted MIME type.
func Extension(mimeType string) (string, bool) {
	ext, ok := extensions[strings.ToLower(mimeType)]
	return ext, ok
}

// Ref returns the record reference for a stored image name.
func Ref(name string) string { return RefPrefix + name }

// KeyFromRef extracts the store key from a record reference.
func KeyFromRef(ref string) (string, bool) {
	if !strings.HasPrefix(ref, RefPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(ref, RefPrefix)
	if !validKey(key) {
		return "", false
	}
	return key, true
}

func validKey(key string) bool {
	return key != "" && key == path.Base(key) && key != "." && key != ".."
}

// ServeImage answers GET /uploads/images/{name} from fs.
func ServeImage(fs FileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if !validKey(name) {
			httputil.RespondError(w, r, apperr.New(apperr.NotFound, "Could not find this image."))
			return
		}
		data, contentType, err := fs.Download(r.Context(), name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.RespondError(w, r, apperr.New(apperr.NotFound, "Could not find this image."))
				return
			}
			httputil.RespondError(w, r, apperr.Wrap(apperr.Unavailable, "Could not load image.", err))
			return
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
	}
}
