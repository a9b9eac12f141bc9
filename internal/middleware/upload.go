package middleware

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/upload"
)

// ImageField is the multipart field carrying the uploaded image.
const ImageField = "image"

// formOverhead is the body allowance on top of the file for text fields and
// multipart framing.
const formOverhead = 64 << 10

// ImageUpload accepts exactly one image under ImageField, stores it in fs
// under a random name and exposes its reference through ImageRef. When the
// wrapped handler answers with a status of 400 or more, or panics, the
// stored image is removed again.
func ImageUpload(fs upload.FileStore, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.RespondError(w, r, apperr.Wrap(apperr.FileTooLarge, "File too large.", err))
					return
				}
				httputil.RespondError(w, r, apperr.Wrap(apperr.InvalidInput, "Invalid form data.", err))
				return
			}
			defer func() { _ = r.MultipartForm.RemoveAll() }()

			files := r.MultipartForm.File[ImageField]
			if len(files) != 1 {
				httputil.RespondError(w, r, apperr.New(apperr.InvalidInput, "Exactly one image must be provided."))
				return
			}
			fh := files[0]
			if fh.Size > maxBytes {
				httputil.RespondError(w, r, apperr.New(apperr.FileTooLarge, "File too large."))
				return
			}
			mimeType := fh.Header.Get("Content-Type")
			ext, ok := upload.Extension(mimeType)
			if !ok {
				httputil.RespondError(w, r, apperr.New(apperr.InvalidFileType, "Invalid mime type!"))
				return
			}

			data, err := readFile(fh)
			if err != nil {
				httputil.RespondError(w, r, apperr.Wrap(apperr.InvalidInput, "Invalid form data.", err))
				return
			}

			name := uuid.NewString() + "." + ext
			if err := fs.Upload(r.Context(), name, data, mimeType); err != nil {
				httputil.RespondError(w, r, apperr.Wrap(apperr.Unavailable, "Could not store image.", err))
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := context.WithValue(r.Context(), imageRefKey, upload.Ref(name))
			defer func() {
				p := recover()
				if p != nil || ww.Status() >= http.StatusBadRequest {
					if err := fs.Remove(context.WithoutCancel(ctx), name); err != nil {
						logging.FromContext(ctx).Warn("remove rejected upload", "image", name, "error", err)
					}
				}
				if p != nil {
					panic(p)
				}
			}()
			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ImageRef returns the reference of the image accepted by ImageUpload.
func ImageRef(ctx context.Context) (string, bool) {
	ref, ok := ctx.Value(imageRefKey).(string)
	return ref, ok
}
