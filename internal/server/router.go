// Package server assembles the HTTP router and runs the listener.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/middleware"
	"github.com/ayush/places-api/internal/places"
	"github.com/ayush/places-api/internal/upload"
	"github.com/ayush/places-api/internal/users"
)

// Deps are the collaborators the router wires into routes.
type Deps struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	Tokens         middleware.TokenVerifier
	Images         upload.FileStore
	MaxUploadBytes int64
	Places         *places.Handler
	Users          *users.Handler
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/uploads/images/{name}", upload.ServeImage(d.Images))

	requireAuth := middleware.RequireAuth(d.Tokens)
	imageUpload := middleware.ImageUpload(d.Images, d.MaxUploadBytes)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", d.Users.List)
		r.With(imageUpload).Post("/signup", d.Users.SignUp)
		r.Post("/login", d.Users.Login)
	})

	r.Route("/api/places", func(r chi.Router) {
		r.Get("/{placeID}", d.Places.Get)
		r.Get("/user/{userID}", d.Places.ListByUser)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(imageUpload).Post("/", d.Places.Create)
			r.Patch("/{placeID}", d.Places.Update)
			r.Delete("/{placeID}", d.Places.Delete)
		})
	})

	return r
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.RespondError(w, r, apperr.New(apperr.NotFound, "Could not find this route."))
}
