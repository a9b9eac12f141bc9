package places

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/middleware"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/validation"
)

const invalidInputMessage = "Invalid inputs passed, please check your data."

type placeResponse struct {
	Place *models.Place `json:"place"`
}

type placesResponse struct {
	Places []models.Place `json:"places"`
}

// Handler holds place HTTP handlers.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /api/places/{placeID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	place, err := h.service.Get(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusOK, placeResponse{Place: place})
}

// ListByUser handles GET /api/places/user/{userID}.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	places, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusOK, placesResponse{Places: places})
}

// Create handles POST /api/places. It runs behind RequireAuth and
// ImageUpload.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.RespondError(w, r, apperr.New(apperr.Unauthorized, "Authentication failed!"))
		return
	}
	imageRef, _ := middleware.ImageRef(r.Context())

	req := models.CreatePlaceRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Address:     r.FormValue("address"),
	}
	if err := validation.Struct(req, invalidInputMessage); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	place, err := h.service.Create(r.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		ImageRef:    imageRef,
		CreatorID:   userID,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusCreated, placeResponse{Place: place})
}

// Update handles PATCH /api/places/{placeID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.RespondError(w, r, apperr.New(apperr.Unauthorized, "Authentication failed!"))
		return
	}

	var req models.UpdatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, r, apperr.Wrap(apperr.InvalidInput, invalidInputMessage, err))
		return
	}
	if err := validation.Struct(req, invalidInputMessage); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	place, err := h.service.Update(r.Context(), chi.URLParam(r, "placeID"), req.Title, req.Description, userID)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusOK, placeResponse{Place: place})
}

// Delete handles DELETE /api/places/{placeID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		httputil.RespondError(w, r, apperr.New(apperr.Unauthorized, "Authentication failed!"))
		return
	}

	place, err := h.service.Delete(r.Context(), chi.URLParam(r, "placeID"), userID)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	email, _ := middleware.Email(r.Context())
	logging.FromContext(r.Context()).Info("place deleted", "place_id", place.ID, "email", email)
	httputil.RespondJSON(w, r, http.StatusOK, placeResponse{Place: place})
}
