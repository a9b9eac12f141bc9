package users

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/logging"
	"github.com/ayush/places-api/internal/middleware"
	"github.com/ayush/places-api/internal/models"
	"github.com/ayush/places-api/internal/validation"
)

const invalidInputMessage = "Invalid inputs passed, please check your data."

// RateLimiter counts login attempts per key. Reset clears the count after a
// successful login so only failures accumulate.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type usersResponse struct {
	Users []models.User `json:"users"`
}

// Handler holds user HTTP handlers. A nil limiter disables login throttling.
type Handler struct {
	service *Service
	limiter RateLimiter
}

func NewHandler(service *Service, limiter RateLimiter) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// List handles GET /api/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusOK, usersResponse{Users: users})
}

// SignUp handles POST /api/users/signup. It runs behind ImageUpload.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	imageRef, _ := middleware.ImageRef(r.Context())

	req := models.SignupRequest{
		Name:     r.FormValue("name"),
		Email:    models.NormalizeEmail(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(req, invalidInputMessage); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	resp, err := h.service.SignUp(r.Context(), req.Name, req.Email, req.Password, imageRef)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /api/users/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	ip := clientIP(r)
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(r.Context(), ip)
		if err != nil {
			logger.Error("check login rate limit", "error", err)
		} else if !allowed {
			logger.Warn("login rate limit exceeded", "ip", ip)
			httputil.RespondError(w, r, apperr.New(apperr.TooManyRequests, "Too many login attempts, please try again later."))
			return
		}
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, r, apperr.Wrap(apperr.InvalidInput, invalidInputMessage, err))
		return
	}
	req.Email = models.NormalizeEmail(req.Email)
	if err := validation.Struct(req, invalidInputMessage); err != nil {
		httputil.RespondError(w, r, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperr.Is(err, apperr.AuthenticationFailed) {
			logger.Info("login rejected", "ip", ip)
		}
		httputil.RespondError(w, r, err)
		return
	}
	if h.limiter != nil {
		if err := h.limiter.Reset(r.Context(), ip); err != nil {
			logger.Warn("reset login rate limit", "ip", ip, "error", err)
		}
	}
	httputil.RespondJSON(w, r, http.StatusOK, resp)
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP has
// already replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
