package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/auth"
	"github.com/ayush/places-api/internal/httputil"
	"github.com/ayush/places-api/internal/logging"
)

type contextKey int

const (
	userIDKey contextKey = iota
	emailKey
	imageRefKey
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth validates the Authorization bearer token and injects the
// caller's user id and email into the request context. Preflight requests
// pass through untouched.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, r, apperr.New(apperr.Unauthorized, "Authentication failed!"))
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(token))
			if err != nil {
				httputil.RespondError(w, r, apperr.Wrap(apperr.Unauthorized, "Authentication failed!", err))
				return
			}

			ctx := WithCaller(r.Context(), claims.UserID, claims.Email)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id set by RequireAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Email returns the authenticated email set by RequireAuth.
func Email(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey).(string)
	return email, ok
}

// WithCaller returns ctx carrying id and email as the authenticated user.
func WithCaller(ctx context.Context, id, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, emailKey, email)
}
