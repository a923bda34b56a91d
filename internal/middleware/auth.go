package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/apperr"
	"github.com/safezone/server/internal/auth"
	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

type contextKey string

const userKey contextKey = "user"

// TokenVerifier verifies bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLookup resolves a token subject to a stored user
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.User, error)
}

// Authenticate validates the bearer token, loads the user and attaches it to
// the request context. Any failure ends the request with 401.
func Authenticate(tokens TokenVerifier, users UserLookup, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				response.Error(w, r, logger, apperr.Unauthorized("Authorization token missing"))
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				response.Error(w, r, logger, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					response.Error(w, r, logger, apperr.Unauthorized("User not found"))
					return
				}
				response.Error(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser attaches an authenticated user to ctx
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user attached by Authenticate
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
