package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/terra-clan/translation-workflow/internal/models"
	"github.com/terra-clan/translation-workflow/internal/workflow"
)

// Authenticator resolves bearer tokens into users
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate verifies the bearer token and stores the user in the request
// context. Supports "Bearer tw_xxx" or a raw token in the Authorization header,
// and a token query parameter for websocket clients that cannot set headers.
// Requests of non-managers carry the user as workflow actor so ownership
// checks apply to them.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, workflow.KindAuthorization, "MissingToken")
			return
		}

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, workflow.ErrInvalidToken) {
				slog.Warn("invalid token attempt", "token_prefix", maskToken(token), "remote_addr", r.RemoteAddr)
				respondError(w, http.StatusUnauthorized, workflow.KindAuthorization, workflow.ErrInvalidToken.Code)
				return
			}
			writeError(w, r, err)
			return
		}

		slog.Debug("authenticated request", "user_id", user.ID, "role", user.Role)

		ctx := ContextWithUser(r.Context(), user)
		if user.Role != models.RoleManager {
			ctx = workflow.WithActor(ctx, user.ID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that admits users holding any of the roles.
// Managers are always admitted.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, workflow.KindAuthorization, "MissingToken")
				return
			}

			if !user.HasRole(roles...) {
				slog.Warn("role denied",
					"user_id", user.ID,
					"role", user.Role,
					"required", roles,
				)
				respondError(w, http.StatusForbidden, workflow.KindAuthorization, "RoleDenied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from request headers or query
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}

	return r.URL.Query().Get("token")
}

// maskToken returns the first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
