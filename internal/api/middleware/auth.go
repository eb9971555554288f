package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/reverie-api/internal/api/shared"
	"github.com/phrazzld/reverie-api/internal/platform/logger"
	"github.com/phrazzld/reverie-api/internal/service/auth"
)

// AccessTokenQueryParam carries the token for clients that cannot set headers,
// such as browser EventSource connections.
const AccessTokenQueryParam = "access_token"

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	allowQuery bool
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// WithQueryToken returns a copy of the middleware that also accepts the token
// from the access_token query parameter when no Authorization header is set.
func (m *AuthMiddleware) WithQueryToken() *AuthMiddleware {
	return &AuthMiddleware{jwtService: m.jwtService, allowQuery: true}
}

// Authenticate validates JWT tokens from the Authorization header and
// adds the owner ID to the request context for authorized requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.extractToken(w, r)
		if !ok {
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrWrongTokenType),
				errors.Is(err, auth.ErrTokenNotYetValid):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
			}
			return
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		log := logger.FromContext(ctx).With("owner_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(ctx, log)))
	})
}

func (m *AuthMiddleware) extractToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if m.allowQuery {
			if token := r.URL.Query().Get(AccessTokenQueryParam); token != "" {
				return token, true
			}
		}
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
		return "", false
	}
	return parts[1], true
}
