package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/port"
	"github.com/finlyapp/finly-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// JWTAuthMiddleware validates Bearer tokens and injects the user id
// into context. The user cache keeps the per-request account lookup
// off the database for the token's lifetime.
func JWTAuthMiddleware(authSvc *service.AuthService, users port.Cache[domain.User], logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Authentication token not provided")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Invalid token format")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			// Confirm the subject still exists; tokens outlive deleted
			// accounts otherwise.
			if _, ok := users.Get(claims.Sub); !ok {
				user, err := authSvc.GetUser(r.Context(), claims.Sub)
				if err != nil {
					logger.Warn("auth: token subject not found",
						zap.String("user_id", claims.Sub),
						zap.Error(err),
					)
					writeError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				users.Set(claims.Sub, *user)
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user id from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
