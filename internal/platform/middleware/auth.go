package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "valid8/pkg/domain"
	"valid8/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer access tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	UserID    id.UserID
	SessionID id.SessionID
}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) id.UserID {
	return requestcontext.UserID(ctx)
}

// GetSessionID retrieves the login session ID from the context.
func GetSessionID(ctx context.Context) id.SessionID {
	return requestcontext.SessionID(ctx)
}

// RequireAuth gates protected routes on a valid bearer token. Logging out
// revokes the session behind the token, so revoked tokens fail validation
// here and the route is denied.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
