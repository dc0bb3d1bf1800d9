package chi

import (
	"context"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (banner, health, metrics).
var exemptPaths = map[string]struct{}{
	"/":        {},
	"/health":  {},
	"/metrics": {},
}

type userKey struct{}

// ContextWithUser stores the authenticated user id in the context.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id, or "" when auth is disabled.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// BearerAuthMiddleware resolves Bearer tokens to user ids via the tokens table.
// If the table is empty, authentication is disabled and requests run anonymously.
func BearerAuthMiddleware(tokens map[string]string) func(http.Handler) http.Handler {
	users := make(map[string]string, len(tokens))
	for tok, user := range tokens {
		if tok != "" && user != "" {
			users[tok] = user
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled: pass everything through
		if len(users) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeUnauthorized(w, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeUnauthorized(w, "authorization header must use Bearer scheme")
				return
			}

			user, ok := users[auth[len(bearerPrefix):]]
			if !ok {
				writeUnauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, codeUnauthorized, detail)
}
