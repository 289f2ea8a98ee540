package chi

import (
	"context"
	"net/http"
	"strings"
)

type editorKey struct{}

// IsEditor reports whether the request carried a valid API key.
func IsEditor(ctx context.Context) bool {
	v, _ := ctx.Value(editorKey{}).(bool)
	return v
}

func withEditor(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), editorKey{}, true))
}

func keySet(apiKeys []string) map[string]struct{} {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}
	return validKeys
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens and
// marks authenticated requests as editor requests.
// If apiKeys is empty, authentication is disabled (pass-through).
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := keySet(apiKeys)

	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			token := auth[len(bearerPrefix):]
			if _, ok := validKeys[token]; !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, withEditor(r))
		})
	}
}

// EditorMiddleware marks requests carrying a valid Bearer token as editor
// requests. Other requests pass through unmarked.
func EditorMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := keySet(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if ok {
				if _, valid := validKeys[token]; valid {
					r = withEditor(r)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
