package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ZhiShengYuan/SearchGram/internal/logging"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims a Middleware attached
// to the request context, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return c, ok
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:   "unauthorized",
		Message: err.Error(),
	})
}

// Middleware returns a chi-compatible HTTP middleware that verifies the
// Authorization: Bearer <token> header against v, rejecting with a
// JSON 401 on any failure and otherwise attaching the parsed claims to
// the request context.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeUnauthorized(w, errors.New("missing bearer token"))
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, prefix))

			claims, err := v.Verify(token)
			if err != nil {
				logging.Warnf("auth: rejected request to %s: %v", r.URL.Path, err)
				writeUnauthorized(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
