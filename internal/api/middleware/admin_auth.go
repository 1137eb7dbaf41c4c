package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"

	"github.com/jlcilliers/cvchat/internal/api"
	"github.com/jlcilliers/cvchat/internal/domain"
)

type contextKey string

// AdminAuth admits requests carrying the configured admin token as a bearer
// token, an X-Admin-Token header, or a "token" form field. An empty
// configured token rejects every request.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validAdminToken(token, presentedToken(r)) {
				api.HandleError(w, domain.ErrInvalidAdminToken)
				return
			}

			markAdmin(r)
			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.Scope().SetTag("admin", "true")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if header := r.Header.Get("X-Admin-Token"); header != "" {
		return header
	}
	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.FormValue("token")
	}
	return ""
}

func validAdminToken(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
