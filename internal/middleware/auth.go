package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/session"
)

type ctxKey string

const (
	IdentityKey  ctxKey = "identity"
	CSRFTokenKey ctxKey = "csrf"
)

// LoginPath is where browsers without a session are sent.
const LoginPath = "/users/login"

const msgAuthRequired = "Autenticação necessária"

// IdentityFrom returns the identity RequireAuth attached to ctx.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(model.Identity)
	return id, ok
}

// WantsJSON reports whether the caller expects a JSON response rather than
// a page.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// RequireAuth lets through requests whose session carries an identity.
// Others get a redirect to the login page, or 401 for JSON callers.
func RequireAuth(store *session.Store, log *zap.Logger) func(http.Handler) http.Handler {
	return requireAuth(store, log, false)
}

// RequireAuthAPI is RequireAuth for JSON-only routes: always 401, never a
// redirect.
func RequireAuthAPI(store *session.Store, log *zap.Logger) func(http.Handler) http.Handler {
	return requireAuth(store, log, true)
}

func requireAuth(store *session.Store, log *zap.Logger, api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Get(r, session.CookieName)
			if err != nil {
				log.Warn("session load failed", zap.Error(err))
			}
			var (
				id model.Identity
				ok bool
			)
			if sess != nil {
				id, ok = session.IdentityOf(sess)
			}
			if !ok {
				if api || WantsJSON(r) {
					writeJSONError(w, http.StatusUnauthorized, msgAuthRequired)
					return
				}
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
