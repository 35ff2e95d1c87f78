package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"appointment-scheduler/internal/auth"
	"appointment-scheduler/internal/session"
)

// CSRFField is the form field that carries the anti-forgery token.
const CSRFField = "_csrf"

var csrfHeaders = []string{"CSRF-Token", "X-CSRF-Token"}

const msgBadCSRF = "Token de segurança inválido. Recarregue a página e tente novamente."

// CSRFTokenFrom returns the token CSRF minted for the current request.
func CSRFTokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(CSRFTokenKey).(string)
	return tok
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func csrfFromRequest(r *http.Request) string {
	for _, h := range csrfHeaders {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	return r.PostFormValue(CSRFField)
}

// CSRF binds every session to a random nonce and rejects unsafe requests
// that do not present a token signed for it. Safe requests get a fresh token
// in their context for the views to embed.
func CSRF(store *session.Store, secret string, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Get(r, session.CookieName)
			if err != nil {
				log.Warn("session load failed", zap.Error(err))
			}

			if !safeMethod(r.Method) {
				if err := auth.VerifyCSRFToken(csrfFromRequest(r), session.PeekNonce(sess), secret); err != nil {
					log.Info("csrf rejected", zap.String("path", r.URL.Path), zap.Error(err))
					if WantsJSON(r) {
						writeJSONError(w, http.StatusForbidden, msgBadCSRF)
					} else {
						http.Error(w, msgBadCSRF, http.StatusForbidden)
					}
					return
				}
			}

			nonce, created, err := session.Nonce(sess)
			if err != nil {
				log.Error("nonce generation failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if created {
				if err := store.Save(r, w, sess); err != nil {
					log.Error("session save failed", zap.Error(err))
				}
			}
			tok, err := auth.MakeCSRFToken(nonce, secret)
			if err != nil {
				log.Error("csrf token signing failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), CSRFTokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
