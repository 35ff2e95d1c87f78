package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"appointment-scheduler/internal/apperr"
	"appointment-scheduler/internal/metrics"
	"appointment-scheduler/internal/middleware"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/service"
	"appointment-scheduler/internal/session"
)

type Handler struct {
	auth     *service.AuthService
	ledger   *service.Ledger
	dir      *service.Directory
	sessions *session.Store
	views    *views
	m        *metrics.Metrics
	log      *zap.Logger
}

func New(
	authSvc *service.AuthService,
	ledger *service.Ledger,
	dir *service.Directory,
	sessions *session.Store,
	m *metrics.Metrics,
	log *zap.Logger,
) (*Handler, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Handler{
		auth:     authSvc,
		ledger:   ledger,
		dir:      dir,
		sessions: sessions,
		views:    v,
		m:        m,
		log:      log.Named("http"),
	}, nil
}

// identity is only valid behind RequireAuth.
func identity(r *http.Request) model.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}

func (h *Handler) session(r *http.Request) *sessions.Session {
	sess, err := h.sessions.Get(r, session.CookieName)
	if err != nil {
		h.log.Warn("session load failed", zap.Error(err))
	}
	return sess
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := h.sessions.Save(r, w, sess); err != nil {
		h.log.Error("session save failed", zap.Error(err))
	}
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, msg string) {
	sess := h.session(r)
	sess.AddFlash(msg)
	h.save(w, r, sess)
}

func (h *Handler) authEvent(event string) {
	if h.m != nil {
		h.m.AuthEvents.WithLabelValues(event).Inc()
	}
}

// statusFor maps a service error to the response code of a re-rendered form
// or JSON error.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type jsonError struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSONErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), jsonError{Error: apperr.Message(err), Details: apperr.Details(err)})
}
