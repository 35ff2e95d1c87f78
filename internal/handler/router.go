package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"appointment-scheduler/internal/middleware"
)

// RouterConfig carries what the router needs beyond the Handler itself.
// Health and Metrics are mounted when set.
type RouterConfig struct {
	CSRFSecret string
	Limiter    *middleware.RateLimiter
	Health     http.Handler
	Metrics    http.Handler
}

// Router wires every route behind the shared middleware stack.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(middleware.Recoverer(h.log))
	if h.m != nil {
		r.Use(middleware.Instrument(h.m))
	}
	r.Use(chimw.Timeout(60 * time.Second))

	if cfg.Health != nil {
		r.Method(http.MethodGet, "/healthz", cfg.Health)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(h.sessions, cfg.CSRFSecret, h.log))

		r.Get("/", h.Home)

		r.Route("/users", func(r chi.Router) {
			r.Get("/register", h.RegisterForm)
			r.Get("/login", h.LoginForm)
			r.Get("/logout", h.Logout)
			r.Group(func(r chi.Router) {
				if cfg.Limiter != nil {
					r.Use(middleware.RateLimit(cfg.Limiter))
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(h.sessions, h.log))
				r.Get("/profile", h.Profile)
				r.Post("/profile", h.UpdateProfile)
				r.Post("/delete", h.DeleteAccount)
			})
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.sessions, h.log))
			r.Get("/", h.ListAppointments)
			r.Post("/", h.CreateAppointment)
			r.Get("/new", h.NewAppointment)
			r.Get("/edit/{id}", h.EditAppointment)
			r.Post("/edit/{id}", h.UpdateAppointment)
			r.Post("/status/{id}", h.SetAppointmentStatus)
			r.Post("/delete/{id}", h.DeleteAppointment)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Use(middleware.RequireAuthAPI(h.sessions, h.log))
			r.Get("/search", h.SearchClients)
			r.Post("/", h.CreateClient)
		})
	})

	return r
}
