package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"appointment-scheduler/internal/middleware"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{"login", "register", "profile", "appointments", "appointment_form"}

var funcs = template.FuncMap{
	"statusLabel": model.StatusLabel,
	"statuses":    model.Statuses,
	"clock":       model.FormatClock,
	// DD/MM/YYYY for display; stored values are never touched
	"date": func(d civil.Date) string {
		return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
	},
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func staticHandler() http.Handler {
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// page is what every template receives.
type page struct {
	Title   string
	User    *model.Identity
	CSRF    string
	Flashes []string
	Error   string
	Data    any
}

// render writes the named page with status code. Pending flashes are popped
// into the page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, name string, p page) {
	t, ok := h.views.pages[name]
	if !ok {
		h.log.Error("unknown view", zap.String("view", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p.CSRF = middleware.CSRFTokenFrom(r.Context())
	sess := h.session(r)
	if id, ok := session.IdentityOf(sess); ok {
		p.User = &id
	}
	if flashes := session.Flashes(sess); len(flashes) > 0 {
		p.Flashes = flashes
		h.save(w, r, sess)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		h.log.Error("template failed", zap.String("view", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}
