package middleware

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"appointment-scheduler/internal/metrics"
	"appointment-scheduler/internal/model"
	"appointment-scheduler/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newSessions(t *testing.T) *session.Store {
	return session.NewStore(session.NewMemoryBackend(time.Hour), []byte(testSecret), time.Hour, false, zaptest.NewLogger(t))
}

// loggedIn returns a cookie for a saved session carrying id.
func loggedIn(t *testing.T, store *session.Store, id model.Identity) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.New(req, session.CookieName)
	require.NoError(t, err)
	session.SetIdentity(sess, id)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, sess))
	return rec.Result().Cookies()[0]
}

func TestRequireAuth(t *testing.T) {
	store := newSessions(t)
	var seen model.Identity
	h := RequireAuth(store, zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("browser redirected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	})

	t.Run("json unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/clients/search?term=a", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Autenticação necessária"}`, rec.Body.String())
	})

	t.Run("identity attached", func(t *testing.T) {
		want := model.Identity{UserID: "u-1", Username: "alice"}
		req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
		req.AddCookie(loggedIn(t, store, want))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, want, seen)
	})
}

func TestCSRF(t *testing.T) {
	store := newSessions(t)
	h := CSRF(store, testSecret, zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, CSRFTokenFrom(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	cookie := cookies[0]

	post := func(form url.Values, header string, c *http.Cookie) int {
		req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set("X-CSRF-Token", header)
		}
		if c != nil {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, post(url.Values{"username": {"alice"}}, "", cookie))
	assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {"forged"}}, "", cookie))
	assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {token}}, "", nil), "token without its session")
	assert.Equal(t, http.StatusOK, post(url.Values{CSRFField: {token}}, "", cookie))
	assert.Equal(t, http.StatusOK, post(url.Values{}, token, cookie))

	// a token minted for another session does not transfer
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	otherToken := rec.Body.String()
	assert.Equal(t, http.StatusForbidden, post(url.Values{CSRFField: {otherToken}}, "", cookie))
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := metrics.New()
	rl := NewRateLimiter(ctx, 0.001, 2, m)
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2:1111"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimited.WithLabelValues("http")))
}

func TestRateLimiterSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 1, 1, nil)
	rl.Allow("10.0.0.1", "http")
	rl.sweep(0)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.clients)
}

func TestUnaryRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, 0.001, 1, nil)
	icpt := UnaryRateLimit(rl)

	pctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.9"), Port: 5000}})
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	next := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	resp, err := icpt(pctx, nil, info, next)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = icpt(pctx, nil, info, next)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/appointments/edit/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/appointments/edit/"+id, nil))
	}
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Requests.WithLabelValues("/appointments/edit/{id}", http.MethodGet, "200")))
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsJSON(req))
	req.Header.Set("Accept", "application/json, text/plain")
	assert.True(t, WantsJSON(req))
}

func TestRequireAuthAPI(t *testing.T) {
	h := RequireAuthAPI(newSessions(t), zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients/search?term=a", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
