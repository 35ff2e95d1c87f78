package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"appointment-scheduler/internal/model"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *MemoryBackend) {
	b := NewMemoryBackend(ttl)
	return NewStore(b, testSecret, ttl, false, zaptest.NewLogger(t)), b
}

// roundTrip saves sess and returns a request carrying the resulting cookie.
func roundTrip(t *testing.T, s *Store, sess *sessions.Session) (*http.Request, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.Save(httptest.NewRequest(http.MethodGet, "/", nil), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req, cookies[0]
}

func TestStoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	sess, err := s.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	assert.True(t, sess.IsNew)

	SetIdentity(sess, model.Identity{UserID: "u-1", Username: "alice"})
	sess.AddFlash("Cadastro realizado com sucesso! Faça login.")
	req, cookie := roundTrip(t, s, sess)

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.NotContains(t, cookie.Value, "alice")

	got, err := s.New(req, CookieName)
	require.NoError(t, err)
	assert.False(t, got.IsNew)
	assert.Equal(t, sess.ID, got.ID)

	id, ok := IdentityOf(got)
	require.True(t, ok)
	assert.Equal(t, model.Identity{UserID: "u-1", Username: "alice"}, id)
	assert.Equal(t, []string{"Cadastro realizado com sucesso! Faça login."}, Flashes(got))
	assert.Empty(t, Flashes(got))
}

func TestStoreSecureFlag(t *testing.T) {
	s := NewStore(NewMemoryBackend(time.Hour), testSecret, time.Hour, true, zaptest.NewLogger(t))
	sess, err := s.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	_, cookie := roundTrip(t, s, sess)
	assert.True(t, cookie.Secure)
}

func TestStoreRejectsForgedCookie(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	other := NewStore(NewMemoryBackend(time.Hour), []byte("another-secret-another-secret-xx"), time.Hour, false, zaptest.NewLogger(t))

	sess, err := other.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	SetIdentity(sess, model.Identity{UserID: "u-1", Username: "alice"})
	req, _ := roundTrip(t, other, sess)

	got, err := s.New(req, CookieName)
	require.NoError(t, err)
	assert.True(t, got.IsNew)
	_, ok := IdentityOf(got)
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	s, _ := newTestStore(t, 50*time.Millisecond)
	sess, err := s.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	SetIdentity(sess, model.Identity{UserID: "u-1", Username: "alice"})
	req, _ := roundTrip(t, s, sess)

	time.Sleep(100 * time.Millisecond)

	got, err := s.New(req, CookieName)
	require.NoError(t, err)
	_, ok := IdentityOf(got)
	assert.False(t, ok)
}

func TestStoreRotate(t *testing.T) {
	s, b := newTestStore(t, time.Hour)
	sess, err := s.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	sess.Values["k"] = "v"
	req, _ := roundTrip(t, s, sess)
	oldID := sess.ID

	require.NoError(t, s.Rotate(req, sess))
	_, err = b.Load(context.Background(), oldID)
	assert.ErrorIs(t, err, ErrNoSession)

	req, _ = roundTrip(t, s, sess)
	assert.NotEqual(t, oldID, sess.ID)

	got, err := s.New(req, CookieName)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Values["k"])
}

func TestStoreDestroy(t *testing.T) {
	s, b := newTestStore(t, time.Hour)
	sess, err := s.New(httptest.NewRequest(http.MethodGet, "/", nil), CookieName)
	require.NoError(t, err)
	SetIdentity(sess, model.Identity{UserID: "u-1", Username: "alice"})
	req, _ := roundTrip(t, s, sess)
	id := sess.ID

	rec := httptest.NewRecorder()
	require.NoError(t, s.Destroy(req, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)

	_, err = b.Load(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoSession)

	got, err := s.New(req, CookieName)
	require.NoError(t, err)
	_, ok := IdentityOf(got)
	assert.False(t, ok)
}

func TestNonce(t *testing.T) {
	sess := sessions.NewSession(nil, CookieName)
	assert.Empty(t, PeekNonce(sess))

	n, created, err := Nonce(sess)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, n, 64)

	again, created, err := Nonce(sess)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, n, again)
	assert.Equal(t, n, PeekNonce(sess))
}
