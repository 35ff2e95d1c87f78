// Package session provides a server-side gorilla/sessions store. The cookie
// carries only a signed opaque id; values live in a Backend.
package session

import (
	"encoding/base32"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// CookieName is the session cookie's name.
const CookieName = "scheduler_session"

// Store implements sessions.Store.
type Store struct {
	backend Backend
	codecs  []securecookie.Codec
	ttl     time.Duration
	log     *zap.Logger

	Options *sessions.Options
}

var _ sessions.Store = (*Store)(nil)

// NewStore signs cookie ids with secret. Cookies are HttpOnly and SameSite=Lax;
// secure adds the Secure flag.
func NewStore(backend Backend, secret []byte, ttl time.Duration, secure bool, log *zap.Logger) *Store {
	codecs := securecookie.CodecsFromPairs(secret)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(int(ttl.Seconds()))
		}
	}
	return &Store{
		backend: backend,
		codecs:  codecs,
		ttl:     ttl,
		log:     log.Named("session"),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns the request's session, cached in the request registry.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, forged or
// expired cookie yields a fresh session and no error.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		s.log.Debug("rejected session cookie", zap.Error(err))
		return sess, nil
	}

	data, err := s.backend.Load(r.Context(), id)
	if errors.Is(err, ErrNoSession) {
		return sess, nil
	}
	if err != nil {
		return sess, err
	}
	if err := (securecookie.GobEncoder{}).Deserialize(data, &sess.Values); err != nil {
		s.log.Warn("undecodable session payload", zap.Error(err))
		return sess, nil
	}
	sess.ID = id
	sess.IsNew = false
	return sess, nil
}

// Save persists sess and writes its cookie. A negative MaxAge destroys it.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.backend.Delete(r.Context(), sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		sess.ID = newSessionID()
	}
	data, err := (securecookie.GobEncoder{}).Serialize(sess.Values)
	if err != nil {
		return err
	}
	if err := s.backend.Save(r.Context(), sess.ID, data, s.ttl); err != nil {
		return err
	}
	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

// Rotate drops the stored record so the next Save issues a new id. Values
// are kept.
func (s *Store) Rotate(r *http.Request, sess *sessions.Session) error {
	if sess.ID != "" {
		if err := s.backend.Delete(r.Context(), sess.ID); err != nil {
			return err
		}
	}
	sess.ID = ""
	sess.IsNew = true
	return nil
}

// Destroy removes sess from the backend and expires the cookie.
func (s *Store) Destroy(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	sess.Options.MaxAge = -1
	sess.Values = map[interface{}]interface{}{}
	return s.Save(r, w, sess)
}

func newSessionID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}
