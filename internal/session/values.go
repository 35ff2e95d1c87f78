package session

import (
	"encoding/gob"

	"github.com/gorilla/sessions"

	"appointment-scheduler/internal/auth"
	"appointment-scheduler/internal/model"
)

const (
	keyUserID   = "user_id"
	keyUsername = "username"
	keyNonce    = "csrf_nonce"
)

// flashes are stored as []interface{}
func init() {
	gob.Register([]interface{}{})
}

func SetIdentity(sess *sessions.Session, id model.Identity) {
	sess.Values[keyUserID] = id.UserID
	sess.Values[keyUsername] = id.Username
}

// IdentityOf reports the logged-in user, if any.
func IdentityOf(sess *sessions.Session) (model.Identity, bool) {
	uid, _ := sess.Values[keyUserID].(string)
	if uid == "" {
		return model.Identity{}, false
	}
	name, _ := sess.Values[keyUsername].(string)
	return model.Identity{UserID: uid, Username: name}, true
}

// Nonce returns the session's anti-forgery nonce, creating one if needed.
// created reports whether the session must be saved.
func Nonce(sess *sessions.Session) (nonce string, created bool, err error) {
	if n, ok := sess.Values[keyNonce].(string); ok && n != "" {
		return n, false, nil
	}
	n, err := auth.GenerateNonce()
	if err != nil {
		return "", false, err
	}
	sess.Values[keyNonce] = n
	return n, true, nil
}

// PeekNonce returns the nonce without creating one.
func PeekNonce(sess *sessions.Session) string {
	n, _ := sess.Values[keyNonce].(string)
	return n
}

// Flashes pops pending flash messages.
func Flashes(sess *sessions.Session) []string {
	var out []string
	for _, f := range sess.Flashes() {
		if s, ok := f.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
