package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt work factor for stored passwords.
const HashCost = 10

// CSRFTokenTTL matches the session lifetime.
const CSRFTokenTTL = 24 * time.Hour

var ErrBadToken = errors.New("invalid token")

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), HashCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// CSRFClaims binds an anti-forgery token to one session's nonce.
type CSRFClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

func MakeCSRFToken(nonce, secret string) (string, error) {
	now := time.Now()
	c := CSRFClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(CSRFTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseCSRFToken(raw, secret string) (*CSRFClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &CSRFClaims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*CSRFClaims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	return c, nil
}

// VerifyCSRFToken checks raw was issued for nonce.
func VerifyCSRFToken(raw, nonce, secret string) error {
	if raw == "" || nonce == "" {
		return ErrBadToken
	}
	c, err := ParseCSRFToken(raw, secret)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(c.Nonce), []byte(nonce)) != 1 {
		return ErrBadToken
	}
	return nil
}

// GenerateNonce returns 32 random bytes hex encoded.
func GenerateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
