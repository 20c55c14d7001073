package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SocketAuth mints and validates the short-lived HMAC tokens that gate
// WebSocket upgrades.
type SocketAuth struct {
	secret []byte
	ttl    time.Duration
}

func NewSocketAuth(secret string, ttl time.Duration) *SocketAuth {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SocketAuth{secret: []byte(secret), ttl: ttl}
}

type SocketClaims struct {
	jwt.RegisteredClaims
}

// Mint issues a token whose subject is the user identity.
func (a *SocketAuth) Mint(userID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.ttl)
	claims := SocketClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseFromRequest accepts the token either as a ?token= query parameter
// (browser WebSocket clients cannot set headers) or as a bearer header.
func (a *SocketAuth) ParseFromRequest(r *http.Request) (string, error) {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return a.parse(tok)
	}
	if hdr := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return a.parse(strings.TrimSpace(hdr[7:]))
	}
	return "", errors.New("missing token")
}

func (a *SocketAuth) parse(tok string) (string, error) {
	claims := &SocketClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}
