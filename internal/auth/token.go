package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("auth: no token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is the JWT body the admin panel accepts.
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens from a header or cookie.
type Verifier struct {
	secret []byte
	cookie string
}

// NewVerifier returns a Verifier.  cookie names the fallback cookie.
func NewVerifier(secret, cookie string) *Verifier {
	return &Verifier{secret: []byte(secret), cookie: cookie}
}

// Issue signs a token for p.  Used by tests and local tooling.
func (v *Verifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: p.Email,
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses raw and returns the principal it names.
func (v *Verifier) Verify(raw string) (*Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	p := &Principal{Email: claims.Email, Roles: claims.Roles, Token: raw}
	if claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: subject %q is not numeric", ErrInvalidToken, claims.Subject)
		}
		p.UserID = id
	}
	return p, nil
}

// FromRequest reads the bearer header, then the cookie, and verifies it.
func (v *Verifier) FromRequest(r *http.Request) (*Principal, error) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if c, err := r.Cookie(v.cookie); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return nil, ErrNoToken
	}
	return v.Verify(raw)
}
