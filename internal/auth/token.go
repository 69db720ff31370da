package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indicates a token that is malformed, expired or badly signed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret indicates an issuer built without a signing secret.
	ErrMissingSecret = errors.New("signing secret is required")
)

// Session is the identity carried by a token: who is signed in and which
// company they are viewing. Company is empty until one is selected.
type Session struct {
	Login   string `json:"login"`
	Company string `json:"company,omitempty"`
}

// Token is a signed session token and its expiry.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claims struct {
	Company string `json:"company,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for s.
func (i *Issuer) Issue(s Session) (Token, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	c := claims{
		Company: s.Company,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Login,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}
	return Token{Token: signed, ExpiresAt: exp}, nil
}

// Parse validates raw and returns its session.
func (i *Issuer) Parse(raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{Login: c.Subject, Company: c.Company}, nil
}
