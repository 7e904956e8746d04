// Package apitoken issues and validates the HMAC-signed bearer tokens that
// guard the HTTP API when token auth is enabled.
package apitoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gdrive-files"

var (
	// ErrInvalidToken is returned for malformed tokens, bad signatures and
	// tokens signed with a different algorithm.
	ErrInvalidToken = errors.New("apitoken: invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("apitoken: token has expired")
)

// Claims are the claims carried by an API token.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and validates tokens with one secret and algorithm.
type Manager struct {
	secret  []byte
	method  jwt.SigningMethod
	nowFunc func() time.Time
}

// New returns a Manager for the given secret and algorithm name
// (HS256, HS384 or HS512).
func New(secret, algorithm string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("apitoken: secret key is empty")
	}

	method, err := signingMethod(algorithm)
	if err != nil {
		return nil, err
	}

	return &Manager{secret: []byte(secret), method: method, nowFunc: time.Now}, nil
}

// Algorithms lists the accepted algorithm names.
func Algorithms() []string {
	return []string{"HS256", "HS384", "HS512"}
}

func signingMethod(name string) (jwt.SigningMethod, error) {
	switch name {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("apitoken: unsupported algorithm %q (want one of %v)", name, Algorithms())
	}
}

// Issue returns a signed token for subject that expires after ttl.
func (m *Manager) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("apitoken: ttl must be positive, got %s", ttl)
	}

	now := m.nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("apitoken: signing token: %w", err)
	}

	return signed, nil
}

// Validate checks the signature, algorithm, issuer and time claims of
// tokenString and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}

		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
