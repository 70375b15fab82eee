package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries unacceptable claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when an otherwise well-formed token has
	// passed its expiry.
	ErrTokenExpired = errors.New("token has expired")
)

// TokenProvider issues and verifies stateless HS256 bearer tokens bound to a
// single subject (user ID). Tokens carry iat and a fixed-offset exp and are
// never persisted; expiry is the only revocation mechanism.
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenProvider returns a TokenProvider signing with the given secret.
// issuer is set on claims and checked on verification. ttl is the fixed token
// lifetime (24h in production config).
func NewTokenProvider(secret []byte, issuer string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue signs a token for subjectID expiring ttl from now.
// Returns the token string and its expiration time.
func (p *TokenProvider) Issue(subjectID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		Issuer:    p.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	return token, expiresAt, err
}

// Verify parses and validates the token: signature first, then expiry, then
// claim shape. Returns the subject ID on success, ErrTokenExpired when only
// the expiry has passed, and ErrInvalidToken for every other failure.
func (p *TokenProvider) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
