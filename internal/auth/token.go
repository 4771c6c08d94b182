// Package auth issues and verifies the signed identity tokens carried in the
// Authorization header, and hashes account passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the validity window of a freshly issued token.
const DefaultTTL = 30 * 24 * time.Hour

// ErrInvalidToken covers every verification failure: malformed input, a bad
// signature and an expired token are indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload recovered from a verified token.
type Claims struct {
	CallerID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs tokens with an HMAC-SHA256 server secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	// Now is the clock used for issuing and expiry checks. Tests replace it.
	Now func() time.Time
}

func NewCodec(secret []byte, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: secret, ttl: ttl, Now: time.Now}
}

// Issue returns a token identifying callerID, valid for the codec's TTL.
func (c *Codec) Issue(callerID string) (string, error) {
	if callerID == "" {
		return "", errors.New("issue token: empty caller id")
	}
	now := c.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   callerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity window of raw and returns its
// claims. Any failure yields ErrInvalidToken.
func (c *Codec) Verify(raw string) (Claims, error) {
	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &registered, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.Now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if registered.Subject == "" || registered.IssuedAt == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		CallerID:  registered.Subject,
		IssuedAt:  registered.IssuedAt.Time,
		ExpiresAt: registered.ExpiresAt.Time,
	}, nil
}
