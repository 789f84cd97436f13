package signature

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer produces delivery tokens in the queue's format.
// It is used to self-sign deliveries in development and in tests.
type Signer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewSigner creates a Signer for key.
func NewSigner(key, issuer string) *Signer {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Signer{key: []byte(key), issuer: issuer, now: time.Now}
}

// Sign returns a token valid for ttl binding body and url.
func (s *Signer) Sign(body []byte, url string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   url,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Body: BodyHash(body),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
