package signature

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Header is the request header carrying the delivery token.
const Header = "Upstash-Signature"

const defaultIssuer = "Upstash"

// Claims is the token payload signed by the queue.
type Claims struct {
	jwt.RegisteredClaims
	Body string `json:"body"`
}

// Verifier checks delivery tokens against the current and next signing keys.
type Verifier struct {
	keys   [][]byte
	issuer string
	skew   time.Duration
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a Verifier. At least one key must be set.
func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	v := &Verifier{
		issuer: cfg.Issuer,
		skew:   cfg.ClockSkew,
		now:    time.Now,
	}
	if v.issuer == "" {
		v.issuer = defaultIssuer
	}
	for _, k := range []string{cfg.CurrentSigningKey, cfg.NextSigningKey} {
		if k != "" {
			v.keys = append(v.keys, []byte(k))
		}
	}
	if len(v.keys) == 0 {
		return nil, ErrNoKeys
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks token against body. When url is non-empty the token subject
// must match it. The current key is tried first, then the next key.
func (v *Verifier) Verify(token string, body []byte, url string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingSignature
	}

	var lastErr error
	for _, key := range v.keys {
		claims, err := v.parse(token, key)
		if err != nil {
			lastErr = err
			continue
		}
		if url != "" && claims.Subject != url {
			return ErrURLMismatch
		}
		if !bodyMatches(claims.Body, body) {
			return ErrBodyMismatch
		}
		return nil
	}

	return errors.Join(ErrInvalidSignature, lastErr)
}

func (v *Verifier) parse(token string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.skew),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// BodyHash returns the digest format used in the body claim.
func BodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func bodyMatches(claim string, body []byte) bool {
	return strings.TrimRight(claim, "=") == BodyHash(body)
}
