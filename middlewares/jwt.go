package middlewares

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/dispatch/internal"
)

type adminClaimsKey struct{}

// AdminClaims are the claims carried by admin bearer tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// AdminAuthConfig configures the admin bearer token middleware.
type AdminAuthConfig struct {
	Extractor internal.Extractor
	Issuer    string
	Audience  string
	Role      string
	Leeway    time.Duration
}

// AdminAuthOption configures AdminAuthConfig.
type AdminAuthOption func(*AdminAuthConfig)

// WithAdminExtractor sets the token extractor chain.
func WithAdminExtractor(ext internal.Extractor) AdminAuthOption {
	return func(cfg *AdminAuthConfig) {
		cfg.Extractor = ext
	}
}

// WithAdminIssuer requires the "iss" claim to match.
func WithAdminIssuer(iss string) AdminAuthOption {
	return func(cfg *AdminAuthConfig) {
		cfg.Issuer = iss
	}
}

// WithAdminAudience requires the "aud" claim to contain aud.
func WithAdminAudience(aud string) AdminAuthOption {
	return func(cfg *AdminAuthConfig) {
		cfg.Audience = aud
	}
}

// WithAdminRole requires the "role" claim to equal role.
func WithAdminRole(role string) AdminAuthOption {
	return func(cfg *AdminAuthConfig) {
		cfg.Role = role
	}
}

// WithAdminLeeway allows clock skew when checking exp and nbf.
func WithAdminLeeway(d time.Duration) AdminAuthOption {
	return func(cfg *AdminAuthConfig) {
		cfg.Leeway = d
	}
}

// AdminAuth validates an HS256 bearer token signed with secret and stores
// its claims in the context.
func AdminAuth(secret []byte, opts ...AdminAuthOption) internal.Middleware {
	cfg := &AdminAuthConfig{
		Extractor: internal.NewExtractor(internal.FromBearerToken()),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(parserOpts...)

	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			token, ok := cfg.Extractor.Extract(c)
			if !ok || token == "" {
				return internal.ErrUnauthorized("missing authentication token")
			}

			claims := &AdminClaims{}
			if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return internal.ErrUnauthorized("token expired", internal.WithError(err))
				}
				return internal.ErrUnauthorized("invalid token", internal.WithError(err))
			}

			if cfg.Role != "" && claims.Role != cfg.Role {
				return internal.ErrForbidden("insufficient role")
			}

			c.Set(adminClaimsKey{}, claims)

			return next(c)
		}
	}
}

// GetAdminClaims returns the claims stored by AdminAuth, or nil.
func GetAdminClaims(c internal.Context) *AdminClaims {
	v, _ := c.Get(adminClaimsKey{}).(*AdminClaims)
	return v
}
