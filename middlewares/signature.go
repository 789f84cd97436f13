package middlewares

import (
	"log/slog"

	"github.com/dmitrymomot/dispatch/internal"
	"github.com/dmitrymomot/dispatch/pkg/signature"
)

// SignatureConfig configures the queue signature middleware.
type SignatureConfig struct {
	// URL, when set, must equal the token subject.
	URL    string
	Header string
}

// SignatureOption configures SignatureConfig.
type SignatureOption func(*SignatureConfig)

// WithSignatureURL requires the token subject to match url.
func WithSignatureURL(url string) SignatureOption {
	return func(cfg *SignatureConfig) {
		cfg.URL = url
	}
}

// WithSignatureHeader overrides the header carrying the token.
func WithSignatureHeader(header string) SignatureOption {
	return func(cfg *SignatureConfig) {
		cfg.Header = header
	}
}

// Signature rejects requests whose body is not signed by the queue. The
// next handler runs only after verification, so a rejected request has
// no side effects.
func Signature(v *signature.Verifier, opts ...SignatureOption) internal.Middleware {
	cfg := &SignatureConfig{Header: signature.Header}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			body, err := c.Body()
			if err != nil {
				return err
			}

			if err := v.Verify(c.Header(cfg.Header), body, cfg.URL); err != nil {
				c.LogWarn("signature rejected", slog.Any("error", err))
				return internal.ErrUnauthorized("invalid signature",
					internal.WithError(err),
					internal.WithErrorCode("invalid_signature"),
				)
			}

			return next(c)
		}
	}
}
