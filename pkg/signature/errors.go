package signature

import "errors"

var (
	// ErrMissingSignature is returned when no token was supplied.
	ErrMissingSignature = errors.New("signature: missing signature")

	// ErrInvalidSignature is returned when the token fails verification under every key.
	ErrInvalidSignature = errors.New("signature: invalid signature")

	// ErrBodyMismatch is returned when the token's body digest does not match the payload.
	ErrBodyMismatch = errors.New("signature: body hash mismatch")

	// ErrURLMismatch is returned when the token was issued for another destination.
	ErrURLMismatch = errors.New("signature: url mismatch")

	// ErrNoKeys is returned when neither signing key is configured.
	ErrNoKeys = errors.New("signature: no signing keys configured")
)
