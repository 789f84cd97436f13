package signature_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dispatch/pkg/signature"
)

const (
	currentKey = "sig_current_key"
	nextKey    = "sig_next_key"
)

func newVerifier(t *testing.T) *signature.Verifier {
	t.Helper()
	v, err := signature.NewVerifier(signature.Config{
		CurrentSigningKey: currentKey,
		NextSigningKey:    nextKey,
		ClockSkew:         time.Second,
	})
	require.NoError(t, err)
	return v
}

func TestVerifier_AcceptsCurrentAndNextKeys(t *testing.T) {
	t.Parallel()

	v := newVerifier(t)
	body := []byte(`{"type":"send_draft","draftId":42}`)

	for _, key := range []string{currentKey, nextKey} {
		token, err := signature.NewSigner(key, "").Sign(body, "https://example.com/api/queue/dispatch", time.Minute)
		require.NoError(t, err)
		require.NoError(t, v.Verify(token, body, "https://example.com/api/queue/dispatch"), "key %s", key)
		require.NoError(t, v.Verify(token, body, ""), "url check skipped when empty")
	}
}

func TestVerifier_Rejects(t *testing.T) {
	t.Parallel()

	v := newVerifier(t)
	body := []byte(`{"type":"send_draft","draftId":42}`)
	url := "https://example.com/api/queue/dispatch"

	valid, err := signature.NewSigner(currentKey, "").Sign(body, url, time.Minute)
	require.NoError(t, err)

	foreign, err := signature.NewSigner("some_other_key", "").Sign(body, url, time.Minute)
	require.NoError(t, err)

	expired, err := signature.NewSigner(currentKey, "").Sign(body, url, -time.Minute)
	require.NoError(t, err)

	wrongIssuer, err := signature.NewSigner(currentKey, "Someone").Sign(body, url, time.Minute)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, signature.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "Upstash",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Body: signature.BodyHash(body),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		body  []byte
		url   string
		want  error
	}{
		{"missing", "", body, url, signature.ErrMissingSignature},
		{"garbage", "not-a-jwt", body, url, signature.ErrInvalidSignature},
		{"unknown key", foreign, body, url, signature.ErrInvalidSignature},
		{"expired", expired, body, url, signature.ErrInvalidSignature},
		{"wrong issuer", wrongIssuer, body, url, signature.ErrInvalidSignature},
		{"alg none", noneAlg, body, url, signature.ErrInvalidSignature},
		{"tampered body", valid, []byte(`{"type":"send_draft","draftId":43}`), url, signature.ErrBodyMismatch},
		{"other destination", valid, body, "https://evil.example.com/hook", signature.ErrURLMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Verify(tt.token, tt.body, tt.url)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_ClockSkew(t *testing.T) {
	t.Parallel()

	body := []byte(`{}`)
	token, err := signature.NewSigner(currentKey, "").Sign(body, "", time.Minute)
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Minute)
	v, err := signature.NewVerifier(
		signature.Config{CurrentSigningKey: currentKey, ClockSkew: time.Second},
		signature.WithClock(func() time.Time { return future }),
	)
	require.NoError(t, err)
	require.ErrorIs(t, v.Verify(token, body, ""), signature.ErrInvalidSignature)
}

func TestNewVerifier_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := signature.NewVerifier(signature.Config{})
	require.ErrorIs(t, err, signature.ErrNoKeys)
}

func TestBodyHash_URLSafeWithoutPadding(t *testing.T) {
	t.Parallel()

	body := []byte("hello")
	hash := signature.BodyHash(body)
	assert.NotContains(t, hash, "=")
	assert.NotContains(t, hash, "+")
	assert.NotContains(t, hash, "/")
}
