// Package signature verifies signed webhook deliveries from a message queue.
//
// The queue signs every delivery with an HS256 JWT carried in the
// Upstash-Signature header. The token's claims bind the delivery to the
// destination URL (sub), an issuer (iss), a validity window (nbf/exp) and a
// digest of the raw request body (body = base64url(sha256(body))).
//
// Two signing keys are configured so that keys can be rotated without
// dropping deliveries: a token is accepted if it verifies under the current
// key or, failing that, under the next key.
//
// # Usage
//
//	v, err := signature.NewVerifier(signature.Config{
//	    CurrentSigningKey: os.Getenv("QSTASH_CURRENT_SIGNING_KEY"),
//	    NextSigningKey:    os.Getenv("QSTASH_NEXT_SIGNING_KEY"),
//	})
//	if err := v.Verify(r.Header.Get(signature.Header), body, ""); err != nil {
//	    // reject
//	}
package signature
