// Package retry runs an operation with bounded, multiplicative backoff.
//
// A [Policy] retries a failing operation up to MaxRetries times after the
// first attempt. The delay before retry n (1-based) is
//
//	BaseDelay * Multiplier^(n-1)
//
// and is doubled when the previous error looks like a provider rate limit
// (see [IsRateLimited]). The loop is iterative, honors context cancellation
// and an optional overall deadline, and returns the last error once the
// budget is exhausted.
//
// # Usage
//
//	p := retry.New()
//	id, err := retry.Do(ctx, p, func(ctx context.Context) (string, error) {
//	    return sender.Send(ctx, email)
//	})
package retry
