// Package resilience provides retry with exponential backoff and a circuit
// breaker for calls to external services.
//
// Token renewal retries transient failures and stops at the first permanent
// one:
//
//	tok, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (*oauth2.Token, error) {
//	    tok, err := src.Token()
//	    if isInvalidGrant(err) {
//	        return nil, resilience.Permanent(err)
//	    }
//	    return tok, err
//	})
//
// Pollers guard remote APIs with a Breaker so a failing endpoint is skipped
// for a cool-down period instead of being hit on every tick.
package resilience
