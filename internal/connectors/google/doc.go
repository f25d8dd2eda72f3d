// Package google provides the shared plumbing for the Gmail connector:
// OAuth configuration and a token source that persists refreshed tokens
// to the secret store, a token-bucket rate limiter with Retry-After
// backoff, a circuit breaker, and the mapping of Google API errors onto
// the domain error taxonomy.
//
// # Usage
//
//	store := google.NewTokenStore(secrets)
//	ts, err := google.NewTokenSource(ctx, google.OAuthConfig(id, secret, ""), store)
//	svc, err := google.NewGmailService(ctx, ts)
//
// The connector requests the gmail.modify scope so that processed daily
// reports can be marked read.
package google
