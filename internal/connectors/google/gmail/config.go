package gmail

import (
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// DefaultUser addresses the authorised account.
const DefaultUser = "me"

// maxPageSize is the largest page messages.list accepts.
const maxPageSize = 500

// Config holds Gmail client configuration.
type Config struct {
	// User is the mailbox owner, "me" for the authorised account.
	User string
	// RequestsPerSecond and Burst size the client token bucket.
	RequestsPerSecond float64
	Burst             int
	// Timeout bounds each API call. Zero leaves the caller's deadline.
	Timeout time.Duration
}

// ConfigFrom converts the resolved application settings.
func ConfigFrom(cfg domain.GmailConfig) Config {
	c := Config{
		User:              cfg.User,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Timeout:           cfg.Timeout,
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	return c
}
