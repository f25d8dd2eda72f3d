package mcp

import (
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Inbox answers queries over processed mail.
	Inbox driving.InboxService

	// Sync runs mailbox ingestion. Optional; sync tools fail without it.
	Sync driving.SyncService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Inbox == nil {
		return ErrMissingInboxService
	}
	return nil
}
