// Package mcp provides an MCP (Model Context Protocol) server adapter for guestmail.
// It lets AI assistants browse categorised mail, curate categories and
// unsubscribe suggestions, and trigger mailbox syncs.
package mcp

import "errors"

var (
	// ErrMissingInboxService is returned when the inbox service is not provided.
	ErrMissingInboxService = errors.New("mcp: inbox service is required")

	// ErrSyncUnavailable is returned by sync tools when no sync service is wired.
	ErrSyncUnavailable = errors.New("mcp: sync service is not configured")
)
