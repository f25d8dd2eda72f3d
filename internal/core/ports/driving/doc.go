// Package driving declares what the CLI, the HTTP API and the MCP server may
// ask of the core:
//
//   - SyncService: run a mailbox sync, sync digests, report progress and history
//   - InboxService: browse categorised mail, summaries, bookings and unsubscribe suggestions
//   - Scheduler: periodic syncs for the serve command
//
// The services package implements all three. Adapters hold these interfaces,
// never the concrete services.
package driving
