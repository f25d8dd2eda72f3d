// Package services holds the ingestion pipeline and the read side built on it.
//
// SyncCoordinator fetches unread mail and runs each message through the
// classifier, the booking extractor, the summariser and the unsubscribe
// detector. InboxService answers list, search and summary requests over what
// the coordinator stored. Scheduler runs the coordinator periodically for the
// serve command.
//
// Inference, storage and the mailbox are reached only through driven ports,
// and every model-backed stage has a deterministic fallback.
package services
