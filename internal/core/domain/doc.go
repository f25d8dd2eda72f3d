// Package domain holds guestmail's types and the rules that need no I/O:
// categories and their precedence, booking and digest validation, search
// filters, sync run bookkeeping and scheduled tasks.
//
// The main types are MailboxMessage (a fetched message with decoded body and
// headers), CategorizationRecord, SummaryRecord, UnsubscribeCandidate,
// ExtractedBooking, DailyDigest and SyncRun.
//
// Domain imports only the standard library. Every other package may import
// it; it imports none of them.
package domain
