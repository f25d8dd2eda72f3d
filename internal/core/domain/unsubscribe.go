package domain

import (
	"fmt"
	"strings"
	"time"
)

// DetectionMethod records how an unsubscribe signal was found.
type DetectionMethod string

// Detection methods in priority order.
const (
	DetectionHeader    DetectionMethod = "header"
	DetectionBodyLink  DetectionMethod = "body_link"
	DetectionHeuristic DetectionMethod = "content_heuristic"
)

// UnsubscribeStatus is the operator-controlled state of a candidate.
type UnsubscribeStatus string

// Unsubscribe statuses.
const (
	UnsubscribeSuggested    UnsubscribeStatus = "suggested"
	UnsubscribeDismissed    UnsubscribeStatus = "dismissed"
	UnsubscribeUnsubscribed UnsubscribeStatus = "unsubscribed"
	UnsubscribeKept         UnsubscribeStatus = "kept"
)

// IsValid returns true if the status is recognised.
func (s UnsubscribeStatus) IsValid() bool {
	switch s {
	case UnsubscribeSuggested, UnsubscribeDismissed, UnsubscribeUnsubscribed, UnsubscribeKept:
		return true
	default:
		return false
	}
}

// ParseUnsubscribeStatus converts a string to an UnsubscribeStatus.
func ParseUnsubscribeStatus(s string) (UnsubscribeStatus, error) {
	v := UnsubscribeStatus(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("%w: unknown unsubscribe status %q", ErrInvalidInput, s)
	}
	return v, nil
}

// SignalKind is the tri-state outcome of unsubscribe detection.
type SignalKind int

// Signal kinds.
const (
	SignalNone SignalKind = iota
	SignalLinkWithURL
	SignalHeuristicOnly
)

// UnsubscribeSignal is the result of running the detector over a message.
type UnsubscribeSignal struct {
	Kind   SignalKind
	Method DetectionMethod
	URL    string
}

// Found returns true unless the signal is SignalNone.
func (s UnsubscribeSignal) Found() bool {
	return s.Kind != SignalNone
}

// UnsubscribeCandidate is a persisted unsubscribe suggestion for one message.
// Candidates are never deleted; status changes only via operator action.
type UnsubscribeCandidate struct {
	ID         string
	MessageID  string
	Sender     string
	Method     DetectionMethod
	URL        string
	Status     UnsubscribeStatus
	LastSeenAt time.Time
	ActionAt   time.Time
	CreatedAt  time.Time
}

// DefaultUnsubscribeLimit is the default page size for suggestions.
const DefaultUnsubscribeLimit = 20
