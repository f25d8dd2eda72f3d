package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

var (
	headerURLPattern    = regexp.MustCompile(`<(https?://[^>]+)>`)
	headerMailtoPattern = regexp.MustCompile(`<(mailto:[^>]+)>`)

	// Evaluated in order; the first capture wins.
	bodyLinkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<a[^>]+href=["'](https?://[^"']+unsubscribe[^"']*)`),
		regexp.MustCompile(`(?i)unsubscribe.*?(https?://[^\s<>"]+)`),
		regexp.MustCompile(`(?i)(https?://[^\s<>"]*unsubscribe[^\s<>"]*)`),
	}

	heuristicPhrases = []string{
		"newsletter",
		"promotional",
		"marketing",
		"this email was sent to",
		"unsubscribe",
		"opt out",
		"manage your preferences",
	}
)

// UnsubscribeDetector finds unsubscribe signals in a message. It performs
// no I/O.
type UnsubscribeDetector struct{}

// NewUnsubscribeDetector creates a detector.
func NewUnsubscribeDetector() *UnsubscribeDetector {
	return &UnsubscribeDetector{}
}

// Detect returns the strongest signal in msg: the List-Unsubscribe header
// (an http link over a mailto), then an in-body link, then content heuristics.
func (d *UnsubscribeDetector) Detect(msg *domain.MailboxMessage) domain.UnsubscribeSignal {
	if m := headerURLPattern.FindStringSubmatch(msg.ListUnsubscribe); m != nil {
		return domain.UnsubscribeSignal{Kind: domain.SignalLinkWithURL, Method: domain.DetectionHeader, URL: m[1]}
	}
	if m := headerMailtoPattern.FindStringSubmatch(msg.ListUnsubscribe); m != nil {
		return domain.UnsubscribeSignal{Kind: domain.SignalLinkWithURL, Method: domain.DetectionHeader, URL: m[1]}
	}

	for _, link := range msg.UnsubscribeLinks {
		if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
			return domain.UnsubscribeSignal{Kind: domain.SignalLinkWithURL, Method: domain.DetectionBodyLink, URL: link}
		}
	}
	for _, pattern := range bodyLinkPatterns {
		if m := pattern.FindStringSubmatch(msg.Body); m != nil {
			url := strings.TrimRight(m[1], ".,);")
			return domain.UnsubscribeSignal{Kind: domain.SignalLinkWithURL, Method: domain.DetectionBodyLink, URL: url}
		}
	}

	text := strings.ToLower(msg.Subject + "\n" + msg.Body)
	if containsAny(text, heuristicPhrases...) {
		return domain.UnsubscribeSignal{Kind: domain.SignalHeuristicOnly, Method: domain.DetectionHeuristic}
	}
	return domain.UnsubscribeSignal{Kind: domain.SignalNone}
}

// ShouldFlag decides whether a candidate is recorded. Marketing mail is
// always flagged; other categories only with a signal.
func (d *UnsubscribeDetector) ShouldFlag(category domain.Category, signal domain.UnsubscribeSignal) bool {
	return signal.Found() || category == domain.CategoryMarketing
}

// Candidate builds the record stored for a flagged message.
func (d *UnsubscribeDetector) Candidate(msg *domain.MailboxMessage, signal domain.UnsubscribeSignal) domain.UnsubscribeCandidate {
	method := signal.Method
	if method == "" {
		method = domain.DetectionHeuristic
	}
	return domain.UnsubscribeCandidate{
		MessageID:  msg.ID,
		Sender:     msg.From,
		Method:     method,
		URL:        signal.URL,
		Status:     domain.UnsubscribeSuggested,
		LastSeenAt: msg.ReceivedAt,
	}
}
