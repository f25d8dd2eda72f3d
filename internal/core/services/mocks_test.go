package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// --- Mock implementations shared by the pipeline tests ---

// stubLLM answers ChatJSON by schema name.
type stubLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   map[string]int
	prompts []string
}

func newStubLLM() *stubLLM {
	return &stubLLM{
		replies: make(map[string]string),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (s *stubLLM) reply(schema, body string) *stubLLM {
	s.replies[schema] = body
	return s
}

func (s *stubLLM) fail(schema string, err error) *stubLLM {
	s.errs[schema] = err
	return s
}

func (s *stubLLM) callCount(schema string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[schema]
}

func (s *stubLLM) Chat(context.Context, []driven.ChatMessage, driven.ChatOptions) (string, error) {
	return "", fmt.Errorf("chat not scripted")
}

func (s *stubLLM) ChatJSON(
	ctx context.Context,
	msgs []driven.ChatMessage,
	schema driven.JSONSchema,
	_ driven.ChatOptions,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[schema.Name]++
	if len(msgs) > 0 {
		s.prompts = append(s.prompts, msgs[len(msgs)-1].Content)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := s.errs[schema.Name]; ok {
		return "", err
	}
	if r, ok := s.replies[schema.Name]; ok {
		return r, nil
	}
	return "", fmt.Errorf("no reply scripted for %s", schema.Name)
}

func (s *stubLLM) ModelName() string          { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

// stubMailbox serves messages in insertion order.
type stubMailbox struct {
	mu        sync.Mutex
	order     []string
	messages  map[string]*domain.MailboxMessage
	pageSize  int
	searchErr error
	// searchFailures makes the first N searches fail transiently.
	searchFailures int
	searches       int
	getErrs        map[string]error
	// transientGets makes the next N gets of an id fail transiently.
	transientGets map[string]int
	gets          map[string]int
	read          map[string]bool
	onGet         func(id string)
}

func newStubMailbox(msgs ...*domain.MailboxMessage) *stubMailbox {
	m := &stubMailbox{
		messages:      make(map[string]*domain.MailboxMessage),
		getErrs:       make(map[string]error),
		transientGets: make(map[string]int),
		gets:          make(map[string]int),
		read:          make(map[string]bool),
		pageSize:      100,
	}
	for _, msg := range msgs {
		m.order = append(m.order, msg.ID)
		m.messages[msg.ID] = msg
	}
	return m
}

func (m *stubMailbox) Search(_ context.Context, _ string, maxResults int, pageToken string) (*domain.MessagePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchFailures > 0 {
		m.searchFailures--
		return nil, fmt.Errorf("search: %w", domain.ErrTransient)
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}

	start := 0
	if pageToken != "" {
		_, _ = fmt.Sscanf(pageToken, "%d", &start)
	}
	end := min(start+min(maxResults, m.pageSize), len(m.order))
	page := &domain.MessagePage{IDs: append([]string(nil), m.order[start:end]...)}
	if end < len(m.order) {
		page.NextPageToken = fmt.Sprintf("%d", end)
	}
	return page, nil
}

func (m *stubMailbox) Get(_ context.Context, id string) (*domain.MailboxMessage, error) {
	m.mu.Lock()
	m.gets[id]++
	hook := m.onGet
	err := m.getErrs[id]
	if m.transientGets[id] > 0 {
		m.transientGets[id]--
		err = fmt.Errorf("get %s: %w", id, domain.ErrTransient)
	}
	msg, ok := m.messages[id]
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *stubMailbox) MarkRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.read[id] = true
	return nil
}

func (m *stubMailbox) getCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[id]
}

// words returns a body of n words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func bookingConfirmation() *domain.MailboxMessage {
	return &domain.MailboxMessage{
		ID:      "msg-bk",
		Subject: "Booking Confirmed #BK12345",
		From:    "reservations@booking.com",
		Body: "Dear partner, you have a new reservation.\n" +
			"Guest: John Smith\nCheck-in: 2025-03-15\nCheck-out: 2025-03-20\nBooking number: BK12345",
	}
}

const bookingReplyJSON = `{
	"bookingId": "BK12345",
	"guestName": "John Smith",
	"checkIn": "2025-03-15",
	"checkOut": "2025-03-20",
	"channel": "booking.com",
	"status": "confirmed",
	"roomNumber": null,
	"price": 450.5,
	"currency": "eur",
	"guestEmail": null,
	"guestPhone": null,
	"guests": 2,
	"notes": null
}`
