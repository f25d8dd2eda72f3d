package gmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// unavailable is a mailbox that could not be opened.
type unavailable struct {
	err error
}

// Unavailable returns a driven.MailboxClient whose every call fails with
// cause. Errors that are not already auth errors are wrapped with
// domain.ErrMailboxUnavailable, so a missing login surfaces at sync time
// instead of at startup.
func Unavailable(cause error) driven.MailboxClient {
	if cause == nil {
		cause = errors.New("not configured")
	}
	if !errors.Is(cause, domain.ErrAuthRequired) && !errors.Is(cause, domain.ErrAuthExpired) &&
		!errors.Is(cause, domain.ErrMailboxUnavailable) {
		cause = fmt.Errorf("%w: %w", domain.ErrMailboxUnavailable, cause)
	}
	return &unavailable{err: cause}
}

func (u *unavailable) Search(context.Context, string, int, string) (*domain.MessagePage, error) {
	return nil, u.err
}

func (u *unavailable) Get(context.Context, string) (*domain.MailboxMessage, error) {
	return nil, u.err
}

func (u *unavailable) MarkRead(context.Context, string) error {
	return u.err
}
