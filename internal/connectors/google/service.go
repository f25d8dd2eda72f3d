package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// NewGmailService creates a Gmail API service using the provided TokenSource.
// Extra options are appended, which tests use to point at a fake endpoint.
func NewGmailService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*gmail.Service, error) {
	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}
