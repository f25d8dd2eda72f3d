package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/guestmail/internal/adapters/driving/cli"
	"github.com/custodia-labs/guestmail/internal/adapters/driving/oauth"
	"github.com/custodia-labs/guestmail/internal/connectors/google"
	"github.com/custodia-labs/guestmail/internal/connectors/google/gmail"
	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

var _ cli.MailboxAuth = (*gmailAuth)(nil)

// gmailAuth implements cli.MailboxAuth for the Gmail account.
type gmailAuth struct {
	cfg    domain.GmailConfig
	tokens *google.TokenStore
}

func (a *gmailAuth) Login(ctx context.Context, out io.Writer) (string, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" {
		return "", errors.New("set gmail.client_id and gmail.client_secret first")
	}
	flow := &oauth.Flow{
		Config: google.OAuthConfig(a.cfg.ClientID, a.cfg.ClientSecret, ""),
		Out:    out,
	}
	tok, err := flow.Run(ctx)
	if err != nil {
		return "", err
	}
	if err := a.tokens.Save(tok); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return a.Account(ctx)
}

func (a *gmailAuth) Logout() error {
	if err := a.tokens.Delete(); err != nil && !errors.Is(err, driven.ErrSecretNotFound) {
		return err
	}
	return nil
}

func (a *gmailAuth) Account(ctx context.Context) (string, error) {
	ts, err := google.NewTokenSource(ctx, google.OAuthConfig(a.cfg.ClientID, a.cfg.ClientSecret, ""), a.tokens)
	if err != nil {
		return "", err
	}
	svc, err := google.NewGmailService(ctx, ts)
	if err != nil {
		return "", err
	}
	return gmail.NewClient(svc, gmail.ConfigFrom(a.cfg)).Profile(ctx)
}
