package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/guestmail/internal/logger"
)

// Callback port range tried before falling back to an ephemeral port.
const (
	callbackPortStart = 8085
	callbackPortEnd   = 8095
)

// DefaultTimeout bounds how long the flow waits for the browser.
const DefaultTimeout = 5 * time.Minute

// Flow runs the installed-application authorisation code flow with PKCE.
type Flow struct {
	// Config supplies client credentials, endpoint and scopes. Its
	// RedirectURL is replaced with the loopback callback.
	Config  *oauth2.Config
	Timeout time.Duration

	// Browser opens the consent page. Defaults to OpenBrowser.
	Browser func(url string) error

	// Out receives the consent URL in case the browser cannot be opened.
	Out io.Writer
}

// Run obtains a token with offline access. It blocks until the callback
// arrives, ctx ends or the timeout elapses.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, errors.New("oauth: config is required")
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	browser := f.Browser
	if browser == nil {
		browser = OpenBrowser
	}

	port, err := FindAvailablePort(callbackPortStart, callbackPortEnd)
	if err != nil {
		port = 0
	}

	state := uuid.NewString()
	server := NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Debug("oauth: stopping callback server: %v", err)
		}
	}()

	cfg := *f.Config
	cfg.RedirectURL = server.RedirectURI()

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	if f.Out != nil {
		fmt.Fprintf(f.Out, "Opening browser for authorisation. If it does not open, visit:\n\n  %s\n\n", authURL)
	}
	if err := browser(authURL); err != nil {
		logger.Warn("oauth: could not open browser: %v", err)
	}

	code, err := server.WaitForCode(ctx, timeout)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		logger.Warn("oauth: no refresh token returned; access will expire")
	}
	return tok, nil
}
