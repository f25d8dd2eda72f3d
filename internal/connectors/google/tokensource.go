package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// Scopes are requested at login. Modify covers reading and removing UNREAD.
var Scopes = []string{gmail.GmailModifyScope}

// OAuthConfig builds the installed-app OAuth client for the mailbox.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     googleoauth.Endpoint,
	}
}

// TokenStore keeps the mailbox token in the secret store as JSON.
type TokenStore struct {
	secrets driven.SecretStore
}

// NewTokenStore creates a token store.
func NewTokenStore(secrets driven.SecretStore) *TokenStore {
	return &TokenStore{secrets: secrets}
}

// Load returns the stored token. Returns domain.ErrAuthRequired if no
// login has happened yet.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := s.secrets.Get(driven.SecretGmailToken)
	if errors.Is(err, driven.ErrSecretNotFound) {
		return nil, fmt.Errorf("%w: run `guestmail auth login`", domain.ErrAuthRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: stored token is corrupt: %v", domain.ErrAuthRequired, err)
	}
	return &tok, nil
}

// Save stores tok, replacing any previous token.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return s.secrets.Set(driven.SecretGmailToken, data)
}

// Delete forgets the stored token.
func (s *TokenStore) Delete() error {
	return s.secrets.Delete(driven.SecretGmailToken)
}

// persistingSource writes refreshed tokens back to the store.
type persistingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	store  *TokenStore
	access string
}

// NewTokenSource returns a refreshing token source seeded from the store.
// Each refreshed token is persisted so the next process starts from it.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, store *TokenStore) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		base:   cfg.TokenSource(ctx, tok),
		store:  store,
		access: tok.AccessToken,
	}, nil
}

// Token implements oauth2.TokenSource.
func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, WrapError(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.access {
		if err := p.store.Save(tok); err != nil {
			// The token is still usable for this process.
			logger.Warn("persist refreshed token: %v", err)
		} else {
			logger.Debug("refreshed mailbox token persisted, expires %s", tok.Expiry.Format("15:04:05"))
		}
		p.access = tok.AccessToken
	}
	return tok, nil
}
