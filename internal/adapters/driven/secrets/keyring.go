// Package secrets stores OAuth tokens and API keys in the operating system
// keyring, falling back to an encrypted file under the data directory.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// ServiceName labels every keyring item.
const ServiceName = "guestmail"

const (
	backendEnv  = "GUESTMAIL_KEYRING_BACKEND"
	passwordEnv = "GUESTMAIL_KEYRING_PASSWORD" //nolint:gosec // env var name
)

// Backend names accepted in GUESTMAIL_KEYRING_BACKEND.
const (
	BackendAuto     = "auto"
	BackendKeychain = "keychain"
	BackendFile     = "file"
)

// openTimeout bounds keyring.Open. A D-Bus secret service that is
// installed but not running hangs forever otherwise.
const openTimeout = 5 * time.Second

var (
	errMissingKey     = errors.New("missing secret key")
	errNoTTY          = errors.New("no TTY available for keyring password prompt")
	errInvalidBackend = errors.New("invalid keyring backend")
	errOpenTimeout    = errors.New("keyring open timed out")

	keyringOpen = keyring.Open
)

// Ensure Store implements the interface.
var _ driven.SecretStore = (*Store)(nil)

// Store is a driven.SecretStore over a keyring.
type Store struct {
	ring keyring.Keyring
}

// New wraps an opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the keyring selected by GUESTMAIL_KEYRING_BACKEND. The file
// backend keeps its items in dataDir/keyring.
func Open(dataDir string) (*Store, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv(backendEnv)))
	if backend == "" {
		backend = BackendAuto
	}
	allowed, err := allowedBackends(backend)
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if forceFileBackend(runtime.GOOS, backend, dbusAddr) {
		allowed = []keyring.BackendType{keyring.FileBackend}
	}

	dir := filepath.Join(dataDir, "keyring")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keyring dir: %w", err)
	}

	password, passwordSet := os.LookupEnv(passwordEnv)
	cfg := keyring.Config{
		ServiceName:      ServiceName,
		AllowedBackends:  allowed,
		FileDir:          dir,
		FilePasswordFunc: passwordFunc(password, passwordSet, term.IsTerminal(int(os.Stdin.Fd()))),
	}

	ring, err := openWithTimeout(cfg, openTimeout)
	if err != nil {
		return nil, err
	}
	return New(ring), nil
}

// Get returns the secret for key, or driven.ErrSecretNotFound.
func (s *Store) Get(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errMissingKey
	}
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, driven.ErrSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read secret %s: %w", key, err)
	}
	return item.Data, nil
}

// Set stores or replaces the secret for key.
func (s *Store) Set(key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingKey
	}
	if err := s.ring.Set(keyring.Item{Key: key, Data: value, Label: ServiceName}); err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	return nil
}

// Delete removes the secret for key. A missing key is not an error.
func (s *Store) Delete(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errMissingKey
	}
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}

func allowedBackends(name string) ([]keyring.BackendType, error) {
	switch name {
	case BackendAuto:
		return nil, nil
	case BackendKeychain:
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case BackendFile:
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w: %q (expected auto, keychain or file)", errInvalidBackend, name)
	}
}

// forceFileBackend is true on headless Linux where no secret service is reachable.
func forceFileBackend(goos, backend, dbusAddr string) bool {
	return goos == "linux" && backend == BackendAuto && dbusAddr == ""
}

func passwordFunc(password string, set, isTTY bool) keyring.PromptFunc {
	// An explicitly empty passphrase is valid.
	if set {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, passwordEnv)
	}
}

func openWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		ring, err := keyringOpen(cfg)
		ch <- result{ring, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("open keyring: %w", res.err)
		}
		return res.ring, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %v; set %s=file and %s to use the encrypted file backend",
			errOpenTimeout, timeout, backendEnv, passwordEnv)
	}
}
