package driven

import "errors"

// ErrSecretNotFound is returned when a secret key has no value.
var ErrSecretNotFound = errors.New("secret not found")

// Well-known secret keys.
const (
	SecretGmailToken = "gmail:oauth-token"
	SecretLLMAPIKey  = "llm:api-key"
)

// SecretStore keeps credentials outside the configuration file.
type SecretStore interface {
	// Get returns the secret value. Returns ErrSecretNotFound if absent.
	Get(key string) ([]byte, error)

	// Set stores or replaces the secret value.
	Set(key string, value []byte) error

	// Delete removes the secret. Deleting a missing key is not an error.
	Delete(key string) error
}
