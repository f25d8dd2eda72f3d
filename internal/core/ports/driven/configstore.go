package driven

// ConfigStore is the writable side of config.toml, used by the config
// command. Keys are dot-separated; the layered loader in package config
// reads the same file, so values written here apply on the next start.
type ConfigStore interface {
	// Get returns the raw value for key and whether it is set.
	Get(key string) (any, bool)

	// Set stores value under key. File-backed stores persist immediately.
	Set(key string, value any) error

	// Unset removes key. Removing a key that is not set is not an error.
	Unset(key string) error

	Save() error

	// Path identifies where values are persisted.
	Path() string

	// All returns a copy of every stored value.
	All() map[string]any

	// Keys returns every stored key in sorted order.
	Keys() []string
}
