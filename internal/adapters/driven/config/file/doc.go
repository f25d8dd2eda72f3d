// Package file keeps user-editable state under the guestmail data directory:
// config.toml, written as nested TOML tables so the layered loader in package
// config reads the same file, and the prompts directory of model templates.
package file
