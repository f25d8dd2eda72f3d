package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// requiredVerbs lists the placeholder each template must keep. Without it the
// model never sees the email body or the search query.
var requiredVerbs = map[string]string{
	driven.PromptClassify:       "%[4]s",
	driven.PromptSummarise:      "%[3]s",
	driven.PromptExtractBooking: "%[3]s",
	driven.PromptParseQuery:     "%[2]s",
}

// PromptStore serves prompt templates from <dir>/<name>.txt. Missing files
// are seeded from driven.DefaultPrompts on first use; unreadable files and
// templates that drop their required placeholder fall back to the default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore returns a store rooted at dir, or ~/.guestmail/prompts when
// dir is empty. Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".guestmail", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	def, known := driven.DefaultPrompts[name]

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		if known {
			return def, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt, err := s.read(name)
	switch {
	case err != nil && !known:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	case err != nil:
		prompt = def
	case !hasRequiredVerb(name, prompt):
		logger.Warn("prompts: %s.txt no longer contains %s; using the built-in template", name, requiredVerbs[name])
		prompt = def
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[name]; ok {
		return existing, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so edits are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func hasRequiredVerb(name, prompt string) bool {
	verb, ok := requiredVerbs[name]
	return !ok || strings.Contains(prompt, verb)
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// seed creates the directory, any missing template files and the README.
// Existing files are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}
	for name, content := range driven.DefaultPrompts {
		if err := writeIfMissing(s.path(name), content); err != nil {
			s.seedErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
	if err := writeIfMissing(filepath.Join(s.dir, "README.md"), promptReadme); err != nil {
		s.seedErr = fmt.Errorf("create prompt readme: %w", err)
	}
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const promptReadme = `# guestmail prompts

Templates for the structured model requests made during mailbox sync and search.

## Files

- system.txt: system prompt sent with every request
- classify.txt: category and confidence for one email
- summarise.txt: short summary, key points and action items
- extract_booking.txt: reservation fields from a platform confirmation
- parse_query.txt: search filter from a free-text question

## Placeholders

Templates are Go format strings with indexed verbs, so a placeholder may be
moved or repeated:

- classify: %[1]s sender, %[2]s subject, %[3]s date, %[4]s body
- summarise, extract_booking: %[1]s sender, %[2]s subject, %[3]s body
- parse_query: %[1]s today's date, %[2]s the query

The body (or query) placeholder is required. A template without it is ignored
and the built-in one is used instead. The reply shape is enforced by a JSON
schema, so a template only steers wording. Changes apply to the next command
or sync run.
`
