package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// Inference operation names, used as metric labels.
const (
	opClassify       = "classify"
	opSummarise      = "summarise"
	opExtractBooking = "extract_booking"
	opParseQuery     = "parse_query"
)

// DefaultInferenceTimeout bounds a single structured request.
const DefaultInferenceTimeout = 60 * time.Second

// Inference runs structured requests against the LLM on behalf of the
// classification, summary, extraction and query stages. It owns the
// requests-per-minute budget shared by every concurrent worker.
type Inference struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	limiter *rate.Limiter
	timeout time.Duration
}

// NewInference creates an inference runner. llm may be nil, in which case
// Available reports false and every stage uses its fallback.
// requestsPerMinute <= 0 disables the budget.
func NewInference(llm driven.LLMService, prompts driven.PromptStore, requestsPerMinute int) *Inference {
	inf := &Inference{
		llm:     llm,
		prompts: prompts,
		timeout: DefaultInferenceTimeout,
	}
	if requestsPerMinute > 0 {
		perSecond := rate.Limit(float64(requestsPerMinute) / 60.0)
		inf.limiter = rate.NewLimiter(perSecond, max(1, requestsPerMinute/12))
	}
	return inf
}

// SetTimeout overrides the per-request timeout.
func (i *Inference) SetTimeout(d time.Duration) {
	if d > 0 {
		i.timeout = d
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (i *Inference) SetPromptStore(store driven.PromptStore) {
	i.prompts = store
}

// Available reports whether an LLM is configured.
func (i *Inference) Available() bool {
	return i != nil && i.llm != nil
}

// prompt resolves a template by name, falling back to the built-in default.
func (i *Inference) prompt(name string) string {
	if i.prompts != nil {
		if p, err := i.prompts.Load(name); err == nil && p != "" {
			return p
		}
	}
	return driven.DefaultPrompts[name]
}

// JSON renders the named prompt with args, sends it with a strict schema
// and decodes the reply into out.
func (i *Inference) JSON(
	ctx context.Context,
	operation, promptName string,
	schema driven.JSONSchema,
	out any,
	args ...any,
) (err error) {
	if !i.Available() {
		return domain.ErrLLMUnavailable
	}
	if i.limiter != nil {
		if err := i.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("inference budget: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordInference(operation, err, time.Since(start)) }()

	messages := []driven.ChatMessage{
		{Role: "system", Content: i.prompt(driven.PromptSystem)},
		{Role: "user", Content: fmt.Sprintf(i.prompt(promptName), args...)},
	}
	reply, err := i.llm.ChatJSON(ctx, messages, schema, driven.ChatOptions{Temperature: 0.1})
	if err != nil {
		return err
	}
	return decodeModelJSON(reply, out)
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// decodeModelJSON extracts the outermost JSON object from a model reply.
// Some compatible endpoints wrap structured output in prose or fences.
func decodeModelJSON(reply string, out any) error {
	obj := jsonObjectPattern.FindString(reply)
	if obj == "" {
		return fmt.Errorf("%w: no JSON object in model reply", domain.ErrContractViolation)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContractViolation, err)
	}
	return nil
}
