// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate asks a language-model completion service whether a paper
// abstract could be used to generate trading ideas.
package evaluate

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/paper-scout/pkg/types"
)

const defaultMaxTokens = 1024

// promptTmpl is the instruction sent for every abstract.
var promptTmpl = template.Must(template.New("evaluation").Parse(`Please evaluate the following research paper abstract in the context of generating trading ideas for US equity markets:

{{.Abstract}}

Does the abstract discuss concepts or methods that could potentially be used to generate alpha or new trading ideas? If so, provide a brief explanation.`))

// Backend is a text-completion service. Each implementation sends one prompt
// and returns the model's free-text answer.
type Backend interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Verdict is the outcome of evaluating one abstract.
type Verdict struct {
	Accepted  bool
	Rationale string
}

// EvaluationError wraps a failed completion call or an unusable response.
type EvaluationError struct {
	Err error
}

func (e *EvaluationError) Error() string { return "evaluating abstract: " + e.Err.Error() }

func (e *EvaluationError) Unwrap() error { return e.Err }

// Accepts reports whether a rationale counts as a positive answer: it contains
// "yes" anywhere, case-insensitively. This is a crude heuristic and will
// accept rationales like "yes it touches probability, but no trading use".
func Accepts(rationale string) bool {
	return strings.Contains(strings.ToLower(rationale), "yes")
}

// Evaluator runs the trading-relevance prompt against a Backend.
// It is safe for concurrent use when the Backend is.
type Evaluator struct {
	backend    Backend
	maxTokens  int
	maxRetries int
}

// New returns an Evaluator. MaxRetries of zero means a single attempt.
func New(backend Backend, cfg types.EvaluatorConfig) *Evaluator {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Evaluator{backend: backend, maxTokens: maxTokens, maxRetries: maxRetries}
}

// Evaluate sends the abstract to the backend and applies Accepts to the
// answer. Any backend failure is returned as *EvaluationError; callers treat
// that as not accepted.
func (e *Evaluator) Evaluate(ctx context.Context, abstract string) (Verdict, error) {
	prompt, err := RenderPrompt(abstract)
	if err != nil {
		return Verdict{}, &EvaluationError{Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	text, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		return Verdict{}, &EvaluationError{Err: err}
	}

	rationale := strings.TrimSpace(text)
	return Verdict{Accepted: Accepts(rationale), Rationale: rationale}, nil
}

// RenderPrompt executes the evaluation prompt template for one abstract.
func RenderPrompt(abstract string) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct{ Abstract string }{Abstract: abstract}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

func (e *Evaluator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := e.backend.Complete(ctx, prompt, e.maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	if e.maxRetries == 0 {
		return "", lastErr
	}
	return "", fmt.Errorf("after %d retries: %w", e.maxRetries, lastErr)
}
