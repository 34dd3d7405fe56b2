package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
)

// ExhaustedError reports that every model in a cascade failed, with one
// failure record per model for diagnostics.
type ExhaustedError struct {
	Task     domain.TaskType
	Failures []domain.ModelFailure
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, fmt.Sprintf("%s (%d attempts): %s", f.Model, f.Attempts, f.Reason))
	}
	return fmt.Sprintf("cascade %s exhausted: %s", e.Task, strings.Join(reasons, "; "))
}

// Is lets callers match the error against the domain sentinel.
func (e *ExhaustedError) Is(target error) bool {
	return target == domain.ErrAllModelsExhausted
}

// Result is a successful cascade outcome: the winning model, its text,
// and the failure records of any models tried before it.
type Result struct {
	Model    string
	Text     string
	Failures []domain.ModelFailure
}

// Executor walks an ordered model list until one call succeeds. Each
// model gets up to the configured retry count, every attempt under its
// own timeout; exhausting one model's retries (or hitting a
// non-retryable failure) advances to the next model with a fresh
// attempt counter. Executors hold no mutable state and are safe to call
// from concurrent chunk workers.
type Executor struct {
	registry *Registry
	retries  int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewExecutor wires the provider registry with retry and timeout budgets.
func NewExecutor(registry *Registry, retries int, timeout time.Duration, logger *slog.Logger) *Executor {
	if retries <= 0 {
		retries = 3
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Executor{registry: registry, retries: retries, timeout: timeout, logger: logger}
}

// Run attempts each model of the cascade in order and returns the first
// successful completion.
func (e *Executor) Run(ctx context.Context, task domain.TaskType, models []string, prompt string, maxTokens int, temperature float64) (Result, error) {
	if len(models) == 0 {
		return Result{}, fmt.Errorf("cascade %s: no models configured: %w", task, domain.ErrInvalidInput)
	}

	var failures []domain.ModelFailure

	for _, model := range models {
		provider, providerModel, err := e.registry.Resolve(model)
		if err != nil {
			failures = append(failures, domain.ModelFailure{Model: model, Reason: err.Error()})
			continue
		}

		text, failure, err := e.tryModel(ctx, provider, providerModel, model, task, prompt, maxTokens, temperature)
		if err != nil {
			// Outer cancellation is the caller abandoning the run,
			// not a model failure.
			return Result{}, err
		}
		if failure == nil {
			return Result{Model: model, Text: text, Failures: failures}, nil
		}
		failures = append(failures, *failure)
	}

	return Result{}, &ExhaustedError{Task: task, Failures: failures}
}

// tryModel makes up to e.retries attempts against one model. It returns
// the text on success, a failure record when the model is given up on,
// or an error only when the surrounding context is done.
func (e *Executor) tryModel(ctx context.Context, provider Provider, providerModel, model string, task domain.TaskType, prompt string, maxTokens int, temperature float64) (string, *domain.ModelFailure, error) {
	var lastReason string

	for attempt := 1; attempt <= e.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		text, err := provider.Complete(attemptCtx, Request{
			Model:       providerModel,
			Prompt:      prompt,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		cancel()

		if err == nil {
			if strings.TrimSpace(text) == "" {
				lastReason = "empty response"
				e.debug("empty completion", "task", task, "model", model, "attempt", attempt)
				continue
			}
			return text, nil, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", nil, ctxErr
		}

		lastReason = err.Error()
		if !retryable(err) {
			e.debug("fatal model failure", "task", task, "model", model, "attempt", attempt, "error", err)
			return "", &domain.ModelFailure{Model: model, Attempts: attempt, Reason: lastReason}, nil
		}
		e.debug("retryable model failure", "task", task, "model", model, "attempt", attempt, "error", err)
	}

	return "", &domain.ModelFailure{Model: model, Attempts: e.retries, Reason: lastReason}, nil
}

// retryable decides whether an attempt failure is worth repeating on the
// same model. Attempt timeouts and transient transport errors are;
// provider errors carry their own classification.
func retryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	// Attempt timeouts and plain transport errors land here.
	return true
}

func (e *Executor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
