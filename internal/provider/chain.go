package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/failsafe-go/failsafe-go/timeout"

	"github.com/feldsher/feldsher/internal/metrics"
)

const (
	defaultCallTimeout = 60 * time.Second
	transientRetries   = 1
	retryBackoffMin    = time.Second
	retryBackoffMax    = 10 * time.Second
)

// Candidate is one entry of the fallback chain.
type Candidate struct {
	Name     string
	Provider Provider
}

// Chain drives an ordered list of provider candidates. On any candidate
// failure it advances to the next one with the same turn log; candidates never
// mutate turns. Rate-limit and server errors are retried once on the same
// candidate before advancing.
type Chain struct {
	candidates []Candidate
	timeout    time.Duration
}

// NewChain creates a fallback chain. callTimeout bounds each candidate attempt;
// zero means the default.
func NewChain(callTimeout time.Duration, candidates ...Candidate) *Chain {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Chain{candidates: candidates, timeout: callTimeout}
}

// Len returns the number of candidates.
func (c *Chain) Len() int { return len(c.candidates) }

// CandidateName returns the identifier of the candidate at idx.
func (c *Chain) CandidateName(idx int) string {
	if idx < 0 || idx >= len(c.candidates) {
		return ""
	}
	return c.candidates[idx].Name
}

// Send tries candidates in order starting at start and returns the first
// successful response together with the index of the candidate that produced
// it. Callers pin that index for the remainder of a turn's tool-resolution
// sub-loop so the same backend sees its own tool results.
//
// When every remaining candidate fails, Send returns an *ExhaustedError.
func (c *Chain) Send(ctx context.Context, messages []Message, tools []ToolDefinition, start int) (*Response, int, error) {
	if len(c.candidates) == 0 {
		return nil, 0, &ExhaustedError{Attempts: 0, Last: errors.New("no provider candidates configured")}
	}
	if start < 0 || start >= len(c.candidates) {
		start = 0
	}

	var lastErr error
	attempts := 0
	for idx := start; idx < len(c.candidates); idx++ {
		cand := c.candidates[idx]
		attempts++
		metrics.ProviderAttempts.WithLabelValues(cand.Name).Inc()

		resp, err := c.callCandidate(ctx, cand, messages, tools)
		if err == nil {
			if idx != start {
				metrics.ProviderFallbacks.Inc()
			}
			return resp, idx, nil
		}
		lastErr = err
		metrics.ProviderErrors.WithLabelValues(cand.Name).Inc()
		slog.Warn("provider candidate failed, advancing",
			slog.String("candidate", cand.Name),
			slog.String("error", err.Error()),
			slog.Bool("auth_error", isAuthError(err)))

		// Caller cancellation is not a candidate fault; stop immediately.
		if ctx.Err() != nil {
			return nil, idx, ctx.Err()
		}
	}

	metrics.ProviderExhausted.Inc()
	return nil, len(c.candidates) - 1, &ExhaustedError{Attempts: attempts, Last: lastErr}
}

// callCandidate runs one candidate under a per-attempt timeout and a short
// retry for transient provider errors.
func (c *Chain) callCandidate(ctx context.Context, cand Candidate, messages []Message, tools []ToolDefinition) (*Response, error) {
	retry := retrypolicy.NewBuilder[*Response]().
		HandleIf(func(_ *Response, err error) bool { return isTransient(err) }).
		WithBackoff(retryBackoffMin, retryBackoffMax).
		WithDelayFunc(retryDelay).
		WithMaxRetries(transientRetries).
		Build()
	to := timeout.New[*Response](c.timeout)

	return failsafe.With(retry, to).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[*Response]) (*Response, error) {
			return cand.Provider.Chat(exec.Context(), messages, tools)
		})
}

// retryDelay honors a provider-advertised retry delay when one was parsed from
// the error body, capped at the backoff ceiling. Returning -1 falls back to the
// configured backoff.
func retryDelay(exec failsafe.ExecutionAttempt[*Response]) time.Duration {
	var pe *ProviderError
	if errors.As(exec.LastError(), &pe) && pe.RetryAfter > 0 {
		if pe.RetryAfter > retryBackoffMax {
			return retryBackoffMax
		}
		return pe.RetryAfter
	}
	return -1
}

// isAuthError returns true if err is a 401 or 403 ProviderError.
func isAuthError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.IsAuth()
}

// isTransient returns true for rate-limit and 5xx provider errors.
func isTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.IsTransient()
}
