package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls how transient model errors are retried
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration // Overall budget for one Process call, retries included
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     time.Minute,
		Timeout:        5 * time.Minute,
	}
}

type retryAgent struct {
	agent  Agent
	config RetryConfig
}

// WithRetry wraps agent so rate limit and availability errors are retried
// with exponential backoff, honouring the delay the API suggests up to MaxBackoff.
func WithRetry(agent Agent, config RetryConfig) Agent {
	return &retryAgent{agent: agent, config: config}
}

func (r *retryAgent) Name() string {
	return r.agent.Name()
}

func (r *retryAgent) Process(ctx context.Context, content string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	backoff := r.config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", stopError(err, lastErr)
		}

		out, err := r.agent.Process(ctx, content)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", fmt.Errorf("agent %s failed with non-retryable error: %w", r.agent.Name(), err)
		}
		if attempt == r.config.MaxRetries {
			break
		}

		wait := backoff
		if suggested := extractRetryDelay(err); suggested > wait {
			wait = suggested
		}
		wait = min(wait, r.config.MaxBackoff)

		slog.Warn("agent call failed, retrying",
			"agent", r.agent.Name(), "attempt", attempt+1, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return "", stopError(ctx.Err(), lastErr)
		case <-time.After(wait):
		}
		backoff = min(backoff*2, r.config.MaxBackoff)
	}

	return "", fmt.Errorf("agent %s exceeded max retries (%d) with %w", r.agent.Name(), r.config.MaxRetries, lastErr)
}

func stopError(ctxErr, lastErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("agent call timed out, last error: %w", errors.Join(ctxErr, lastErr))
	}
	return fmt.Errorf("agent call cancelled, last error: %w", errors.Join(ctxErr, lastErr))
}

var retryableMarkers = []string{
	"resource_exhausted",
	"quota",
	"429",
	"503",
	"rate limit",
	"unavailable",
	"overloaded",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var retryDelayRe = regexp.MustCompile(`(?i)retry(?:delay"?\s*[:=]\s*"?|\s+in\s+)(\d+(?:\.\d+)?)s`)

// extractRetryDelay finds "retry in 12.5s" or "retryDelay:10s" in an API error
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryDelayRe.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
