package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrInvalidOutput is returned when every attempt produced a reply that
// could not be parsed as a JSON object.
var ErrInvalidOutput = errors.New("invalid LLM output")

// LLMClient runs one model call under the bounded-retry protocol: transport
// failures and malformed replies both count against the same attempt
// budget, and exhaustion surfaces as a returned error, never a silent
// default.
type LLMClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error)
}

type textCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, maxTokens int32) (string, error)
}

// Backoff between failed attempts. Entries past the schedule fall back to
// 2s.
var retryBackoff = []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond, 4 * time.Second}

type llmClient struct {
	completer   textCompleter
	temperature float32
	maxTokens   int32
	maxRetries  int
	logger      *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewLLMClient(completer GeminiService, temperature float32, maxTokens int32, maxRetries int, logger *zap.Logger) LLMClient {
	return newLLMClient(completer, temperature, maxTokens, maxRetries, logger)
}

func newLLMClient(completer textCompleter, temperature float32, maxTokens int32, maxRetries int, logger *zap.Logger) *llmClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &llmClient{
		completer:   completer,
		temperature: temperature,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
		logger:      logger,
		sleep:       sleepWithContext,
	}
}

// CompleteJSON implements LLMClient.
func (c *llmClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, attemptDelay(attempt)); err != nil {
				return nil, fmt.Errorf("context cancelled: %w", err)
			}
		}

		raw, err := c.completer.Complete(ctx, systemPrompt, userPrompt, c.temperature, c.maxTokens)
		if err != nil {
			if isRateLimited(err) {
				c.logger.Warn("model endpoint rate limited",
					zap.Int("attempt", attempt),
					zap.Error(err))
			} else {
				c.logger.Warn("model invocation failed",
					zap.Int("attempt", attempt),
					zap.Error(err))
			}

			lastErr = err
			if attempt == c.maxRetries {
				break
			}

			if err := c.sleep(ctx, scheduleDelay(attempt)); err != nil {
				return nil, fmt.Errorf("context cancelled: %w", err)
			}
			continue
		}

		if parsed, ok := parseJSONObject(raw); ok {
			return parsed, nil
		}

		c.logger.Warn("model returned unparseable output",
			zap.Int("attempt", attempt),
			zap.Int("reply_length", len(raw)))

		lastErr = ErrInvalidOutput
		if attempt == c.maxRetries {
			break
		}

		if err := c.sleep(ctx, scheduleDelay(attempt)); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}
	}

	if errors.Is(lastErr, ErrInvalidOutput) {
		return nil, fmt.Errorf("%w after %d attempts", ErrInvalidOutput, c.maxRetries)
	}

	return nil, fmt.Errorf("model invocation failed after %d attempts: %w", c.maxRetries, lastErr)
}

// attemptDelay is the exponential wait applied before every attempt after
// the first: 1000ms * 2^(attempt-1), capped at 10s.
func attemptDelay(attempt int) time.Duration {
	d := time.Duration(1<<(attempt-1)) * time.Second
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

func scheduleDelay(attempt int) time.Duration {
	if attempt-1 < len(retryBackoff) {
		return retryBackoff[attempt-1]
	}
	return 2 * time.Second
}

// parseJSONObject tries a strict parse first, then falls back to the first
// top-level {...} span. Model output is free text that merely promises to
// contain a JSON object.
func parseJSONObject(raw string) (map[string]interface{}, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, true
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
		return parsed, true
	}

	return nil, false
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
