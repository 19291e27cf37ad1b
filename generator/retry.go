package generator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 4

// Client is the generation client: a stateless adapter around an LLMClient
// that wraps every call in bounded retry. Transient upstream failures are
// retried with exponential backoff and jitter; fatal ones return immediately.
// Concurrent calls share nothing mutable.
type Client struct {
	llm         LLMClient
	maxAttempts uint
	initialWait time.Duration
	maxWait     time.Duration
	log         *zap.Logger
}

// NewClient wraps llm with the retry policy. maxAttempts <= 0 selects the default.
func NewClient(llm LLMClient, maxAttempts int, log *zap.Logger) *Client {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		llm:         llm,
		maxAttempts: uint(maxAttempts),
		initialWait: 500 * time.Millisecond,
		maxWait:     10 * time.Second,
		log:         log,
	}
}

// Generate performs one logical completion, retrying transient failures.
func (c *Client) Generate(ctx context.Context, prompt Prompt, maxTokens int64) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialWait
	bo.MaxInterval = c.maxWait

	attempt := 0
	op := func() (string, error) {
		attempt++
		text, err := c.llm.Complete(ctx, prompt, maxTokens)
		if err == nil {
			return text, nil
		}
		if IsTransientUpstream(err) {
			c.log.Warn("transient upstream failure, will retry",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxAttempts))
}
