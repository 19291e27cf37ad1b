package generator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLLM wraps an LLMClient and tallies calls by prompt kind.
type countingLLM struct {
	inner LLMClient
	mu    sync.Mutex
	calls map[string]int
}

func newCountingLLM(inner LLMClient) *countingLLM {
	return &countingLLM{inner: inner, calls: make(map[string]int)}
}

func (c *countingLLM) Complete(ctx context.Context, p Prompt, maxTokens int64) (string, error) {
	c.mu.Lock()
	c.calls[promptKind(p)]++
	c.mu.Unlock()
	return c.inner.Complete(ctx, p, maxTokens)
}

func (c *countingLLM) count(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[kind]
}

func TestPipeline_EndToEnd(t *testing.T) {
	llm := newCountingLLM(MockLLM{})
	p := NewPipeline(llm, Options{}, nil)

	brief := testBrief()
	article, err := p.Generate(context.Background(), brief)
	require.NoError(t, err)

	assert.Equal(t, StatusReady, article.Status)
	assert.Equal(t, brief.Fingerprint(), article.Fingerprint)
	assert.NotEmpty(t, article.ID)
	assert.NotEmpty(t, article.Title)
	assert.NotEmpty(t, article.Slug)
	assert.NotEmpty(t, article.Excerpt)
	assert.True(t, strings.HasPrefix(article.Body, "# "))

	if !article.LengthOutOfRange {
		assert.GreaterOrEqual(t, article.CharCount, brief.TargetChars-1000)
		assert.LessOrEqual(t, article.CharCount, brief.TargetChars+1000)
	}

	assert.Equal(t, 1, llm.count("outline"))
	assert.Equal(t, 7, llm.count("section"))
}

func TestPipeline_ConcurrentIdenticalSubmissionsShareOneRun(t *testing.T) {
	llm := newCountingLLM(MockLLM{})
	p := NewPipeline(llm, Options{}, nil)
	brief := testBrief()

	const n = 10
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Generate(context.Background(), brief); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, llm.count("outline"), "no second planner call for an identical brief")
}

func TestPipeline_CanonicallyEqualBriefsShareOneRun(t *testing.T) {
	llm := newCountingLLM(MockLLM{})
	p := NewPipeline(llm, Options{}, nil)

	a := testBrief()
	b := testBrief()
	b.Summary = "  " + b.Summary + " "
	b.MustTopics = []string{"idempotency", "dead letters", "retries"}

	_, err := p.Generate(context.Background(), a)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, llm.count("outline"))
}

func TestPipeline_RejectsInvalidBrief(t *testing.T) {
	p := NewPipeline(MockLLM{}, Options{}, nil)

	brief := testBrief()
	brief.Summary = "too short"
	_, err := p.Generate(context.Background(), brief)
	assert.Error(t, err)

	brief = testBrief()
	brief.TargetChars = 4000
	_, err = p.Generate(context.Background(), brief)
	assert.Error(t, err)

	brief = testBrief()
	brief.Tone = "sarcastic"
	_, err = p.Generate(context.Background(), brief)
	assert.Error(t, err)
}

func TestPipeline_DraftingFailureLeavesNoCacheEntry(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, p Prompt, maxTokens int64) (string, error) {
		if promptKind(p) == "section" {
			return "", &UpstreamError{Op: "complete", Status: 400, Err: assert.AnError}
		}
		return MockLLM{}.Complete(ctx, p, maxTokens)
	})
	p := NewPipeline(llm, Options{MaxAttempts: 1}, nil)
	brief := testBrief()

	_, err := p.Generate(context.Background(), brief)
	var de *DraftingError
	require.ErrorAs(t, err, &de)

	_, _, ok := p.Cache().Peek(brief.Fingerprint())
	assert.False(t, ok, "failed run must be retryable from scratch")
}

func TestPipeline_DeadlineAborts(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, p Prompt, maxTokens int64) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		return MockLLM{}.Complete(ctx, p, maxTokens)
	})
	p := NewPipeline(llm, Options{Deadline: 50 * time.Millisecond, MaxAttempts: 1}, nil)
	brief := testBrief()

	_, err := p.Generate(context.Background(), brief)
	require.Error(t, err)

	_, _, ok := p.Cache().Peek(brief.Fingerprint())
	assert.False(t, ok, "timed-out run must not be cached as terminal")
}

func TestPipeline_LengthAdjustmentVisibleWhileRunning(t *testing.T) {
	adjusting := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	llm := llmFunc(func(ctx context.Context, p Prompt, maxTokens int64) (string, error) {
		switch promptKind(p) {
		case "section":
			// Far below target so the controller has to expand.
			return "## x\n\n" + filler(600), nil
		case "expand":
			once.Do(func() {
				close(adjusting)
				<-release
			})
			return filler(500), nil
		default:
			return MockLLM{}.Complete(ctx, p, maxTokens)
		}
	})
	p := NewPipeline(llm, Options{MaxAttempts: 1}, nil)
	brief := testBrief()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := p.Generate(context.Background(), brief)
		assert.NoError(t, err)
	}()

	<-adjusting
	_, status, ok := p.Cache().Peek(brief.Fingerprint())
	require.True(t, ok)
	assert.Equal(t, StatusLengthAdjusting, status)

	close(release)
	<-done
}

func TestPipeline_MetadataFailureDegradesToDerivedDefaults(t *testing.T) {
	llm := llmFunc(func(ctx context.Context, p Prompt, maxTokens int64) (string, error) {
		if promptKind(p) == "finalize" {
			return "", &UpstreamError{Op: "complete", Status: 500, Transient: true, Err: assert.AnError}
		}
		return MockLLM{}.Complete(ctx, p, maxTokens)
	})
	p := NewPipeline(llm, Options{MaxAttempts: 1}, nil)

	article, err := p.Generate(context.Background(), testBrief())
	require.NoError(t, err, "metadata is best effort")
	assert.Equal(t, StatusReady, article.Status)
	assert.NotEmpty(t, article.Slug)
	assert.NotEmpty(t, article.Excerpt)
}

func TestPipeline_SkipMetadataDerivesLocally(t *testing.T) {
	llm := newCountingLLM(MockLLM{})
	p := NewPipeline(llm, Options{SkipMetadata: true}, nil)

	article, err := p.Generate(context.Background(), testBrief())
	require.NoError(t, err)
	assert.Zero(t, llm.count("finalize"))
	assert.NotEmpty(t, article.Slug)
}
