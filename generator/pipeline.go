package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDeadline   = 5 * time.Minute
	finalizeMaxTokens = 1200
	excerptMaxChars   = 300
)

// Options tune one Pipeline instance.
type Options struct {
	// DraftConcurrency caps simultaneous upstream calls while drafting.
	DraftConcurrency int
	// MaxAttempts bounds retries per upstream call.
	MaxAttempts int
	// MaxRounds bounds length-adjustment rounds.
	MaxRounds int
	// Deadline bounds one whole generation run.
	Deadline time.Duration
	// SkipMetadata disables the finalization metadata call; slug and excerpt
	// are then derived locally.
	SkipMetadata bool
}

// Pipeline is the full generation-and-length-control pipeline:
// plan → draft (parallel) → merge → length control → finalize, wrapped by the
// idempotency cache at the entry point.
type Pipeline struct {
	client     *Client
	planner    *Planner
	drafter    *Drafter
	controller *LengthController
	cache      *Cache
	deadline   time.Duration
	skipMeta   bool
	validate   *validator.Validate
	log        *zap.Logger
}

func NewPipeline(llm LLMClient, opts Options, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Deadline <= 0 {
		opts.Deadline = defaultDeadline
	}
	client := NewClient(llm, opts.MaxAttempts, log)
	return &Pipeline{
		client:     client,
		planner:    NewPlanner(client, log),
		drafter:    NewDrafter(client, opts.DraftConcurrency, log),
		controller: NewLengthController(client, opts.MaxRounds, log),
		cache:      NewCache(),
		deadline:   opts.Deadline,
		skipMeta:   opts.SkipMetadata,
		validate:   validator.New(),
		log:        log,
	}
}

// Cache exposes the idempotency cache for status lookups and regeneration.
func (p *Pipeline) Cache() *Cache { return p.cache }

// ValidateBrief checks a Brief against its structural constraints.
func (p *Pipeline) ValidateBrief(brief Brief) error {
	if err := p.validate.Struct(brief); err != nil {
		return fmt.Errorf("invalid brief: %w", err)
	}
	return nil
}

// Generate produces the Article for a Brief, reusing a cached or in-flight
// result for an identical canonicalized Brief.
func (p *Pipeline) Generate(ctx context.Context, brief Brief) (*Article, error) {
	if err := p.ValidateBrief(brief); err != nil {
		return nil, err
	}
	return p.cache.GetOrCreate(ctx, brief, func(ctx context.Context) (*Article, error) {
		return p.run(ctx, brief)
	})
}

// Regenerate discards any finished article for the Brief's fingerprint and
// runs the pipeline again. The discard and the claim of the new run happen
// atomically, so a concurrent identical submission cannot resurrect the old
// result. A run already in flight is joined instead.
func (p *Pipeline) Regenerate(ctx context.Context, brief Brief) (*Article, error) {
	if err := p.ValidateBrief(brief); err != nil {
		return nil, err
	}
	return p.cache.Recreate(ctx, brief, func(ctx context.Context) (*Article, error) {
		return p.run(ctx, brief)
	})
}

// run is one exclusive pipeline execution for a Brief. All state it creates
// (outline, draft sections, article) is owned by this run alone.
func (p *Pipeline) run(ctx context.Context, brief Brief) (*Article, error) {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	brief = Canonicalize(brief)
	now := time.Now().UTC()
	article := &Article{
		ID:          uuid.NewString(),
		Fingerprint: brief.Fingerprint(),
		Status:      StatusGenerating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	log := p.log.With(zap.String("fingerprint", article.Fingerprint))
	log.Info("generation started", zap.Int("target_chars", brief.TargetChars))

	outline, err := p.planner.Plan(ctx, brief)
	if err != nil {
		return nil, err
	}

	sections, err := p.drafter.Draft(ctx, brief, outline)
	if err != nil {
		return nil, err
	}

	p.cache.Report(article.Fingerprint, StatusLengthAdjusting)
	result, err := p.controller.Adjust(ctx, brief, outline.Title, sections)
	if err != nil {
		return nil, err
	}

	article.Title = outline.Title
	article.Body = result.Body
	article.CharCount = result.CharCount
	article.Rounds = result.Rounds
	article.LengthOutOfRange = !result.Converged

	p.finalizeMetadata(ctx, brief, article)

	article.Status = StatusReady
	article.UpdatedAt = time.Now().UTC()
	log.Info("generation finished",
		zap.Int("char_count", article.CharCount),
		zap.Int("rounds", article.Rounds),
		zap.Bool("length_out_of_range", article.LengthOutOfRange))
	return article, nil
}

type articleMeta struct {
	Slug    string   `json:"slug"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

var slugRe = regexp.MustCompile(`^[a-z0-9-]{3,80}$`)

// finalizeMetadata fills slug, excerpt and tags. The metadata call is best
// effort: any failure falls back to locally derived values and never fails
// the article.
func (p *Pipeline) finalizeMetadata(ctx context.Context, brief Brief, article *Article) {
	if !p.skipMeta {
		preview := article.Body
		if runes := []rune(preview); len(runes) > 1000 {
			preview = string(runes[:1000])
		}
		prompt := BuildFinalizePrompt(brief, article.Title, preview)
		if raw, err := p.client.Generate(ctx, prompt, finalizeMaxTokens); err == nil {
			var meta articleMeta
			if jsonErr := json.Unmarshal([]byte(extractJSON(raw)), &meta); jsonErr == nil {
				if slugRe.MatchString(meta.Slug) {
					article.Slug = meta.Slug
				}
				article.Excerpt = meta.Excerpt
				if len(meta.Tags) > 10 {
					meta.Tags = meta.Tags[:10]
				}
				article.Tags = meta.Tags
			}
		} else {
			p.log.Warn("metadata call failed, deriving defaults", zap.Error(err))
		}
	}

	if article.Slug == "" {
		if s := Slugify(article.Title); s != "" {
			article.Slug = s
		} else {
			article.Slug = "article-" + article.Fingerprint[:8]
		}
	}
	if article.Excerpt == "" {
		article.Excerpt = DeriveExcerpt(article.Body, excerptMaxChars)
	}
}
