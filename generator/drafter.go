package generator

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDraftConcurrency = 3

	sectionMaxTokens = 4000

	// Per-section share of the target, clamped so a sparse outline does not
	// produce monster sections and a dense one does not produce stubs.
	minSectionChars = 1500
	maxSectionChars = 3000
)

// Drafter expands outline sections into prose, fanning out to a bounded
// number of concurrent upstream calls and fanning back in before merge.
type Drafter struct {
	client      *Client
	concurrency int64
	log         *zap.Logger
}

func NewDrafter(client *Client, concurrency int, log *zap.Logger) *Drafter {
	if concurrency <= 0 {
		concurrency = defaultDraftConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Drafter{client: client, concurrency: int64(concurrency), log: log}
}

// Draft generates every section of the outline concurrently and returns the
// results in outline order regardless of completion order. If any section
// fails after retries the whole draft fails; partial articles are never kept.
func (d *Drafter) Draft(ctx context.Context, brief Brief, outline Outline) ([]DraftSection, error) {
	sections := outline.Sections
	target := sectionTarget(brief.TargetChars, len(sections))

	results := make([]DraftSection, len(sections))
	sem := semaphore.NewWeighted(d.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, sec := range sections {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			prompt := BuildSectionPrompt(brief, sec, target)
			raw, err := d.client.Generate(gctx, prompt, sectionMaxTokens)
			if err != nil {
				return &DraftingError{Index: i, Heading: sec.Heading, Err: err}
			}

			body := SanitizeMarkup(raw)
			drafted := sec
			drafted.Drafted = true
			results[i] = DraftSection{
				Section:   drafted,
				Body:      body,
				CharCount: CountChars(body),
			}
			d.log.Debug("section drafted",
				zap.Int("index", i),
				zap.String("heading", sec.Heading),
				zap.Int("chars", results[i].CharCount))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func sectionTarget(targetChars, sections int) int {
	if sections <= 0 {
		return minSectionChars
	}
	per := targetChars / sections
	if per < minSectionChars {
		return minSectionChars
	}
	if per > maxSectionChars {
		return maxSectionChars
	}
	return per
}
