package generator

import (
	"context"

	"go.uber.org/zap"
)

const (
	defaultMaxRounds = 3
	lengthTolerance  = 1000

	expandMaxTokens   = 2000
	condenseMaxTokens = 3000

	minAdjustChars = 200
	maxAdjustChars = 2000
)

// controlState drives the length-control loop. Transitions are decided only
// on a fresh measurement of the merged, sanitized document.
type controlState int

const (
	stateMeasuring controlState = iota
	stateExpanding
	stateCondensing
	stateDone
)

// AdjustResult is the outcome of the length-control loop.
type AdjustResult struct {
	Sections  []DraftSection
	Body      string
	CharCount int
	Rounds    int
	Converged bool
}

// LengthController iteratively steers a merged article into the target
// character window. Each round measures, adjusts exactly one section, and
// re-merges; rounds are strictly sequential.
type LengthController struct {
	client    *Client
	maxRounds int
	tolerance int
	log       *zap.Logger
}

func NewLengthController(client *Client, maxRounds int, log *zap.Logger) *LengthController {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LengthController{
		client:    client,
		maxRounds: maxRounds,
		tolerance: lengthTolerance,
		log:       log,
	}
}

// Window returns the acceptance bounds for a target length.
func (c *LengthController) Window(targetChars int) (lower, upper int) {
	return targetChars - c.tolerance, targetChars + c.tolerance
}

// Adjust runs the control loop. Non-convergence after the round cap is not an
// error: the result comes back with Converged=false and the caller flags the
// article rather than discarding it.
func (c *LengthController) Adjust(ctx context.Context, brief Brief, title string, sections []DraftSection) (AdjustResult, error) {
	lower, upper := c.Window(brief.TargetChars)
	body, count := MergeSections(title, sections)

	rounds := 0
	state := stateMeasuring
	for state != stateDone {
		switch state {
		case stateMeasuring:
			switch {
			case count >= lower && count <= upper:
				state = stateDone
			case rounds >= c.maxRounds:
				state = stateDone
			case count < lower:
				state = stateExpanding
			default:
				state = stateCondensing
			}

		case stateExpanding:
			idx := pickExpandTarget(sections, brief.TargetChars)
			if err := c.expandSection(ctx, brief, &sections[idx], brief.TargetChars-count); err != nil {
				return AdjustResult{}, err
			}
			rounds++
			body, count = MergeSections(title, sections)
			c.log.Info("expansion round complete",
				zap.Int("round", rounds), zap.Int("section", idx), zap.Int("chars", count))
			state = stateMeasuring

		case stateCondensing:
			idx := pickCondenseTarget(sections, brief.TargetChars)
			if err := c.condenseSection(ctx, brief.Tone, &sections[idx], count-brief.TargetChars); err != nil {
				return AdjustResult{}, err
			}
			rounds++
			body, count = MergeSections(title, sections)
			c.log.Info("condense round complete",
				zap.Int("round", rounds), zap.Int("section", idx), zap.Int("chars", count))
			state = stateMeasuring
		}
	}

	return AdjustResult{
		Sections:  sections,
		Body:      body,
		CharCount: count,
		Rounds:    rounds,
		Converged: count >= lower && count <= upper,
	}, nil
}

// expandSection splices additional prose into one section.
func (c *LengthController) expandSection(ctx context.Context, brief Brief, sec *DraftSection, deficit int) error {
	prompt := BuildExpandPrompt(brief, *sec, clampAdjust(deficit))
	extra, err := c.client.Generate(ctx, prompt, expandMaxTokens)
	if err != nil {
		return err
	}
	sec.Body = SanitizeMarkup(sec.Body + "\n\n" + extra)
	sec.CharCount = CountChars(sec.Body)
	return nil
}

// condenseSection replaces one section body with a tightened rewrite.
func (c *LengthController) condenseSection(ctx context.Context, tone Tone, sec *DraftSection, excess int) error {
	prompt := BuildCondensePrompt(tone, *sec, clampAdjust(excess))
	rewritten, err := c.client.Generate(ctx, prompt, condenseMaxTokens)
	if err != nil {
		return err
	}
	sec.Body = SanitizeMarkup(rewritten)
	sec.CharCount = CountChars(sec.Body)
	return nil
}

// pickExpandTarget selects the section with the most headroom relative to an
// even share of the target. Ties resolve to the earliest outline index.
func pickExpandTarget(sections []DraftSection, targetChars int) int {
	share := targetChars / len(sections)
	best, bestHeadroom := 0, share-sections[0].CharCount
	for i := 1; i < len(sections); i++ {
		if headroom := share - sections[i].CharCount; headroom > bestHeadroom {
			best, bestHeadroom = i, headroom
		}
	}
	return best
}

// pickCondenseTarget selects the section contributing the most excess.
// Ties resolve to the earliest outline index.
func pickCondenseTarget(sections []DraftSection, targetChars int) int {
	share := targetChars / len(sections)
	best, bestExcess := 0, sections[0].CharCount-share
	for i := 1; i < len(sections); i++ {
		if excess := sections[i].CharCount - share; excess > bestExcess {
			best, bestExcess = i, excess
		}
	}
	return best
}

func clampAdjust(n int) int {
	if n < minAdjustChars {
		return minAdjustChars
	}
	if n > maxAdjustChars {
		return maxAdjustChars
	}
	return n
}
