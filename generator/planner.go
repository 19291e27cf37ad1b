package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Structural bounds for a usable outline.
const (
	minSections  = 6
	maxSections  = 9
	minSubPoints = 2
	maxSubPoints = 3

	outlineMaxTokens = 2000
)

// Planner turns a Brief into a validated Outline via one LLM call.
type Planner struct {
	client *Client
	log    *zap.Logger
}

func NewPlanner(client *Client, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{client: client, log: log}
}

// Plan issues the outline call and validates the result. A structurally
// broken response is repaired when repair is loss-only (truncating excess);
// otherwise the call is retried once before PlanningError surfaces.
func (p *Planner) Plan(ctx context.Context, brief Brief) (Outline, error) {
	prompt := BuildOutlinePrompt(brief)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := p.client.Generate(ctx, prompt, outlineMaxTokens)
		if err != nil {
			return Outline{}, err
		}

		outline, err := parseOutline(raw)
		if err == nil {
			outline, err = repairOutline(outline)
		}
		if err == nil {
			p.log.Info("outline planned",
				zap.Int("sections", len(outline.Sections)),
				zap.String("title", outline.Title))
			return outline, nil
		}

		lastErr = err
		p.log.Warn("planner output rejected", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return Outline{}, &PlanningError{Reason: "structurally invalid outline after retry", Err: lastErr}
}

func parseOutline(raw string) (Outline, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return Outline{}, fmt.Errorf("no JSON object in planner response")
	}
	var o Outline
	if err := json.Unmarshal([]byte(payload), &o); err != nil {
		return Outline{}, fmt.Errorf("parse outline: %w", err)
	}
	return o, nil
}

// repairOutline enforces the structural bounds. Excess is truncated
// deterministically; a short outline is never padded by duplicating or
// splitting headings, it is rejected instead.
func repairOutline(o Outline) (Outline, error) {
	if strings.TrimSpace(o.Title) == "" {
		return Outline{}, fmt.Errorf("outline has no title")
	}
	if len(o.Sections) < minSections {
		return Outline{}, fmt.Errorf("outline has %d sections, need at least %d", len(o.Sections), minSections)
	}
	if len(o.Sections) > maxSections {
		o.Sections = o.Sections[:maxSections]
	}
	for i := range o.Sections {
		s := &o.Sections[i]
		if strings.TrimSpace(s.Heading) == "" {
			return Outline{}, fmt.Errorf("section %d has an empty heading", i)
		}
		if len(s.SubPoints) < minSubPoints {
			return Outline{}, fmt.Errorf("section %d has %d sub-points, need at least %d", i, len(s.SubPoints), minSubPoints)
		}
		if len(s.SubPoints) > maxSubPoints {
			s.SubPoints = s.SubPoints[:maxSubPoints]
		}
	}
	return o, nil
}

// extractJSON pulls the outermost JSON object out of a completion that may be
// wrapped in code fences or prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
