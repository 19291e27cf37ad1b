package generator

import (
	"fmt"
	"strings"
)

func systemPrompt(tone Tone) string {
	var sb strings.Builder
	sb.WriteString("You are a professional long-form writer and editor.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Output Markdown only, no commentary around it.\n")
	sb.WriteString("- Use only accurate, verifiable information; no speculation presented as fact.\n")
	sb.WriteString("- Inline HTML is limited to: h2, h3, p, ul, ol, li, blockquote, code, pre, strong, em, a.\n")
	if tone != "" {
		sb.WriteString(fmt.Sprintf("- Tone: %s.\n", tone))
	}
	return sb.String()
}

func briefContext(b Brief) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Summary: %s\n", b.Summary))
	sb.WriteString(fmt.Sprintf("Goal: %s\n", b.Goal))
	sb.WriteString(fmt.Sprintf("Audience: %s\n", b.Audience))
	if len(b.MustTopics) > 0 {
		sb.WriteString(fmt.Sprintf("Must cover: %s\n", strings.Join(b.MustTopics, ", ")))
	}
	if len(b.Bans) > 0 {
		sb.WriteString(fmt.Sprintf("Never mention: %s\n", strings.Join(b.Bans, ", ")))
	}
	if len(b.References) > 0 {
		sb.WriteString(fmt.Sprintf("Reference URLs: %s\n", strings.Join(b.References, ", ")))
	}
	return sb.String()
}

// BuildOutlinePrompt asks for the article skeleton as a JSON object.
func BuildOutlinePrompt(b Brief) Prompt {
	var sb strings.Builder
	sb.WriteString("Create the heading outline for an article.\n\n")
	sb.WriteString("### Article brief:\n")
	sb.WriteString(briefContext(b))
	sb.WriteString(fmt.Sprintf("Target length: %d characters\n\n", b.TargetChars))
	sb.WriteString("### Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Between %d and %d top-level sections.\n", minSections, maxSections))
	sb.WriteString(fmt.Sprintf("- Each section lists %d to %d sub-points.\n", minSubPoints, maxSubPoints))
	sb.WriteString("- Headings in logical reading order.\n\n")
	sb.WriteString("### Output format (JSON only, no prose):\n")
	sb.WriteString(`{"title": "Article title", "sections": [{"h2": "Section heading", "h3": ["Sub-point", "Sub-point"]}]}`)
	sb.WriteString("\n")
	return Prompt{System: systemPrompt(b.Tone), User: sb.String()}
}

// BuildSectionPrompt asks for the prose of a single outline section.
func BuildSectionPrompt(b Brief, s OutlineSection, targetChars int) Prompt {
	var sb strings.Builder
	sb.WriteString("Write the full content for one section of an article.\n\n")
	sb.WriteString("### Section:\n")
	sb.WriteString(fmt.Sprintf("Heading: %s\n", s.Heading))
	sb.WriteString(fmt.Sprintf("Sub-points: %s\n\n", strings.Join(s.SubPoints, ", ")))
	sb.WriteString("### Article context:\n")
	sb.WriteString(briefContext(b))
	sb.WriteString("\n### Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Around %d characters.\n", targetChars))
	sb.WriteString(fmt.Sprintf("- Open with the section heading as \"## %s\".\n", s.Heading))
	sb.WriteString("- Cover every sub-point under its own \"###\" heading.\n")
	sb.WriteString("- Concrete examples and reasoning over filler.\n")
	sb.WriteString("- Output the section Markdown only.\n")
	return Prompt{System: systemPrompt(b.Tone), User: sb.String()}
}

// BuildExpandPrompt asks for additional material inside an existing section.
// The expansion must stay inside the section: no new top-level headings,
// no topics outside the brief.
func BuildExpandPrompt(b Brief, s DraftSection, addChars int) Prompt {
	var sb strings.Builder
	sb.WriteString("Add further depth to one section of an article.\n\n")
	sb.WriteString(fmt.Sprintf("### Section heading: %s\n\n", s.Section.Heading))
	sb.WriteString("### Current section content:\n")
	sb.WriteString(s.Body)
	sb.WriteString("\n\n### Article context:\n")
	sb.WriteString(briefContext(b))
	sb.WriteString("\n### Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Roughly %d additional characters.\n", addChars))
	sb.WriteString("- Deepen the existing sub-points: concrete examples, practical detail.\n")
	sb.WriteString("- No new \"##\" headings and no topics beyond the brief.\n")
	sb.WriteString("- Output only the additional Markdown to append to this section.\n")
	return Prompt{System: systemPrompt(b.Tone), User: sb.String()}
}

// BuildCondensePrompt asks for a tightened rewrite of a section,
// preserving its sub-point structure.
func BuildCondensePrompt(tone Tone, s DraftSection, removeChars int) Prompt {
	var sb strings.Builder
	sb.WriteString("Rewrite the following section of an article more tightly.\n\n")
	sb.WriteString(fmt.Sprintf("### Section heading: %s\n\n", s.Section.Heading))
	sb.WriteString("### Current section content:\n")
	sb.WriteString(s.Body)
	sb.WriteString("\n\n### Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Cut roughly %d characters.\n", removeChars))
	sb.WriteString("- Keep the heading and every \"###\" sub-point.\n")
	sb.WriteString("- Drop redundancy and over-long examples, not substance.\n")
	sb.WriteString("- Output the complete rewritten section Markdown only.\n")
	return Prompt{System: systemPrompt(tone), User: sb.String()}
}

// BuildFinalizePrompt asks for publication metadata for a finished article.
func BuildFinalizePrompt(b Brief, title, bodyPreview string) Prompt {
	var sb strings.Builder
	sb.WriteString("Produce publication metadata for a finished article.\n\n")
	sb.WriteString(fmt.Sprintf("### Title: %s\n\n", title))
	sb.WriteString("### Opening of the article:\n")
	sb.WriteString(bodyPreview)
	sb.WriteString("\n\n### Output format (JSON only, no prose):\n")
	sb.WriteString(`{"slug": "url-friendly-slug", "excerpt": "one paragraph teaser", "tags": ["tag"]}`)
	sb.WriteString("\n- slug: lowercase ASCII letters, digits and hyphens only.\n")
	sb.WriteString("- excerpt: at most 300 characters.\n")
	sb.WriteString("- tags: at most 10.\n")
	return Prompt{System: systemPrompt(b.Tone), User: sb.String()}
}
