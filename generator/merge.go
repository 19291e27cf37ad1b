package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// MergeSections assembles drafted sections into one document: title heading,
// then each section in outline order with a structural separator. The merged
// text is sanitized before its length is measured, so every later comparison
// runs against sanitized length, never raw model output.
func MergeSections(title string, sections []DraftSection) (body string, charCount int) {
	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(strings.TrimSpace(title))
	sb.WriteString("\n")

	for _, sec := range sections {
		sb.WriteString("\n")
		text := strings.TrimSpace(sec.Body)
		heading := fmt.Sprintf("## %s", sec.Section.Heading)
		if !strings.HasPrefix(text, heading) {
			sb.WriteString(heading)
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	merged := SanitizeMarkup(sb.String())
	return merged, CountChars(merged)
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-friendly slug from a title. Non-ASCII titles may
// reduce to an empty slug; the caller falls back to the fingerprint then.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	return s
}

// DeriveExcerpt takes the first prose paragraph of a merged body, truncated
// to maxLen runes at a word boundary where possible.
func DeriveExcerpt(body string, maxLen int) string {
	for _, para := range strings.Split(body, "\n\n") {
		line := strings.TrimSpace(para)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.Join(strings.Fields(StripTags(line)), " ")
		runes := []rune(line)
		if len(runes) <= maxLen {
			return line
		}
		cut := string(runes[:maxLen])
		if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
			cut = cut[:idx]
		}
		return strings.TrimSpace(cut) + "…"
	}
	return ""
}
