package generator

import (
	"regexp"
	"strings"
	"unicode"
)

// Markup allow-list for generated content. Anything else the model emits is
// stripped before the first length measurement, so counts never include
// markup that will not survive rendering.
var allowedTags = map[string]bool{
	"h2": true, "h3": true, "p": true,
	"ul": true, "ol": true, "li": true,
	"blockquote": true, "code": true, "pre": true,
	"strong": true, "em": true, "a": true,
}

var (
	tagRe        = regexp.MustCompile(`(?i)</?([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>`)
	anyTagRe     = regexp.MustCompile(`<[^>]*>`)
	jsLinkRe     = regexp.MustCompile(`(?i)\[([^\]]*)\]\(\s*javascript:[^)]*\)`)
	jsHrefAttrRe = regexp.MustCompile(`(?i)\s+href\s*=\s*["']\s*javascript:[^"']*["']`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeMarkup neutralizes generated markup outside the allow-list.
// Disallowed HTML tags are stripped (their text content is kept) and
// javascript: links are defused. Markdown structure passes through untouched.
func SanitizeMarkup(s string) string {
	s = jsLinkRe.ReplaceAllString(s, "$1")
	s = jsHrefAttrRe.ReplaceAllString(s, "")
	s = tagRe.ReplaceAllStringFunc(s, func(tag string) string {
		m := tagRe.FindStringSubmatch(tag)
		if len(m) < 2 {
			return ""
		}
		if allowedTags[strings.ToLower(m[1])] {
			return tag
		}
		return ""
	})
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// StripTags removes every HTML tag, leaving plain text plus markdown syntax.
func StripTags(s string) string {
	return anyTagRe.ReplaceAllString(s, "")
}

// CountChars measures content length the way the length controller sees it:
// non-whitespace runes of the tag-stripped text.
func CountChars(s string) int {
	n := 0
	for _, r := range StripTags(s) {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
