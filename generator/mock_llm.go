package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MockLLM is a deterministic offline stand-in for local debugging and demos.
// It recognizes the pipeline's own prompt shapes and answers with plausible
// placeholder content of roughly the requested size. No external calls.
type MockLLM struct{}

var (
	aroundRe  = regexp.MustCompile(`Around (\d+) characters`)
	roughlyRe = regexp.MustCompile(`Roughly (\d+) additional characters`)
	cutRe     = regexp.MustCompile(`Cut roughly (\d+) characters`)
)

func (m MockLLM) Complete(_ context.Context, prompt Prompt, _ int64) (string, error) {
	user := prompt.User
	switch {
	case strings.HasPrefix(user, "Create the heading outline"):
		return m.outline()
	case strings.HasPrefix(user, "Write the full content"):
		return m.section(user), nil
	case strings.HasPrefix(user, "Add further depth"):
		return filler(matchedSize(roughlyRe, user, 600)), nil
	case strings.HasPrefix(user, "Rewrite the following section"):
		return m.condense(user), nil
	case strings.HasPrefix(user, "Produce publication metadata"):
		return `{"slug": "placeholder-article", "excerpt": "A placeholder excerpt for local runs.", "tags": ["placeholder"]}`, nil
	default:
		return filler(400), nil
	}
}

func (m MockLLM) outline() (string, error) {
	o := Outline{Title: "Placeholder Article Title"}
	for i := 1; i <= 7; i++ {
		o.Sections = append(o.Sections, OutlineSection{
			Heading:   fmt.Sprintf("Placeholder Section %d", i),
			SubPoints: []string{fmt.Sprintf("Point %d.1", i), fmt.Sprintf("Point %d.2", i)},
		})
	}
	payload, err := json.Marshal(o)
	return string(payload), err
}

func (m MockLLM) section(user string) string {
	heading := "Placeholder Section"
	if idx := strings.Index(user, "Heading: "); idx >= 0 {
		rest := user[idx+len("Heading: "):]
		if nl := strings.IndexByte(rest, '\n'); nl > 0 {
			heading = rest[:nl]
		}
	}
	return "## " + heading + "\n\n" + filler(matchedSize(aroundRe, user, minSectionChars))
}

func (m MockLLM) condense(user string) string {
	cut := matchedSize(cutRe, user, minAdjustChars)
	start := strings.Index(user, "### Current section content:\n")
	end := strings.Index(user, "\n\n### Requirements:")
	if start < 0 || end <= start {
		return filler(800)
	}
	body := user[start+len("### Current section content:\n") : end]
	runes := []rune(body)
	if len(runes) > cut {
		return string(runes[:len(runes)-cut])
	}
	return body
}

func matchedSize(re *regexp.Regexp, s string, fallback int) int {
	if m := re.FindStringSubmatch(s); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return fallback
}

const fillerSentence = "This placeholder sentence stands in for generated prose during local runs without an upstream model. "

// filler returns deterministic text with roughly n non-whitespace characters.
func filler(n int) string {
	var sb strings.Builder
	for CountChars(sb.String()) < n {
		sb.WriteString(fillerSentence)
	}
	return strings.TrimSpace(sb.String())
}
