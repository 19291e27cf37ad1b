package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// canonicalBrief is the shape that actually gets hashed. Author is left out:
// it is presentation metadata and must not split the idempotency key.
type canonicalBrief struct {
	Summary     string   `json:"summary"`
	Goal        string   `json:"goal"`
	Audience    string   `json:"audience"`
	MustTopics  []string `json:"must_topics"`
	Bans        []string `json:"bans"`
	References  []string `json:"references"`
	Tone        string   `json:"tone"`
	TargetChars int      `json:"target_chars"`
}

// Canonicalize normalizes a Brief so that cosmetic differences do not change
// its Fingerprint: free-text fields are trimmed, the tone is lowercased, and
// the set-valued fields (must topics, bans) are trimmed and sorted.
// References keep their order; it is meaningful.
func Canonicalize(b Brief) Brief {
	out := b
	out.Summary = strings.TrimSpace(b.Summary)
	out.Goal = strings.TrimSpace(b.Goal)
	out.Audience = strings.TrimSpace(b.Audience)
	out.Author = strings.TrimSpace(b.Author)
	out.Tone = Tone(strings.ToLower(strings.TrimSpace(string(b.Tone))))
	out.MustTopics = trimAndSort(b.MustTopics)
	out.Bans = trimAndSort(b.Bans)
	out.References = trimAll(b.References)
	return out
}

// Fingerprint returns the idempotency key for a Brief: the first 32 hex chars
// of the SHA-256 over the canonicalized content.
func (b Brief) Fingerprint() string {
	c := Canonicalize(b)
	payload, _ := json.Marshal(canonicalBrief{
		Summary:     c.Summary,
		Goal:        c.Goal,
		Audience:    c.Audience,
		MustTopics:  c.MustTopics,
		Bans:        c.Bans,
		References:  c.References,
		Tone:        string(c.Tone),
		TargetChars: c.TargetChars,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:32]
}

func trimAndSort(in []string) []string {
	out := trimAll(in)
	sort.Strings(out)
	return out
}

// trimAll drops whitespace-only entries and trims the rest. An empty result
// becomes nil so that omitted and empty lists hash identically.
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
