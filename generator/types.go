package generator

import "time"

// Tone controls the writing register of a generated article.
type Tone string

const (
	ToneTech     Tone = "tech"
	ToneBusiness Tone = "business"
	ToneCasual   Tone = "casual"
	ToneFormal   Tone = "formal"
	ToneAcademic Tone = "academic"
)

// Brief describes the intended article. Immutable once submitted.
type Brief struct {
	Summary     string   `json:"summary" validate:"required,min=50,max=1000"`
	Goal        string   `json:"goal" validate:"required,min=20,max=500"`
	Audience    string   `json:"audience" validate:"required,min=10,max=200"`
	MustTopics  []string `json:"must_topics" validate:"max=10"`
	Bans        []string `json:"bans" validate:"max=20"`
	References  []string `json:"references" validate:"max=5,dive,url"`
	Tone        Tone     `json:"tone" validate:"required,oneof=tech business casual formal academic"`
	TargetChars int      `json:"target_chars" validate:"required,min=9000,max=11000"`
	Author      string   `json:"author,omitempty" validate:"max=100"`
}

// OutlineSection is one top-level entry of an Outline.
type OutlineSection struct {
	Heading   string   `json:"h2"`
	SubPoints []string `json:"h3"`
	Drafted   bool     `json:"-"`
}

// Outline is the ordered section skeleton for an article.
// Section order is publication order; nothing downstream reorders it.
type Outline struct {
	Title    string           `json:"title"`
	Sections []OutlineSection `json:"sections"`
}

// DraftSection is one outline entry expanded into prose.
// Body is sanitized markdown; CharCount is measured over the sanitized text.
type DraftSection struct {
	Section   OutlineSection
	Body      string
	CharCount int
}

// Status is the lifecycle state of an Article.
type Status string

const (
	StatusPending         Status = "pending"
	StatusGenerating      Status = "generating"
	StatusLengthAdjusting Status = "length_adjusting"
	StatusReady           Status = "ready"
	StatusFailed          Status = "failed"
)

// Terminal reports whether no further pipeline processing occurs in this state.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Article is the merged, sanitized result of one pipeline run.
type Article struct {
	ID          string   `json:"id"`
	Fingerprint string   `json:"fingerprint"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Body        string   `json:"body"`
	CharCount   int      `json:"char_count"`
	Status      Status   `json:"status"`
	// LengthOutOfRange marks an article that never reached the target window
	// before the adjustment cap. The article is still returned; the caller
	// decides whether a flagged article is acceptable.
	LengthOutOfRange bool      `json:"length_out_of_range,omitempty"`
	Rounds           int       `json:"length_rounds,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
