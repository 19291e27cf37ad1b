package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedAdjuster answers expand prompts with a fixed-size addition and
// condense prompts with a fixed-size replacement body, recording which
// section each adjustment touched.
type scriptedAdjuster struct {
	expandChars   int
	condenseChars int
	touched       []string
}

func (s *scriptedAdjuster) llm() llmFunc {
	return func(_ context.Context, p Prompt, _ int64) (string, error) {
		heading := headingFromAdjustPrompt(p.User)
		s.touched = append(s.touched, heading)
		switch promptKind(p) {
		case "expand":
			return strings.Repeat("e", s.expandChars), nil
		case "condense":
			return strings.Repeat("c", s.condenseChars), nil
		default:
			return "", assert.AnError
		}
	}
}

func headingFromAdjustPrompt(user string) string {
	const marker = "### Section heading: "
	start := strings.Index(user, marker)
	if start < 0 {
		return ""
	}
	rest := user[start+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		return rest[:nl]
	}
	return rest
}

// newController bypasses the constructor so a zero round budget stays zero
// instead of falling back to the default.
func newController(s *scriptedAdjuster, maxRounds int) *LengthController {
	return &LengthController{
		client:    fastClient(s.llm(), 1),
		maxRounds: maxRounds,
		tolerance: lengthTolerance,
		log:       zap.NewNop(),
	}
}

func TestAdjust_AlreadyWithinWindowDoesNothing(t *testing.T) {
	s := &scriptedAdjuster{}
	c := newController(s, 3)
	sections := sectionsOfSizes(1400, 1400, 1400, 1400, 1400, 1400, 1400) // ~9800 + headings

	res, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Rounds)
	assert.Empty(t, s.touched)
}

func TestAdjust_TooShortExpandsIntoWindow(t *testing.T) {
	// Seven sections totalling ~8500 against a 10000 target; one 700-char
	// expansion lands inside [9000, 11000].
	s := &scriptedAdjuster{expandChars: 700}
	c := newController(s, 3)
	sections := sectionsOfSizes(1200, 1200, 1200, 1200, 1200, 1200, 1300)

	res, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Rounds)
	assert.GreaterOrEqual(t, res.CharCount, 9000)
	assert.LessOrEqual(t, res.CharCount, 11000)
	// The smallest section has the most headroom; all at 1200 tie, first wins.
	require.Len(t, s.touched, 1)
	assert.Equal(t, "Section A", s.touched[0])
}

func TestAdjust_TooLongCondensesIntoWindow(t *testing.T) {
	s := &scriptedAdjuster{condenseChars: 1400}
	c := newController(s, 3)
	// Section D is the heavy one.
	sections := sectionsOfSizes(1400, 1400, 1400, 5000, 1400, 1400, 1400)

	res, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Rounds)
	require.Len(t, s.touched, 1)
	assert.Equal(t, "Section D", s.touched[0])
}

func TestAdjust_RoundCapReachedFlagsNotFails(t *testing.T) {
	s := &scriptedAdjuster{expandChars: 300}
	c := newController(s, 3)
	sections := sectionsOfSizes(1000, 1000, 1000, 1000, 1000, 1000) // ~6000, far short

	res, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	require.NoError(t, err, "non-convergence is a flag, never an error")
	assert.False(t, res.Converged)
	assert.Equal(t, 3, res.Rounds)
	assert.Less(t, res.CharCount, 9000)
	assert.NotEmpty(t, res.Body, "the flagged article is still returned")
}

func TestAdjust_ConvergenceIsMonotonic(t *testing.T) {
	// With a fixed deterministic expansion, every extra round moves the
	// count strictly closer to the target and never oscillates.
	target := testBrief().TargetChars
	var prevDistance int
	for rounds := 0; rounds <= 3; rounds++ {
		s := &scriptedAdjuster{expandChars: 500}
		c := newController(s, rounds)
		sections := sectionsOfSizes(1000, 1000, 1000, 1000, 1000, 1000, 1400)

		res, err := c.Adjust(context.Background(), testBrief(), "T", sections)
		require.NoError(t, err)
		assert.Equal(t, rounds, res.Rounds)
		distance := target - res.CharCount
		require.Greater(t, distance, 0, "deterministic expansion must not overshoot")
		if rounds > 0 {
			assert.Less(t, distance, prevDistance, "round %d must close the gap", rounds)
		}
		prevDistance = distance
	}
}

func TestAdjust_OneSectionPerRound(t *testing.T) {
	s := &scriptedAdjuster{expandChars: 400}
	c := newController(s, 3)
	sections := sectionsOfSizes(900, 1000, 1100, 1000, 1000, 1000, 1000)

	_, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s.touched), 3)
}

func TestPickExpandTarget_TieBreaksToEarliestIndex(t *testing.T) {
	sections := sectionsOfSizes(1000, 1000, 1000, 1000, 1000, 1000)
	assert.Equal(t, 0, pickExpandTarget(sections, 10000))

	sections[3].CharCount = 500
	assert.Equal(t, 3, pickExpandTarget(sections, 10000))
}

func TestPickCondenseTarget_TieBreaksToEarliestIndex(t *testing.T) {
	sections := sectionsOfSizes(2000, 2000, 2000, 2000, 2000, 2000)
	assert.Equal(t, 0, pickCondenseTarget(sections, 9000))

	sections[4].CharCount = 4000
	assert.Equal(t, 4, pickCondenseTarget(sections, 9000))
}

func TestAdjust_UpstreamErrorAborts(t *testing.T) {
	llm := llmFunc(func(context.Context, Prompt, int64) (string, error) {
		return "", &UpstreamError{Op: "complete", Status: 400, Err: assert.AnError}
	})
	c := NewLengthController(fastClient(llm, 1), 3, nil)
	sections := sectionsOfSizes(1000, 1000, 1000, 1000, 1000, 1000)

	_, err := c.Adjust(context.Background(), testBrief(), "T", sections)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
}
