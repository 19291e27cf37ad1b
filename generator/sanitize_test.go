package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMarkup_StripsDisallowedTags(t *testing.T) {
	in := `<p>fine</p><script>alert("x")</script><div class="wrap"><strong>bold</strong></div>`
	out := SanitizeMarkup(in)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<div")
	assert.Contains(t, out, "<p>fine</p>")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestSanitizeMarkup_KeepsAllowListedTags(t *testing.T) {
	in := "<h2>Heading</h2><ul><li>item</li></ul><blockquote cite=\"x\">q</blockquote><pre><code>x</code></pre>"
	assert.Equal(t, in, SanitizeMarkup(in))
}

func TestSanitizeMarkup_DefusesJavascriptLinks(t *testing.T) {
	md := `click [here](javascript:alert(1)) please`
	out := SanitizeMarkup(md)
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "here")

	html := `<a href="javascript:alert(1)">x</a> and <a href="https://example.com">ok</a>`
	out = SanitizeMarkup(html)
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestSanitizeMarkup_LeavesMarkdownAlone(t *testing.T) {
	md := "## Heading\n\nSome *emphasis* and a [link](https://example.com).\n\n- a list item"
	assert.Equal(t, md, SanitizeMarkup(md))
}

func TestSanitizeMarkup_CollapsesBlankRuns(t *testing.T) {
	out := SanitizeMarkup("one\n\n\n\n\ntwo")
	assert.Equal(t, "one\n\ntwo", out)
}

func TestCountChars_IgnoresWhitespaceAndTags(t *testing.T) {
	assert.Equal(t, 0, CountChars("  \n\t "))
	assert.Equal(t, 4, CountChars("<p>a b</p><em>c d</em>"))
	assert.Equal(t, 10, CountChars(strings.Repeat("x ", 10)))
}

func TestCountChars_CountsRunesNotBytes(t *testing.T) {
	assert.Equal(t, 5, CountChars("日本語の文"))
}
