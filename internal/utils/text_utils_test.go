package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProcessor() *TextProcessor {
	return NewTextProcessor(zap.NewNop())
}

func TestCondenseBodyUnderBudget(t *testing.T) {
	tp := newTestProcessor()
	body := "Short email body."
	assert.Equal(t, body, tp.CondenseBody(body, 2000))
}

func TestCondenseBodyLongBodyExactBudget(t *testing.T) {
	tp := newTestProcessor()
	body := strings.Repeat("a", 2801)

	condensed := tp.CondenseBody(body, 2000)

	require.Len(t, condensed, 2000)
	assert.Contains(t, condensed, TrimMarker)

	// Head keeps about three quarters of the budget, tail the rest
	idx := strings.Index(condensed, TrimMarker)
	budget := 2000 - len(TrimMarker)
	assert.Equal(t, budget*3/4, idx)
	assert.Equal(t, budget-budget*3/4, len(condensed)-idx-len(TrimMarker))
}

func TestCondenseBodyQuotedReplySplit(t *testing.T) {
	tp := newTestProcessor()
	primary := "Please review the attached invoice."
	quoted := "On Mon, Jan 6, 2025 at 9:00 AM Alice <alice@example.com> wrote:\n" +
		strings.Repeat("> quoted line\n", 400)
	body := primary + "\n\n" + quoted

	condensed := tp.CondenseBody(body, 500)

	require.LessOrEqual(t, len(condensed), 500)
	assert.True(t, strings.HasPrefix(condensed, primary))
	assert.Contains(t, condensed, TrimMarker)
	// Remaining budget is filled with trailing quoted context
	assert.True(t, strings.HasSuffix(condensed, "> quoted line\n"))
}

func TestCondenseBodyPrimaryOverBudget(t *testing.T) {
	tp := newTestProcessor()
	body := strings.Repeat("x", 1000) +
		"\nOn Tue, Feb 4, 2025 at 10:00 AM Bob <bob@example.com> wrote:\n> old\n"

	condensed := tp.CondenseBody(body, 300)

	assert.Len(t, condensed, 300)
	assert.Contains(t, condensed, TrimMarker)
}

func TestSplitQuotedReply(t *testing.T) {
	primary, quoted := splitQuotedReply("new text\n\nOn Jan 1 someone wrote:\n> old text\n")
	assert.Equal(t, "new text", primary)
	assert.True(t, strings.HasPrefix(quoted, "On Jan 1 someone wrote:"))

	primary, quoted = splitQuotedReply("no marker here")
	assert.Equal(t, "no marker here", primary)
	assert.Empty(t, quoted)
}

func TestStripHTML(t *testing.T) {
	tp := newTestProcessor()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "simple tags",
			html:     "<p>Hello <b>world</b></p>",
			expected: "Hello world",
		},
		{
			name:     "line breaks",
			html:     "line one<br>line two",
			expected: "line one\nline two",
		},
		{
			name:     "style block dropped",
			html:     "<style>body { color: red; }</style><p>visible</p>",
			expected: "visible",
		},
		{
			name:     "entities unescaped",
			html:     "Tom &amp; Jerry",
			expected: "Tom & Jerry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tp.StripHTML(tt.html))
		})
	}
}

func TestTruncateText(t *testing.T) {
	tp := newTestProcessor()
	assert.Equal(t, "short", tp.TruncateText("short", 100))

	long := strings.Repeat("b", 50)
	truncated := tp.TruncateText(long, 10)
	assert.True(t, strings.HasPrefix(truncated, "bbbbbbbbbb"))
	assert.True(t, strings.HasSuffix(truncated, TrimMarker))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := newTestProcessor()

	assert.Equal(t, "already clean", tp.SanitizeUTF8("already clean"))

	dirty := "caf\xffe menu"
	clean := tp.SanitizeUTF8(dirty)
	assert.True(t, utf8.ValidString(clean))
	assert.Equal(t, "cafe menu", clean)
}
