package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TrimMarker is inserted wherever body content was cut to fit the
// scoring budget.
const TrimMarker = "\n[... content trimmed ...]\n"

var (
	quotedReplyRe = regexp.MustCompile(`(?m)^On .*wrote:\s*$`)
	styleBlockRe  = regexp.MustCompile(`(?is)<(style|script|head)[^>]*>.*?</(style|script|head)>`)
	lineBreakRe   = regexp.MustCompile(`(?i)<(br\s*/?|/p|/div|/tr|/li)>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
)

// TextProcessor provides utilities for processing email text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// CondenseBody shrinks an email body to at most maxChars bytes. The body
// is split at the first quoted-reply marker ("On ... wrote:") and the
// primary segment is kept; any remaining budget is filled with trailing
// context from the quoted part. A primary segment that is itself over
// budget is trimmed with a proportional head/tail split (75%/25%) around
// an explicit trim marker, so the result is exactly maxChars bytes.
func (tp *TextProcessor) CondenseBody(body string, maxChars int) string {
	if maxChars <= 0 || len(body) <= maxChars {
		return body
	}

	primary, quoted := splitQuotedReply(body)

	if len(primary) <= maxChars {
		remaining := maxChars - len(primary) - len(TrimMarker)
		if remaining > 0 && quoted != "" {
			tail := quoted
			if len(tail) > remaining {
				tail = tail[len(tail)-remaining:]
			}
			tp.logCondensed(len(body), len(primary)+len(TrimMarker)+len(tail), maxChars)
			return primary + TrimMarker + tail
		}
		tp.logCondensed(len(body), len(primary), maxChars)
		return primary
	}

	condensed := headTailTrim(primary, maxChars)
	tp.logCondensed(len(body), len(condensed), maxChars)
	return condensed
}

func (tp *TextProcessor) logCondensed(original, condensed, max int) {
	if tp.logger == nil {
		return
	}
	tp.logger.Debug("Email body condensed",
		zap.Int("original_size", original),
		zap.Int("condensed_size", condensed),
		zap.Int("max_size", max))
}

// splitQuotedReply splits a body at the first quoted-reply marker. The
// second return value is empty when no marker is present.
func splitQuotedReply(body string) (primary, quoted string) {
	loc := quotedReplyRe.FindStringIndex(body)
	if loc == nil {
		return body, ""
	}
	return strings.TrimRight(body[:loc[0]], "\n"), body[loc[0]:]
}

// headTailTrim keeps roughly 75% of the budget from the head of the text
// and 25% from the tail, joined by the trim marker. The result is exactly
// maxChars bytes long.
func headTailTrim(text string, maxChars int) string {
	budget := maxChars - len(TrimMarker)
	if budget <= 0 {
		return text[:maxChars]
	}
	head := budget * 3 / 4
	tail := budget - head
	return text[:head] + TrimMarker + text[len(text)-tail:]
}

// StripHTML converts an HTML fragment to readable plain text: block
// boundaries become newlines, tags are dropped, and entities unescaped.
func (tp *TextProcessor) StripHTML(s string) string {
	s = styleBlockRe.ReplaceAllString(s, "")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	return truncated + TrimMarker
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	return string(result)
}
