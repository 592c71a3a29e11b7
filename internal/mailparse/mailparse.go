// Package mailparse turns raw .eml byte streams into the normalized
// header/body form the scorer consumes.
package mailparse

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/phishschool/backend/internal/utils"
)

// fallbackBody stands in when a message carries no usable text part.
const fallbackBody = "[No text content found in message]"

// ParsedEmail is the normalized view of an uploaded .eml file. Missing
// headers default to empty strings.
type ParsedEmail struct {
	Subject string
	From    string
	To      string
	Date    string
	Body    string
}

// Parse reads an RFC 822 message, extracting the scoring-relevant
// headers and a plain-text body. Body preference: first text/plain
// part, else concatenated stripped-HTML text/html parts, else a
// fallback literal.
func Parse(raw []byte, tp *utils.TextProcessor) (*ParsedEmail, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .eml content: %w", err)
	}

	parsed := &ParsedEmail{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    decodeHeader(msg.Header.Get("From")),
		To:      decodeHeader(msg.Header.Get("To")),
		Date:    msg.Header.Get("Date"),
	}

	plain, html := collectParts(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	switch {
	case strings.TrimSpace(plain) != "":
		parsed.Body = tp.SanitizeUTF8(strings.TrimSpace(plain))
	case strings.TrimSpace(html) != "":
		parsed.Body = tp.SanitizeUTF8(tp.StripHTML(html))
	default:
		parsed.Body = fallbackBody
	}

	return parsed, nil
}

// Summary condenses the body and renders the Subject/From/To/Date/Body
// block handed to the scoring backend.
func (p *ParsedEmail) Summary(tp *utils.TextProcessor, maxBodyChars int) string {
	condensed := tp.CondenseBody(p.Body, maxBodyChars)
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", p.Subject)
	fmt.Fprintf(&b, "From: %s\n", p.From)
	fmt.Fprintf(&b, "To: %s\n", p.To)
	fmt.Fprintf(&b, "Date: %s\n", p.Date)
	fmt.Fprintf(&b, "Body:\n%s\n", condensed)
	return b.String()
}

// BodyPreview returns the first n bytes of the body for response
// metadata.
func (p *ParsedEmail) BodyPreview(n int) string {
	if len(p.Body) <= n {
		return p.Body
	}
	return p.Body[:n] + "..."
}

// collectParts walks the message, gathering text/plain and text/html
// content. Nested multiparts are descended into.
func collectParts(contentType, transferEncoding string, body io.Reader) (plain, html string) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		data, readErr := io.ReadAll(decodeTransfer(transferEncoding, body))
		if readErr != nil {
			return "", ""
		}
		if strings.Contains(strings.ToLower(mediaType), "text/html") {
			return "", string(data)
		}
		return string(data), ""
	}

	boundary, ok := params["boundary"]
	if !ok {
		data, readErr := io.ReadAll(body)
		if readErr != nil {
			return "", ""
		}
		return string(data), ""
	}

	mr := multipart.NewReader(body, boundary)
	var plainBuf, htmlBuf bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		partEncoding := part.Header.Get("Content-Transfer-Encoding")
		lower := strings.ToLower(partType)

		switch {
		case strings.Contains(lower, "multipart/"):
			p, h := collectParts(partType, partEncoding, part)
			plainBuf.WriteString(p)
			htmlBuf.WriteString(h)
		case strings.Contains(lower, "text/plain"):
			if data, err := io.ReadAll(decodeTransfer(partEncoding, part)); err == nil {
				plainBuf.Write(data)
				plainBuf.WriteString("\n")
			}
		case strings.Contains(lower, "text/html"):
			if data, err := io.ReadAll(decodeTransfer(partEncoding, part)); err == nil {
				htmlBuf.Write(data)
				htmlBuf.WriteString("\n")
			}
		}
		// Attachments and other parts are skipped
	}

	return plainBuf.String(), htmlBuf.String()
}

// decodeTransfer wraps a reader with the decoder for its
// Content-Transfer-Encoding.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodeHeader decodes RFC 2047 encoded-words, falling back to the raw
// value on malformed input.
func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
