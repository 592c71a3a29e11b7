package core

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// trackingPlaceholder is substituted with the click-tracking link when
// a generated body carries it.
const trackingPlaceholder = "{{TRACKING_URL}}"

// braceURLRe matches a single brace-delimited URL span embedded in a
// generated body, e.g. {http://secure-login.example.bad/verify}.
var braceURLRe = regexp.MustCompile(`\{(https?://[^{}\s]+)\}`)

// Renderer formats a CampaignEmail into the HTML document and plain
// text alternative handed to the email provider, applying both tracking
// strategies: placeholder substitution and brace-span rewriting.
type Renderer struct {
	publicURL    string
	trainingPage string
}

// NewRenderer creates a renderer. publicURL is this service's external
// base (for /track links), trainingPage the fixed "you got phished"
// page embedded brace-span URLs are rewritten to.
func NewRenderer(publicURL, trainingPage string) *Renderer {
	return &Renderer{
		publicURL:    strings.TrimRight(publicURL, "/"),
		trainingPage: trainingPage,
	}
}

// TrackingURL returns the click-tracking endpoint for a token
func (r *Renderer) TrackingURL(trackingID string) string {
	return r.publicURL + "/track/" + trackingID
}

// RewriteBraceSpan rewrites the first {url} span in an HTML-escaped
// body into an anchor pointing at the training page while preserving
// the visible, malicious-looking text. Bodies without a brace span are
// returned unchanged.
func (r *Renderer) RewriteBraceSpan(escapedBody string) string {
	rewritten := false
	return braceURLRe.ReplaceAllStringFunc(escapedBody, func(span string) string {
		if rewritten {
			return span
		}
		rewritten = true
		visible := span[1 : len(span)-1]
		return fmt.Sprintf(`<a href="%s">%s</a>`, r.trainingPage, visible)
	})
}

// rewriteBraceSpanText is the plain-text counterpart: the visible span
// text followed by the training page reference.
func (r *Renderer) rewriteBraceSpanText(body string) string {
	rewritten := false
	return braceURLRe.ReplaceAllStringFunc(body, func(span string) string {
		if rewritten {
			return span
		}
		rewritten = true
		visible := span[1 : len(span)-1]
		return fmt.Sprintf("%s (%s)", visible, r.trainingPage)
	})
}

// RenderHTML produces the HTML document for a campaign email.
func (r *Renderer) RenderHTML(e *CampaignEmail) string {
	badgeClass := "legitimate"
	badgeText := "LEGITIMATE"
	if e.EmailType == ContentTypePhishing {
		badgeClass = "phishing"
		badgeText = "PHISHING"
	}

	body := html.EscapeString(e.Body)
	body = r.RewriteBraceSpan(body)
	body = strings.ReplaceAll(body, "\n", "<br>")

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(e.Subject))
	b.WriteString(`<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
.badge { display: inline-block; padding: 5px 10px; border-radius: 3px; font-size: 12px; font-weight: bold; }
.phishing { background: #dc3545; color: white; }
.legitimate { background: #28a745; color: white; }
.content { background: white; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
.footer { margin-top: 20px; padding: 15px; background: #f8f9fa; border-radius: 5px; font-size: 12px; color: #666; }
.indicators { background: #fff3cd; border: 1px solid #ffeaa7; padding: 10px; border-radius: 5px; margin: 10px 0; }
</style>
</head>
<body>
`)
	fmt.Fprintf(&b, "<div class=\"header\">\n<h2>%s</h2>\n<span class=\"badge %s\">%s</span>\n</div>\n",
		html.EscapeString(e.Subject), badgeClass, badgeText)
	b.WriteString("<div class=\"content\">\n")
	fmt.Fprintf(&b, "<p><strong>From:</strong> %s</p>\n", html.EscapeString(e.SenderEmail))
	fmt.Fprintf(&b, "<p><strong>To:</strong> %s</p>\n", html.EscapeString(e.RecipientEmail))
	fmt.Fprintf(&b, "<div style=\"margin: 20px 0; padding: 20px; background: #f8f9fa; border-radius: 5px;\">%s</div>\n", body)

	if len(e.Indicators) > 0 {
		b.WriteString("<div class=\"indicators\">\n<h4>Phishing Indicators:</h4>\n<ul>\n")
		for _, ind := range e.Indicators {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(ind))
		}
		b.WriteString("</ul>\n</div>\n")
	}
	if e.Explanation != "" {
		fmt.Fprintf(&b, "<div style=\"background: #e7f3ff; border: 1px solid #b3d9ff; padding: 10px; border-radius: 5px; margin: 10px 0;\"><h4>Explanation:</h4><p>%s</p></div>\n",
			html.EscapeString(e.Explanation))
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"footer\">\n<p><strong>This is a PhishSchool training email.</strong></p>\n")
	b.WriteString("<p>This email was generated for educational purposes to help you learn how to identify phishing attempts.</p>\n")
	b.WriteString(trackingPlaceholder + "\n</div>\n</body>\n</html>\n")

	return r.substituteTracking(b.String(), e, true)
}

// RenderText produces the plain-text alternative.
func (r *Renderer) RenderText(e *CampaignEmail) string {
	badge := "LEGITIMATE"
	if e.EmailType == ContentTypePhishing {
		badge = "PHISHING"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	fmt.Fprintf(&b, "From: %s\n", e.SenderEmail)
	fmt.Fprintf(&b, "To: %s\n", e.RecipientEmail)
	fmt.Fprintf(&b, "Type: %s\n\n", badge)
	b.WriteString(r.rewriteBraceSpanText(e.Body))
	b.WriteString("\n\n")

	if len(e.Indicators) > 0 {
		b.WriteString("Phishing Indicators:\n")
		for _, ind := range e.Indicators {
			fmt.Fprintf(&b, "- %s\n", ind)
		}
		b.WriteString("\n")
	}
	if e.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n\n", e.Explanation)
	}

	b.WriteString("This is a PhishSchool training email for educational purposes.\n")
	b.WriteString(trackingPlaceholder + "\n")

	return r.substituteTracking(b.String(), e, false)
}

// substituteTracking replaces the tracking placeholder with a link for
// tracked phishing emails and removes it otherwise.
func (r *Renderer) substituteTracking(content string, e *CampaignEmail, asHTML bool) string {
	if e.EmailType == ContentTypePhishing && e.TrackingID != "" {
		url := r.TrackingURL(e.TrackingID)
		if asHTML {
			link := fmt.Sprintf(`<a href="%s" style="color: #007bff; text-decoration: underline;">Click here</a>`, url)
			return strings.ReplaceAll(content, trackingPlaceholder, link)
		}
		return strings.ReplaceAll(content, trackingPlaceholder, "Click here: "+url)
	}
	return strings.ReplaceAll(content, trackingPlaceholder, "")
}
