// Package prompt builds the prompts shared by all LLM provider
// adapters, so the generation and scoring contracts stay identical
// regardless of which backend is configured.
package prompt

import (
	"fmt"
	"strings"

	"github.com/phishschool/backend/internal/core"
)

// Generation returns the prompt for generating one training message of
// the requested kind.
func Generation(req *core.GenerationRequest) string {
	parts := []string{
		"You are an expert message generator creating training materials for phishing detection education.",
		fmt.Sprintf("Generate a %s %s with %s difficulty level.", req.ContentType, req.MessageType, req.Difficulty),
	}

	if req.Theme != "" {
		parts = append(parts, fmt.Sprintf("Theme: %s", req.Theme))
	}
	if req.CustomPrompt != "" {
		parts = append(parts, fmt.Sprintf("Additional requirements: %s", req.CustomPrompt))
	}

	if req.ContentType == core.ContentTypePhishing {
		parts = append(parts,
			"Make it realistic but include subtle phishing indicators that security training participants should learn to identify.",
			"Include common phishing tactics like urgency, suspicious links, requests for personal information, or impersonation.",
		)
	} else {
		parts = append(parts,
			"Make it a legitimate, professional message that would be safe to interact with.",
			"Use proper formatting, legitimate-looking sender, and appropriate content.",
		)
	}

	if req.MessageType == core.MessageTypeEmail {
		parts = append(parts,
			"Format your response as a JSON object with the following structure:",
			`{"subject": "Email subject line", "sender": "sender@domain.com", "recipient": "recipient@domain.com", "body": "Email body content", "phishing_indicators": ["list", "of", "indicators"], "explanation": "Brief explanation of why this is phishing/legitimate"}`,
			"For legitimate emails, set phishing_indicators to null.",
			"Keep the email concise but realistic.",
		)
	} else {
		parts = append(parts,
			"Format your response as a JSON object with the following structure:",
			`{"phone_number": "+1234567890", "contact_name": "Contact Name", "message": "SMS message content", "phishing_indicators": ["list", "of", "indicators"], "explanation": "Brief explanation of why this is phishing/legitimate"}`,
			"For legitimate SMS, set phishing_indicators to null.",
			"Keep the SMS message short (under 160 characters) and realistic.",
			"Use realistic phone numbers and contact names appropriate for the theme.",
		)
	}

	parts = append(parts, "Respond only with the JSON object and nothing else.")

	return strings.Join(parts, "\n")
}

// Scoring returns the prompt for scoring email content. summary is the
// condensed plain-text rendering of the email (or, for images, a short
// description of what was attached).
func Scoring(summary string) string {
	return "You are a security analyst who labels content for phishing risk. " +
		"Given the provided information (which may include parsed email text or visual attachments), " +
		"assign a phishing likelihood score between 1 and 100, where 1 means certainly safe and 100 means certainly phishing. " +
		"If an image is provided, transcribe relevant text or describe critical visual cues before scoring. " +
		"Reply strictly as a compact JSON object with the following schema:\n" +
		`{"score": <integer>, "rationale": "<concise explanation>"}.` + "\n" +
		"Do not include Markdown, code fences, or any text outside the JSON object. " +
		"Keep the rationale to three sentences or fewer.\n\n" +
		"If the evidence appears incomplete or inconclusive, set the score to 50 and explain why.\n\n" +
		"Content to score:\n" + summary + "\n"
}

// ImageScoring returns the scoring prompt for an uploaded image.
func ImageScoring(filename string) string {
	return Scoring(fmt.Sprintf("An uploaded screenshot or photo named %q is attached. "+
		"Transcribe the visible text and note any suspicious visual cues before scoring.", filename))
}
