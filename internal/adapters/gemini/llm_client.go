package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/prompt"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the LLMClient interface using
// Google Gemini. It holds two model handles: a creative one for
// message generation and a conservative one for scoring.
type GeminiClient struct {
	client     *genai.Client
	genModel   *genai.GenerativeModel
	scoreModel *genai.GenerativeModel
	modelName  string
	logger     *zap.Logger
}

// generationResponse is the structured generation output from the LLM
type generationResponse struct {
	Subject            string   `json:"subject"`
	Sender             string   `json:"sender"`
	Recipient          string   `json:"recipient"`
	Body               string   `json:"body"`
	PhoneNumber        string   `json:"phone_number"`
	ContactName        string   `json:"contact_name"`
	Message            string   `json:"message"`
	PhishingIndicators []string `json:"phishing_indicators"`
	Explanation        string   `json:"explanation"`
}

// scoreResponse is the structured scoring output from the LLM
type scoreResponse struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	scoreMaxTokens int,
	scoreTemperature float32,
	genMaxTokens int,
	genTemperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	scoreModel := client.GenerativeModel(modelName)
	scoreModel.SetTemperature(scoreTemperature)
	scoreModel.SetTopP(topP)
	scoreModel.SetMaxOutputTokens(int32(scoreMaxTokens))
	scoreModel.ResponseMIMEType = "application/json"
	scoreModel.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":     {Type: genai.TypeInteger},
			"rationale": {Type: genai.TypeString},
		},
		Required: []string{"score", "rationale"},
	}

	genModel := client.GenerativeModel(modelName)
	genModel.SetTemperature(genTemperature)
	genModel.SetTopP(topP)
	genModel.SetMaxOutputTokens(int32(genMaxTokens))
	genModel.ResponseMIMEType = "application/json"
	genModel.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subject":             {Type: genai.TypeString},
			"sender":              {Type: genai.TypeString},
			"recipient":           {Type: genai.TypeString},
			"body":                {Type: genai.TypeString},
			"phone_number":        {Type: genai.TypeString},
			"contact_name":        {Type: genai.TypeString},
			"message":             {Type: genai.TypeString},
			"phishing_indicators": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"explanation":         {Type: genai.TypeString},
		},
		Required: []string{"explanation"},
	}

	return &GeminiClient{
		client:     client,
		genModel:   genModel,
		scoreModel: scoreModel,
		modelName:  modelName,
		logger:     logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GenerateMessage produces one candidate training message
func (c *GeminiClient) GenerateMessage(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error) {
	resp, err := c.genModel.GenerateContent(ctx, genai.Text(prompt.Generation(req)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	responseText, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var gen generationResponse
	if err := unmarshalResponse(responseText, &gen); err != nil {
		return nil, err
	}

	return &core.GeneratedMessage{
		Subject:     gen.Subject,
		Sender:      gen.Sender,
		Recipient:   gen.Recipient,
		Body:        gen.Body,
		PhoneNumber: gen.PhoneNumber,
		ContactName: gen.ContactName,
		Message:     gen.Message,
		Indicators:  gen.PhishingIndicators,
		Explanation: gen.Explanation,
	}, nil
}

// ScoreText scores a condensed email summary for phishing likelihood
func (c *GeminiClient) ScoreText(ctx context.Context, summary string) (*core.ScoreResult, error) {
	resp, err := c.scoreModel.GenerateContent(ctx, genai.Text(prompt.Scoring(summary)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	return c.parseScore(resp)
}

// ScoreImage scores an inline image payload
func (c *GeminiClient) ScoreImage(ctx context.Context, promptText string, image *core.ImagePayload) (*core.ScoreResult, error) {
	blob := genai.Blob{MIMEType: image.MIMEType, Data: image.Data}
	resp, err := c.scoreModel.GenerateContent(ctx, genai.Text(promptText), blob)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	return c.parseScore(resp)
}

func (c *GeminiClient) parseScore(resp *genai.GenerateContentResponse) (*core.ScoreResult, error) {
	responseText, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	var score scoreResponse
	if err := unmarshalResponse(responseText, &score); err != nil {
		return nil, err
	}

	return &core.ScoreResult{
		Score:      score.Score,
		Rationale:  score.Rationale,
		ModelUsed:  c.modelName,
		AnalyzedAt: time.Now(),
	}, nil
}

// extractText collects the text parts of the first usable candidate
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var chunks []string
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok && strings.TrimSpace(string(text)) != "" {
				chunks = append(chunks, string(text))
			}
		}
		if len(chunks) > 0 {
			return strings.TrimSpace(strings.Join(chunks, "\n")), nil
		}
	}
	return "", fmt.Errorf("Gemini returned no usable text parts")
}

// unmarshalResponse parses the LLM's JSON response, falling back to
// extracting the outermost JSON object from surrounding text
func unmarshalResponse(responseText string, v interface{}) error {
	if err := json.Unmarshal([]byte(responseText), v); err != nil {
		jsonStart := strings.IndexByte(responseText, '{')
		jsonEnd := strings.LastIndexByte(responseText, '}')
		if jsonStart < 0 || jsonEnd < jsonStart {
			return fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), v); err != nil {
			return fmt.Errorf("failed to parse LLM response as JSON: %w", err)
		}
	}
	return nil
}
