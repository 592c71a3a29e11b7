package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/prompt"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface using
// OpenAI chat completions. Image scoring uses the vision input path
// with an inline data URL.
type OpenAIClient struct {
	client           *openai.Client
	modelName        string
	scoreMaxTokens   int
	scoreTemperature float32
	genMaxTokens     int
	genTemperature   float32
	topP             float32
	logger           *zap.Logger
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

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	modelName string,
	scoreMaxTokens int,
	scoreTemperature float32,
	genMaxTokens int,
	genTemperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	return &OpenAIClient{
		client:           openai.NewClient(apiKey),
		modelName:        modelName,
		scoreMaxTokens:   scoreMaxTokens,
		scoreTemperature: scoreTemperature,
		genMaxTokens:     genMaxTokens,
		genTemperature:   genTemperature,
		topP:             topP,
		logger:           logger,
	}
}

func (c *OpenAIClient) chat(ctx context.Context, system string, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: append([]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		}, messages...),
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateMessage produces one candidate training message
func (c *OpenAIClient) GenerateMessage(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error) {
	responseText, err := c.chat(ctx,
		"You are a phishing-awareness training content generator. Respond only with JSON.",
		[]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.Generation(req)},
		},
		c.genMaxTokens, c.genTemperature)
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
func (c *OpenAIClient) ScoreText(ctx context.Context, summary string) (*core.ScoreResult, error) {
	responseText, err := c.chat(ctx,
		"You are a security analyst scoring phishing risk. Respond only with JSON.",
		[]openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.Scoring(summary)},
		},
		c.scoreMaxTokens, c.scoreTemperature)
	if err != nil {
		return nil, err
	}
	return c.parseScore(responseText)
}

// ScoreImage scores an image payload supplied as an inline data URL
func (c *OpenAIClient) ScoreImage(ctx context.Context, promptText string, image *core.ImagePayload) (*core.ScoreResult, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", image.MIMEType, base64.StdEncoding.EncodeToString(image.Data))
	responseText, err := c.chat(ctx,
		"You are a security analyst scoring phishing risk. Respond only with JSON.",
		[]openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: promptText},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		c.scoreMaxTokens, c.scoreTemperature)
	if err != nil {
		return nil, err
	}
	return c.parseScore(responseText)
}

func (c *OpenAIClient) parseScore(responseText string) (*core.ScoreResult, error) {
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
