package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/prompt"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the LLMClient interface using
// Amazon Bedrock. Image payloads are not supported on this provider.
type BedrockClient struct {
	client           *bedrockruntime.Client
	modelID          string
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

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	scoreMaxTokens int,
	scoreTemperature float32,
	genMaxTokens int,
	genTemperature float32,
	topP float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:           client,
		modelID:          modelID,
		scoreMaxTokens:   scoreMaxTokens,
		scoreTemperature: scoreTemperature,
		genMaxTokens:     genMaxTokens,
		genTemperature:   genTemperature,
		topP:             topP,
		logger:           logger,
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.Contains(c.modelID, "amazon.titan")
}

// invoke sends a prompt to the configured model and returns its text
func (c *BedrockClient) invoke(ctx context.Context, promptText string, maxTokens int, temperature float32) (string, error) {
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", promptText),
			"max_tokens_to_sample": maxTokens,
			"temperature":          temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": promptText,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      promptText,
			"max_tokens":  maxTokens,
			"temperature": temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}
	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(resp.Body), nil
	}
}

// GenerateMessage produces one candidate training message
func (c *BedrockClient) GenerateMessage(ctx context.Context, req *core.GenerationRequest) (*core.GeneratedMessage, error) {
	responseText, err := c.invoke(ctx, prompt.Generation(req), c.genMaxTokens, c.genTemperature)
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
func (c *BedrockClient) ScoreText(ctx context.Context, summary string) (*core.ScoreResult, error) {
	responseText, err := c.invoke(ctx, prompt.Scoring(summary), c.scoreMaxTokens, c.scoreTemperature)
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
		ModelUsed:  c.modelID,
		AnalyzedAt: time.Now(),
	}, nil
}

// ScoreImage is not supported on Bedrock text models
func (c *BedrockClient) ScoreImage(ctx context.Context, promptText string, image *core.ImagePayload) (*core.ScoreResult, error) {
	return nil, core.ErrUnsupportedImage
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
