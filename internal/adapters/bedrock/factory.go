package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of BedrockClient
type Factory struct {
	region           string
	modelID          string
	scoreMaxTokens   int
	scoreTemperature float32
	genMaxTokens     int
	genTemperature   float32
	topP             float32
	logger           *zap.Logger
}

// NewFactory creates a new factory for BedrockClient instances
func NewFactory(
	region string,
	modelID string,
	scoreMaxTokens int,
	scoreTemperature float32,
	genMaxTokens int,
	genTemperature float32,
	topP float32,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		region:           region,
		modelID:          modelID,
		scoreMaxTokens:   scoreMaxTokens,
		scoreTemperature: scoreTemperature,
		genMaxTokens:     genMaxTokens,
		genTemperature:   genTemperature,
		topP:             topP,
		logger:           logger,
	}
}

// CreateLLMClient creates a new BedrockClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(f.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)
	return NewBedrockClient(
		client,
		f.modelID,
		f.scoreMaxTokens,
		f.scoreTemperature,
		f.genMaxTokens,
		f.genTemperature,
		f.topP,
		f.logger,
	), nil
}
