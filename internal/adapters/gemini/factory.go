package gemini

import (
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	apiKey           string
	modelName        string
	scoreMaxTokens   int
	scoreTemperature float32
	genMaxTokens     int
	genTemperature   float32
	topP             float32
	logger           *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(
	apiKey string,
	modelName string,
	scoreMaxTokens int,
	scoreTemperature float32,
	genMaxTokens int,
	genTemperature float32,
	topP float32,
	logger *zap.Logger,
) *Factory {
	return &Factory{
		apiKey:           apiKey,
		modelName:        modelName,
		scoreMaxTokens:   scoreMaxTokens,
		scoreTemperature: scoreTemperature,
		genMaxTokens:     genMaxTokens,
		genTemperature:   genTemperature,
		topP:             topP,
		logger:           logger,
	}
}

// CreateLLMClient creates a new GeminiClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	return NewGeminiClient(
		f.apiKey,
		f.modelName,
		f.scoreMaxTokens,
		f.scoreTemperature,
		f.genMaxTokens,
		f.genTemperature,
		f.topP,
		f.logger,
	)
}
