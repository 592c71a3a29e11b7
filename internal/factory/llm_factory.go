package factory

import (
	"fmt"

	"github.com/phishschool/backend/internal/adapters/bedrock"
	"github.com/phishschool/backend/internal/adapters/gemini"
	"github.com/phishschool/backend/internal/adapters/openai"
	"github.com/phishschool/backend/internal/config"
	"github.com/phishschool/backend/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	gen := f.cfg.GetGeneration()

	switch provider := f.cfg.GetLLM().Provider; provider {
	case "gemini":
		c := f.cfg.GetGemini()
		factory := gemini.NewFactory(c.APIKey, c.ModelName,
			c.MaxTokens, c.Temperature,
			gen.MaxTokens, gen.Temperature, c.TopP, f.logger)
		return factory.CreateLLMClient()
	case "openai":
		c := f.cfg.GetOpenAI()
		factory := openai.NewFactory(c.APIKey, c.ModelName,
			c.MaxTokens, c.Temperature,
			gen.MaxTokens, gen.Temperature, c.TopP, f.logger)
		return factory.CreateLLMClient()
	case "bedrock":
		c := f.cfg.GetBedrock()
		factory := bedrock.NewFactory(c.Region, c.ModelID,
			c.MaxTokens, c.Temperature,
			gen.MaxTokens, gen.Temperature, c.TopP, f.logger)
		return factory.CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
