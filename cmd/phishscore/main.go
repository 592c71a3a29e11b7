package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phishschool/backend/internal/config"
	"github.com/phishschool/backend/internal/core"
	"github.com/phishschool/backend/internal/factory"
	"github.com/phishschool/backend/internal/logging"
	"github.com/phishschool/backend/internal/mailparse"
	"github.com/phishschool/backend/internal/utils"
	"go.uber.org/zap"
)

var (
	// LLM provider flags
	provider     = flag.String("provider", "gemini", "LLM provider (gemini, openai, bedrock)")
	maxTokens    = flag.Int("max-tokens", 800, "Maximum tokens for LLM response")
	temperature  = flag.Float64("temperature", 0.2, "Temperature for LLM scoring")
	topP         = flag.Float64("top-p", 0.9, "Top-p for LLM scoring")
	maxBodyChars = flag.Int("max-body-chars", 2000, "Maximum email body characters to send to LLM")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4o-mini", "OpenAI model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Input flags
	inputFile  = flag.String("file", "", "Input .eml file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	// Initialize LLM client and scorer
	llmFactory := factory.NewLLMFactory(cfg, logger)
	llmClient, err := llmFactory.CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	scorer := core.NewScorer(llmClient, logger)
	textProc := utils.NewTextProcessor(logger)

	// Read email from file or stdin
	var raw []byte
	if *inputFile != "" {
		raw, err = os.ReadFile(*inputFile)
		if err != nil {
			logger.Fatal("Failed to read input file", zap.Error(err), zap.String("file", *inputFile))
		}
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read stdin", zap.Error(err))
		}
		logger.Info("Reading email from stdin")
	}

	// Parse email
	parsed, err := mailparse.Parse(raw, textProc)
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", parsed.From)
	fmt.Printf("To: %s\n", parsed.To)
	fmt.Printf("Subject: %s\n", parsed.Subject)
	fmt.Printf("Body length: %d bytes\n", len(parsed.Body))
	fmt.Printf("\n")

	// Score email
	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))

	startTime := time.Now()
	result, err := scorer.ScoreText(context.Background(), parsed.Summary(textProc, cfg.GetScoring().MaxBodyChars))
	if err != nil {
		logger.Fatal("Failed to score email", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Phishing score: %d/100\n", result.Score)
	fmt.Printf("Rationale: %s\n", result.Rationale)
	fmt.Printf("Model used: %s\n", result.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)
	v.Set("scoring.max_body_chars", *maxBodyChars)

	switch *provider {
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	}

	return config.NewFromViper(v)
}
