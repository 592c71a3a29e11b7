package config

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GenerationConfig holds the overrides applied when generating training
// messages rather than scoring uploads
type GenerationConfig struct {
	MaxTokens   int
	Temperature float32
	MaxAttempts int
}

// ScoringConfig holds scoring-side limits
type ScoringConfig struct {
	MaxBodyChars int
}

// EmailConfig represents the configuration for the outbound email provider
type EmailConfig struct {
	Provider string
}

// SendGridConfig represents the configuration for the SendGrid sender
type SendGridConfig struct {
	APIKey    string
	FromEmail string
}

// SMTPConfig represents the configuration for the SMTP sender
type SMTPConfig struct {
	Addr      string
	Username  string
	Password  string
	FromEmail string
}

// StoreConfig represents the configuration for the campaign store
type StoreConfig struct {
	Type        string
	SQLitePath  string
	PostgresDSN string
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress string
	PublicURL     string
}

// FrontendConfig holds the frontend URLs used in redirects and rewritten links
type FrontendConfig struct {
	BaseURL      string
	TrainingPage string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGeneration returns the generation overrides
func (c *Config) GetGeneration() GenerationConfig {
	return GenerationConfig{
		MaxTokens:   c.GetInt("generation.max_tokens"),
		Temperature: float32(c.GetFloat64("generation.temperature")),
		MaxAttempts: c.GetInt("generation.max_attempts"),
	}
}

// GetScoring returns the scoring limits
func (c *Config) GetScoring() ScoringConfig {
	return ScoringConfig{
		MaxBodyChars: c.GetInt("scoring.max_body_chars"),
	}
}

// GetEmail returns the outbound email provider configuration
func (c *Config) GetEmail() EmailConfig {
	return EmailConfig{
		Provider: c.GetString("email.provider"),
	}
}

// GetSendGrid returns the SendGrid configuration
func (c *Config) GetSendGrid() SendGridConfig {
	return SendGridConfig{
		APIKey:    c.GetString("sendgrid.api_key"),
		FromEmail: c.GetString("sendgrid.from_email"),
	}
}

// GetSMTP returns the SMTP configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Addr:      c.GetString("smtp.addr"),
		Username:  c.GetString("smtp.username"),
		Password:  c.GetString("smtp.password"),
		FromEmail: c.GetString("smtp.from_email"),
	}
}

// GetStore returns the campaign store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		PublicURL:     c.GetString("server.public_url"),
	}
}

// GetFrontend returns the frontend URL configuration
func (c *Config) GetFrontend() FrontendConfig {
	return FrontendConfig{
		BaseURL:      c.GetString("frontend.base_url"),
		TrainingPage: c.GetString("frontend.training_page"),
	}
}
