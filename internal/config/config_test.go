package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAndOverrides(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, 3, cfg.GetGeneration().MaxAttempts)
	assert.Equal(t, 2000, cfg.GetScoring().MaxBodyChars)

	cfg.Set("llm.provider", "openai")
	assert.Equal(t, "openai", cfg.GetLLM().Provider)
}

func TestConfigFileUsed(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	// No file was read, so the path is empty
	assert.Empty(t, cfg.ConfigFileUsed())
}

func TestGetDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("sweep.interval", "90s")

	d, err := cfg.GetDuration("sweep.interval")
	require.NoError(t, err)
	assert.Equal(t, "1m30s", d.String())

	cfg.Set("sweep.interval", "not-a-duration")
	_, err = cfg.GetDuration("sweep.interval")
	assert.Error(t, err)
}
