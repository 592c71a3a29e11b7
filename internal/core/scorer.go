package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Scorer asks the LLM backend for a phishing-likelihood score in
// [1,100] plus a rationale, for either condensed email text or an
// image payload.
type Scorer struct {
	llmClient LLMClient
	logger    *zap.Logger
}

// NewScorer creates a new Scorer
func NewScorer(llmClient LLMClient, logger *zap.Logger) *Scorer {
	return &Scorer{
		llmClient: llmClient,
		logger:    logger,
	}
}

// ScoreText scores a condensed plain-text email summary.
func (s *Scorer) ScoreText(ctx context.Context, summary string) (*ScoreResult, error) {
	result, err := s.llmClient.ScoreText(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMBackend, err)
	}
	return s.finalize(result)
}

// ScoreImage scores an image payload with a transcription-first prompt.
func (s *Scorer) ScoreImage(ctx context.Context, promptText string, image *ImagePayload) (*ScoreResult, error) {
	result, err := s.llmClient.ScoreImage(ctx, promptText, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMBackend, err)
	}
	return s.finalize(result)
}

func (s *Scorer) finalize(result *ScoreResult) (*ScoreResult, error) {
	result.Rationale = strings.TrimSpace(result.Rationale)
	if result.Rationale == "" {
		return nil, fmt.Errorf("%w: backend returned an empty rationale", ErrLLMBackend)
	}

	if result.Score < 1 {
		result.Score = 1
	} else if result.Score > 100 {
		result.Score = 100
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now()
	}

	s.logger.Debug("Content scored",
		zap.Int("score", result.Score),
		zap.String("model", result.ModelUsed))
	return result, nil
}
