package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScoreTextClampsScore(t *testing.T) {
	tests := []struct {
		name     string
		raw      int
		expected int
	}{
		{"below range", -5, 1},
		{"zero", 0, 1},
		{"in range", 42, 42},
		{"upper bound", 100, 100},
		{"above range", 250, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLMClient{
				scoreTextFunc: func(ctx context.Context, summary string) (*ScoreResult, error) {
					return &ScoreResult{Score: tt.raw, Rationale: "Testable reasoning."}, nil
				},
			}
			s := NewScorer(llm, zap.NewNop())

			result, err := s.ScoreText(context.Background(), "Subject: test\nBody:\nhello\n")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Score)
			assert.False(t, result.AnalyzedAt.IsZero())
		})
	}
}

func TestScoreTextEmptyRationale(t *testing.T) {
	llm := &fakeLLMClient{
		scoreTextFunc: func(ctx context.Context, summary string) (*ScoreResult, error) {
			return &ScoreResult{Score: 50, Rationale: "   "}, nil
		},
	}
	s := NewScorer(llm, zap.NewNop())

	_, err := s.ScoreText(context.Background(), "summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMBackend)
}

func TestScoreTextBackendError(t *testing.T) {
	llm := &fakeLLMClient{
		scoreTextFunc: func(ctx context.Context, summary string) (*ScoreResult, error) {
			return nil, errors.New("upstream auth failure")
		},
	}
	s := NewScorer(llm, zap.NewNop())

	_, err := s.ScoreText(context.Background(), "summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLMBackend)
	assert.Contains(t, err.Error(), "upstream auth failure")
}

func TestScoreImage(t *testing.T) {
	llm := &fakeLLMClient{
		scoreImageFunc: func(ctx context.Context, prompt string, image *ImagePayload) (*ScoreResult, error) {
			assert.Equal(t, "image/png", image.MIMEType)
			return &ScoreResult{Score: 88, Rationale: "Screenshot shows a fake login page."}, nil
		},
	}
	s := NewScorer(llm, zap.NewNop())

	result, err := s.ScoreImage(context.Background(), "describe and score", &ImagePayload{
		MIMEType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	})
	require.NoError(t, err)
	assert.Equal(t, 88, result.Score)
}
