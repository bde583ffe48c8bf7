package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockScoreIsDeterministic(t *testing.T) {
	m := NewMock()
	ctx := context.Background()
	params := ScoreParams{FileName: "resume.pdf", Resume: []byte("same resume bytes")}

	first, err := m.Score(ctx, params)
	require.NoError(t, err)
	second, err := m.Score(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
}

func TestMockScoreRange(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	inputs := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("longer resume content with more entropy"),
		make([]byte, 4096),
	}
	for _, resume := range inputs {
		result, err := m.Score(ctx, ScoreParams{Resume: resume})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Score, 40.0)
		assert.LessOrEqual(t, result.Score, 95.0)
	}
}

func TestMockScoreFindings(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	result, err := m.Score(ctx, ScoreParams{Resume: []byte("resume")})
	require.NoError(t, err)
	assert.Len(t, result.Findings, 1)

	result, err = m.Score(ctx, ScoreParams{Resume: []byte("resume"), JobDescription: "Go engineer"})
	require.NoError(t, err)
	assert.Len(t, result.Findings, 2, "job description adds a keyword finding")
}
