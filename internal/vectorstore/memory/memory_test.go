package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

func testChunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Index: i, Text: t}
	}
	return out
}

func TestBuild_DropsFailedEmbeddingsInLockstep(t *testing.T) {
	embed := func(_ context.Context, text string) ([]float64, error) {
		switch {
		case strings.HasPrefix(text, "err"):
			return nil, errors.New("backend down")
		case strings.HasPrefix(text, "nil"):
			return nil, nil
		}
		return []float64{float64(len(text)), 1}, nil
	}

	s := Build(context.Background(), testChunks("alpha", "err-1", "beta", "nil-1", "gamma"), embed)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Failed)
	assert.Len(t, s.Vectors(), len(s.Chunks()))

	chunks := s.Chunks()
	assert.Equal(t, "alpha", chunks[0].Text)
	assert.Equal(t, "beta", chunks[1].Text)
	assert.Equal(t, "gamma", chunks[2].Text)
	assert.Equal(t, []float64{4, 1}, s.Vectors()[1])
}

func TestBuild_AllFailIsEmptyNotError(t *testing.T) {
	embed := func(context.Context, string) ([]float64, error) { return nil, domain.ErrEmbeddingUnavailable }
	s := Build(context.Background(), testChunks("a", "b"), embed)

	assert.Zero(t, s.Len())
	assert.Equal(t, 2, s.Failed)

	_, err := s.Search([]float64{1}, 3)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestStorage_AccessorsReturnCopies(t *testing.T) {
	embed := func(context.Context, string) ([]float64, error) { return []float64{1, 2}, nil }
	s := Build(context.Background(), testChunks("a"), embed)

	s.Vectors()[0][0] = 99
	s.Chunks()[0].Text = "mutated"

	assert.Equal(t, []float64{1, 2}, s.Vectors()[0])
	assert.Equal(t, "a", s.Chunks()[0].Text)
}

func TestStorage_Search(t *testing.T) {
	vecs := map[string][]float64{
		"north": {0, 1},
		"east":  {1, 0},
		"ne":    {1, 1},
	}
	embed := func(_ context.Context, text string) ([]float64, error) { return vecs[text], nil }
	s := Build(context.Background(), testChunks("north", "east", "ne"), embed)

	res, err := s.Search([]float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "east", res[0].Chunk.Text)
	assert.Equal(t, "ne", res[1].Chunk.Text)
}
