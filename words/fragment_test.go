package words

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns words in order and a fixed candidate set per fragment.
type scriptedSource struct {
	words      []string
	candidates map[string]map[string]struct{}
	calls      int
}

func (s *scriptedSource) RandomWord(ctx context.Context) (string, error) {
	w := s.words[s.calls%len(s.words)]
	s.calls++
	return w, nil
}

func (s *scriptedSource) WordsContaining(ctx context.Context, fragment string) (map[string]struct{}, error) {
	return s.candidates[fragment], nil
}

func setOf(n int, prefix string) map[string]struct{} {
	m := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		m[prefix+string(rune('A'+i%26))+string(rune('A'+i/26))] = struct{}{}
	}
	return m
}

func TestFragmentPicker_RetriesUntilThreshold(t *testing.T) {
	src := &scriptedSource{
		words: []string{"QQQ", "ABCD"},
		candidates: map[string]map[string]struct{}{
			"QQ": setOf(2, "X"),
			"AB": setOf(30, "Y"),
		},
	}
	// fragment length 2 at start 0 on both draws
	picker := NewFragmentPicker(src, &MockRandom{}, 20, 10)

	round, err := picker.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AB", round.Fragment)
	assert.Len(t, round.Candidates, 30)
	assert.Equal(t, 2, src.calls)
}

func TestFragmentPicker_FallsBackToBest(t *testing.T) {
	src := &scriptedSource{
		words: []string{"QQQ", "ABCD"},
		candidates: map[string]map[string]struct{}{
			"QQ": setOf(2, "X"),
			"AB": setOf(5, "Y"),
		},
	}
	picker := NewFragmentPicker(src, &MockRandom{}, 20, 4)

	round, err := picker.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AB", round.Fragment)
	assert.Len(t, round.Candidates, 5)
	assert.Equal(t, 4, src.calls)
}

func TestFragmentPicker_RealIndex(t *testing.T) {
	idx := NewIndex(nil)
	idx.Load([]string{"stranger", "strange", "range", "orange", "arrange", "granger"})

	picker := NewFragmentPicker(idx, nil, 1, 5)
	round, err := picker.Next(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, round.Fragment)
	for w := range round.Candidates {
		assert.Contains(t, w, round.Fragment)
	}
}

func TestFragmentPicker_PropagatesSourceError(t *testing.T) {
	picker := NewFragmentPicker(NewIndex(nil), nil, 1, 3)
	_, err := picker.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoWords)
}
