package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentences(t *testing.T) {
	rng := NewRNG(4711)

	s := rng.Sentences(50, 3, 6, 20)

	require.Len(t, s, 50)
	for _, sentence := range s {
		assert.GreaterOrEqual(t, len(sentence), 3)
		assert.LessOrEqual(t, len(sentence), 6)
		for _, w := range sentence {
			assert.GreaterOrEqual(t, w, int32(0))
			assert.Less(t, w, int32(20))
		}
	}
}

func TestCountNgrams(t *testing.T) {
	got := CountNgrams([][]int32{{1, 2, 1, 2}}, 2)

	assert.Equal(t, []Ngram{
		{Words: []int32{1}, Count: 2},
		{Words: []int32{2}, Count: 2},
		{Words: []int32{1, 2}, Count: 2},
		{Words: []int32{2, 1}, Count: 1},
	}, got)
}

func TestCountNgrams_Closed(t *testing.T) {
	rng := NewRNG(4711)
	ngrams := CountNgrams(rng.Sentences(100, 2, 8, 50), 3)

	seen := make(map[string]bool, len(ngrams))
	for _, ng := range ngrams {
		seen[key(ng.Words)] = true
	}
	for _, ng := range ngrams {
		if len(ng.Words) > 1 {
			assert.True(t, seen[key(ng.Words[:len(ng.Words)-1])], "prefix of %v", ng.Words)
			assert.True(t, seen[key(ng.Words[1:])], "suffix of %v", ng.Words)
		}
	}
}

func TestSparse(t *testing.T) {
	rng := NewRNG(4711)
	ngrams := CountNgrams(rng.Sentences(100, 3, 8, 50), 3)

	sparse := rng.Sparse(ngrams, 0)

	for _, ng := range sparse {
		assert.Len(t, ng.Words, 3)
	}
	var longest int
	for _, ng := range ngrams {
		if len(ng.Words) == 3 {
			longest++
		}
	}
	assert.Len(t, sparse, longest)
}

func TestSplit(t *testing.T) {
	ngrams := make([]Ngram, 10)
	shards := Split(ngrams, 3)

	require.Len(t, shards, 3)
	assert.Len(t, shards[0], 4)
	assert.Len(t, shards[1], 3)
	assert.Len(t, shards[2], 3)
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	s1 := rng.Sentences(1, 5, 5, 100)
	rng.Reset()
	s2 := rng.Sentences(1, 5, 5, 100)

	assert.Equal(t, s1, s2)
	assert.Equal(t, int64(4711), rng.Seed())
}
