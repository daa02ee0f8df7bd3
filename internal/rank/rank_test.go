package rank

import (
	"bytes"
	"testing"

	"github.com/hupe1980/ngramstore/internal/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probBackoff struct {
	Prob    float32
	Backoff float32
}

func TestBuildTable_FrequencyOrder(t *testing.T) {
	h := NewHistogram[uint64]()
	for range 3 {
		h.Add(7)
	}
	h.Add(9)
	for range 5 {
		h.Add(1)
	}
	h.Add(4)

	tbl := BuildTable(h)
	assert.Equal(t, uint64(5), tbl.Len(), "4 values + placeholder")

	r1, _ := tbl.Rank(1)
	r7, _ := tbl.Rank(7)
	r9, _ := tbl.Rank(9)
	r4, _ := tbl.Rank(4)
	assert.Equal(t, []uint64{1, 2, 3, 4}, []uint64{r1, r7, r9, r4}, "ties keep first appearance")

	_, ok := tbl.Value(PlaceholderRank)
	assert.False(t, ok)
	v, ok := tbl.Value(r7)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), v)
}

func TestTable_PlaceholderAlwaysReserved(t *testing.T) {
	tbl := BuildTable(NewHistogram[probBackoff]())
	assert.Equal(t, uint64(1), tbl.Len())
	assert.Equal(t, uint8(1), tbl.Width())
}

func TestStore_SetGetPlaceholder(t *testing.T) {
	h := NewHistogram[probBackoff]()
	h.Add(probBackoff{-1.5, -0.25})
	h.Add(probBackoff{-2, 0})
	s := NewStore(BuildTable(h), 2, false, 4)
	s.EnsureOrder(0, 8)

	require.NoError(t, s.Set(0, 3, Some(probBackoff{-2, 0})))
	v, ok := s.Get(0, 3)
	assert.True(t, ok)
	assert.Equal(t, probBackoff{-2, 0}, v)

	// Placeholder does not overwrite a real value.
	require.NoError(t, s.Set(0, 3, Placeholder[probBackoff]()))
	_, ok = s.Get(0, 3)
	assert.True(t, ok)

	require.NoError(t, s.Set(0, 4, Placeholder[probBackoff]()))
	_, ok = s.Get(0, 4)
	assert.False(t, ok, "placeholder reads as missing")

	err := s.Set(0, 5, Some(probBackoff{-9, -9}))
	assert.ErrorIs(t, err, ErrUnknownValue)
}

func TestStore_GrowingCompact(t *testing.T) {
	s := NewStore(NewGrowingTable[uint64](), 2, false, 3)
	s.EnsureOrder(0, 4)
	s.EnsureOrder(1, 300)

	// Value 100 first seen but rare; value 5 frequent.
	require.NoError(t, s.Set(0, 0, Some[uint64](100)))
	for i := uint64(0); i < 300; i++ {
		require.NoError(t, s.Set(1, i, Some[uint64](5+i%3*1000)))
	}
	require.NoError(t, s.Set(1, 0, Some[uint64](5)))
	assert.True(t, s.Table().Growing())

	s.Compact()
	assert.False(t, s.Table().Growing())

	r5, _ := s.Table().Rank(5)
	r100, _ := s.Table().Rank(100)
	assert.Equal(t, uint64(1), r5, "most frequent value gets rank 1")
	assert.Equal(t, uint64(4), r100)

	v, ok := s.Get(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(100), v)
	for i := uint64(1); i < 300; i++ {
		v, ok := s.Get(1, i)
		require.True(t, ok)
		assert.Equal(t, 5+i%3*1000, v)
	}
	assert.Equal(t, uint8(3), s.Column(1).Ranks.Width())
}

func TestStore_SwapAndSuffix(t *testing.T) {
	h := NewHistogram[uint64]()
	h.Add(1)
	h.Add(2)
	s := NewStore(BuildTable(h), 1, true, 2)
	s.EnsureOrder(0, 4)
	require.NoError(t, s.Set(0, 0, Some[uint64](1)))
	require.NoError(t, s.Set(0, 1, Some[uint64](2)))
	s.SetSuffix(0, 0, 1000)

	s.Swap(0, 0, 1)
	v, _ := s.Get(0, 0)
	assert.Equal(t, uint64(2), v)
	suf, ok := s.Suffix(0, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), suf)
	_, ok = s.Suffix(0, 0)
	assert.False(t, ok)
}

func TestStore_CompactNarrowsSuffixes(t *testing.T) {
	h := NewHistogram[uint64]()
	h.Add(1)
	s := NewStore(BuildTable(h), 2, true, 2)
	s.EnsureOrder(0, 1<<10)
	s.EnsureOrder(1, 1<<10)
	s.SetSuffix(1, 7, 5)
	s.SetSuffix(1, 900, 1<<20)
	assert.Equal(t, uint8(21), s.Column(1).Suffix.Width())

	s.SetSuffix(1, 900, 2)
	s.Compact()
	assert.Equal(t, uint8(3), s.Column(1).Suffix.Width())
	assert.Equal(t, uint8(1), s.Column(0).Suffix.Width())

	suf, ok := s.Suffix(1, 7)
	assert.True(t, ok)
	assert.Equal(t, int64(5), suf)
	suf, ok = s.Suffix(1, 900)
	assert.True(t, ok)
	assert.Equal(t, int64(2), suf)
	_, ok = s.Suffix(1, 8)
	assert.False(t, ok)
}

func TestStore_DetachCopyFrom(t *testing.T) {
	s := NewStore(NewGrowingTable[uint64](), 1, false, 2)
	s.EnsureOrder(0, 4)
	require.NoError(t, s.Set(0, 2, Some[uint64](42)))

	old := s.Detach(0)
	s.EnsureOrder(0, 16)
	s.CopyFrom(0, old, 2, 11)
	v, ok := s.Get(0, 11)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), v)
	_, ok = s.Get(0, 2)
	assert.False(t, ok)
}

func TestStore_RankCode(t *testing.T) {
	s := NewStore(NewGrowingTable[uint64](), 1, false, 3)
	w := bitio.NewWriter(0)
	for r := uint64(0); r < 100; r++ {
		s.EncodeRank(w, r)
	}
	rd := bitio.NewReader(w.Words(), 0)
	for r := uint64(0); r < 100; r++ {
		require.Equal(t, r, s.DecodeRank(rd))
	}
}

func TestStore_Serialization(t *testing.T) {
	h := NewHistogram[probBackoff]()
	h.Add(probBackoff{-1, -0.5})
	h.Add(probBackoff{-3, 0})
	s := NewStore(BuildTable(h), 3, true, 5)
	s.EnsureOrder(0, 10)
	s.EnsureOrder(2, 10)
	require.NoError(t, s.Set(0, 1, Some(probBackoff{-1, -0.5})))
	require.NoError(t, s.Set(2, 9, Some(probBackoff{-3, 0})))
	s.SetSuffix(2, 9, 4)

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadStore[probBackoff](&buf)
	require.NoError(t, err)
	v, ok := got.Get(0, 1)
	assert.True(t, ok)
	assert.Equal(t, probBackoff{-1, -0.5}, v)
	v, ok = got.Get(2, 9)
	assert.True(t, ok)
	assert.Equal(t, probBackoff{-3, 0}, v)
	suf, ok := got.Suffix(2, 9)
	assert.True(t, ok)
	assert.Equal(t, int64(4), suf)
	assert.Nil(t, got.Column(1))
}
