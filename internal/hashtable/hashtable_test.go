package hashtable

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(DefaultWordBits)
	require.NoError(t, err)
	return l
}

func TestLayout_PackUnpack(t *testing.T) {
	l := testLayout(t)
	k := Key{Word: 12345, Context: 1<<37 + 99}
	v, err := l.Pack(k)
	require.NoError(t, err)
	assert.Equal(t, k, l.Unpack(v))

	_, err = l.Pack(Key{Word: 1 << 26, Context: 0})
	assert.ErrorIs(t, err, ErrKeyOverflow)
	_, err = l.Pack(Key{Word: 1, Context: 1 << 38})
	assert.ErrorIs(t, err, ErrKeyOverflow)

	_, err = NewLayout(0)
	assert.Error(t, err)
	_, err = NewLayout(32)
	assert.Error(t, err)
}

func TestRangeSize(t *testing.T) {
	assert.Equal(t, uint64(20), RangeSize(10, 0.5))
	assert.Equal(t, uint64(10), RangeSize(7, 0.7))
	assert.Equal(t, uint64(3), RangeSize(1, 0.7), "minimum range")
	assert.Equal(t, uint64(0), RangeSize(0, 0.7), "absent word")
	assert.Equal(t, uint64(4), RangeSize(4, 1.0))
}

func TestRanges_WordAt(t *testing.T) {
	r := NewRanges([]uint64{10, 0, 2, 1}, 0.5)
	assert.Equal(t, 4, r.NumWords())
	assert.Equal(t, uint64(20+0+4+3), r.Total())

	start, size, ok := r.Range(2)
	require.True(t, ok)
	assert.Equal(t, uint64(20), start)
	assert.Equal(t, uint64(4), size)

	_, size, ok = r.Range(1)
	require.True(t, ok)
	assert.Zero(t, size)

	_, _, ok = r.Range(4)
	assert.False(t, ok)
	_, _, ok = r.Range(-1)
	assert.False(t, ok)

	for slot := uint64(0); slot < r.Total(); slot++ {
		w := r.WordAt(slot)
		start, size, _ := r.Range(w)
		assert.True(t, slot >= start && slot < start+size, "slot %d word %d", slot, w)
	}
}

func TestImplicit_LoadFactorScenario(t *testing.T) {
	l := testLayout(t)
	ranges := NewRanges([]uint64{10}, 0.5)
	tbl := NewImplicit(l, ranges, 100)

	_, size, _ := ranges.Range(0)
	require.Equal(t, uint64(20), size)

	offs := map[int64]int64{}
	for ctx := int64(0); ctx < 10; ctx++ {
		off, added, err := tbl.Put(Key{Word: 0, Context: ctx * 7})
		require.NoError(t, err)
		assert.True(t, added)
		offs[ctx*7] = off
	}
	filled, size := tbl.Occupancy(0)
	assert.Equal(t, uint64(10), filled)
	assert.LessOrEqual(t, float64(filled)/float64(size), 0.5)

	for ctx, off := range offs {
		assert.Equal(t, off, tbl.Offset(Key{Word: 0, Context: ctx}))
		assert.Equal(t, Key{Word: 0, Context: ctx}, tbl.Key(off))
	}
	assert.Equal(t, NotFound, tbl.Offset(Key{Word: 0, Context: 1}))

	off, added, err := tbl.Put(Key{Word: 0, Context: 14})
	require.NoError(t, err)
	assert.False(t, added, "second put of the same key")
	assert.Equal(t, offs[14], off)
	assert.Equal(t, int64(10), tbl.Len())
}

func TestImplicit_Errors(t *testing.T) {
	l := testLayout(t)
	tbl := NewImplicit(l, NewRanges([]uint64{0, 3}, 1.0), 10)

	_, _, err := tbl.Put(Key{Word: 1, Context: NotFound})
	assert.ErrorIs(t, err, ErrContextNotFound)

	_, _, err = tbl.Put(Key{Word: 0, Context: 0})
	assert.ErrorIs(t, err, ErrCapacityExceeded, "word without range")
	_, _, err = tbl.Put(Key{Word: 7, Context: 0})
	assert.ErrorIs(t, err, ErrCapacityExceeded, "word beyond vocabulary")

	for ctx := int64(0); ctx < 3; ctx++ {
		_, _, err = tbl.Put(Key{Word: 1, Context: ctx})
		require.NoError(t, err)
	}
	_, _, err = tbl.Put(Key{Word: 1, Context: 3})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, NotFound, tbl.Offset(Key{Word: 1, Context: 3}), "full range terminates probing")
}

func TestImplicit_WidensForLargeContexts(t *testing.T) {
	l := testLayout(t)
	tbl := NewImplicit(l, NewRanges([]uint64{2}, 0.7), 3)
	off, _, err := tbl.Put(Key{Word: 0, Context: 1 << 20})
	require.NoError(t, err)
	assert.Equal(t, Key{Word: 0, Context: 1 << 20}, tbl.Key(off))
}

func TestImplicit_AllOrdered(t *testing.T) {
	l := testLayout(t)
	tbl := NewImplicit(l, NewRanges([]uint64{2, 1, 3}, 0.7), 10)
	want := []Key{{0, 1}, {0, 2}, {1, 5}, {2, 0}, {2, 3}, {2, 9}}
	for _, k := range want {
		_, _, err := tbl.Put(k)
		require.NoError(t, err)
	}
	var got []Key
	prev := int64(-1)
	for off, k := range tbl.All() {
		assert.Greater(t, off, prev)
		prev = off
		got = append(got, k)
	}
	assert.ElementsMatch(t, want, got)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Word, got[i].Word)
	}
}

func TestExplicit_PutGrowSignal(t *testing.T) {
	l := testLayout(t)
	tbl := NewExplicit(l, 8)

	for i := int32(0); i < 5; i++ {
		off, added, err := tbl.Put(Key{Word: i, Context: int64(i) * 3})
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, Key{Word: i, Context: int64(i) * 3}, tbl.Key(off))
	}
	assert.False(t, tbl.NeedsGrow(0.75))
	_, _, err := tbl.Put(Key{Word: 9, Context: 0})
	require.NoError(t, err)
	assert.True(t, tbl.NeedsGrow(0.75))

	for i := int32(10); i < 12; i++ {
		_, _, err = tbl.Put(Key{Word: i, Context: 0})
		require.NoError(t, err)
	}
	_, _, err = tbl.Put(Key{Word: 20, Context: 0})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, int64(8), tbl.Len())

	_, _, err = tbl.Put(Key{Word: 1, Context: NotFound})
	assert.ErrorIs(t, err, ErrContextNotFound)
	assert.Equal(t, NotFound, tbl.Offset(Key{Word: 1, Context: NotFound}))
}

func TestUnigram_Identity(t *testing.T) {
	tbl := NewUnigram(4)
	for _, w := range []int32{3, 0, 9} {
		off, added, err := tbl.Put(Key{Word: w, Context: NotFound})
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, int64(w), off)
	}
	assert.Equal(t, int64(3), tbl.Len())
	assert.Equal(t, int64(10), tbl.Capacity())
	assert.Equal(t, NotFound, tbl.Offset(Key{Word: 4}))
	assert.Equal(t, NotFound, tbl.Offset(Key{Word: -2}))
	assert.True(t, tbl.IsEmpty(5))
	assert.False(t, tbl.IsEmpty(9))

	var words []int32
	for _, k := range tbl.All() {
		words = append(words, k.Word)
	}
	assert.Equal(t, []int32{0, 3, 9}, words)
}

func TestReadTable_RoundTrip(t *testing.T) {
	l := testLayout(t)

	implicit := NewImplicit(l, NewRanges([]uint64{3, 0, 2}, 0.7), 50)
	explicit := NewExplicit(l, 16)
	unigram := NewUnigram(8)
	for _, k := range []Key{{0, 4}, {0, 17}, {2, 1}} {
		_, _, err := implicit.Put(k)
		require.NoError(t, err)
		_, _, err = explicit.Put(k)
		require.NoError(t, err)
		_, _, err = unigram.Put(k)
		require.NoError(t, err)
	}

	for _, tbl := range []Table{implicit, explicit, unigram} {
		t.Run(tbl.Kind().String(), func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tbl.WriteTo(&buf)
			require.NoError(t, err)

			got, err := ReadTable(&buf, l)
			require.NoError(t, err)
			assert.Equal(t, tbl.Kind(), got.Kind())
			assert.Equal(t, tbl.Len(), got.Len())
			assert.Equal(t, tbl.Capacity(), got.Capacity())
			for off, k := range tbl.All() {
				assert.Equal(t, k, got.Key(off))
				if tbl.Kind() != KindUnigram {
					assert.Equal(t, off, got.Offset(k))
				}
			}
		})
	}

	_, err := ReadTable(bytes.NewReader([]byte{42, 0, 0, 0, 0, 0, 0, 0, 0}), l)
	assert.Error(t, err)
}
