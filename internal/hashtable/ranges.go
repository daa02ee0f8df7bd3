package hashtable

import (
	"io"
	"math"
	"sort"

	"github.com/hupe1980/ngramstore/internal/bitpack"
)

// minRangeSize is the smallest range given to a word with any n-gram. Ranges
// this small may fill completely.
const minRangeSize = 3

// RangeSize returns the slot range reserved for a word with count n-grams:
// ceil(count/loadFactor), at least minRangeSize, or 0 for an absent word.
func RangeSize(count uint64, loadFactor float64) uint64 {
	if count == 0 {
		return 0
	}
	n := uint64(math.Ceil(float64(count)/loadFactor - 1e-9))
	return max(n, count, minRangeSize)
}

// Ranges assigns every word a contiguous slot range.
type Ranges struct {
	starts *bitpack.Array // len(words)+1 prefix sums
}

// NewRanges lays out ranges for per-word counts.
func NewRanges(counts []uint64, loadFactor float64) *Ranges {
	var total uint64
	for _, c := range counts {
		total += RangeSize(c, loadFactor)
	}
	starts := bitpack.New(bitpack.BitsFor(total), uint64(len(counts))+1)
	var pos uint64
	for w, c := range counts {
		starts.Set(uint64(w), pos)
		pos += RangeSize(c, loadFactor)
	}
	starts.Set(uint64(len(counts)), pos)
	return &Ranges{starts: starts}
}

// NumWords returns the number of words with a (possibly empty) range.
func (r *Ranges) NumWords() int { return int(r.starts.Len()) - 1 }

// Total returns the number of slots across all ranges.
func (r *Ranges) Total() uint64 { return r.starts.Get(r.starts.Len() - 1) }

// Range returns the first slot and size of a word's range.
func (r *Ranges) Range(word int32) (start, size uint64, ok bool) {
	if word < 0 || int(word) >= r.NumWords() {
		return 0, 0, false
	}
	start = r.starts.Get(uint64(word))
	return start, r.starts.Get(uint64(word)+1) - start, true
}

// WordAt returns the word whose range contains slot.
func (r *Ranges) WordAt(slot uint64) int32 {
	n := r.NumWords()
	w := sort.Search(n, func(i int) bool {
		return r.starts.Get(uint64(i)+1) > slot
	})
	return int32(w)
}

// SizeBytes returns the memory held by the range table.
func (r *Ranges) SizeBytes() uint64 { return r.starts.SizeBytes() }

// WriteTo writes the ranges.
func (r *Ranges) WriteTo(w io.Writer) (int64, error) { return r.starts.WriteTo(w) }

func readRanges(rd io.Reader) (*Ranges, error) {
	starts := bitpack.New(1, 0)
	if _, err := starts.ReadFrom(rd); err != nil {
		return nil, err
	}
	return &Ranges{starts: starts}, nil
}
