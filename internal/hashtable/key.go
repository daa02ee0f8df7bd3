package hashtable

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// NotFound is the offset returned for absent keys. As a context offset it
// stands for the empty context.
const NotFound int64 = -1

// DefaultWordBits bounds the vocabulary to 2^26 words and leaves 38 bits for
// context offsets.
const DefaultWordBits uint8 = 26

var (
	// ErrCapacityExceeded is returned when a word's slot range (or the whole
	// table) has no free slot left.
	ErrCapacityExceeded = errors.New("hashtable: capacity exceeded")
	// ErrContextNotFound is returned by Put when the key's context offset is
	// negative, i.e. the shorter n-gram it points at is absent.
	ErrContextNotFound = errors.New("hashtable: context not found")
	// ErrKeyOverflow is returned when a word or context does not fit the
	// configured key layout.
	ErrKeyOverflow = errors.New("hashtable: key exceeds layout bit widths")
)

// Key is a (word, context offset) pair.
type Key struct {
	Word    int32
	Context int64
}

// Layout splits a packed 64-bit key into word bits (high) and context bits
// (low).
type Layout struct {
	WordBits uint8
}

// NewLayout validates wordBits and returns a Layout.
func NewLayout(wordBits uint8) (Layout, error) {
	if wordBits == 0 || wordBits > 31 {
		return Layout{}, fmt.Errorf("hashtable: word bits must be in [1, 31], got %d", wordBits)
	}
	return Layout{WordBits: wordBits}, nil
}

// ContextBits returns the number of low bits holding the context offset.
func (l Layout) ContextBits() uint8 { return 64 - l.WordBits }

// MaxWord returns the largest representable word id.
func (l Layout) MaxWord() int64 { return int64(1)<<l.WordBits - 1 }

// MaxContext returns the largest representable context value.
func (l Layout) MaxContext() int64 {
	return int64(uint64(1)<<l.ContextBits() - 1)
}

// Pack packs k into one integer. Both fields must be non-negative and fit.
func (l Layout) Pack(k Key) (uint64, error) {
	if k.Word < 0 || int64(k.Word) > l.MaxWord() || k.Context < 0 || k.Context > l.MaxContext() {
		return 0, fmt.Errorf("%w: word=%d context=%d word_bits=%d", ErrKeyOverflow, k.Word, k.Context, l.WordBits)
	}
	return uint64(k.Word)<<l.ContextBits() | uint64(k.Context), nil
}

// Unpack reverses Pack.
func (l Layout) Unpack(v uint64) Key {
	return Key{
		Word:    int32(v >> l.ContextBits()),
		Context: int64(v & (uint64(1)<<l.ContextBits() - 1)),
	}
}

func hash64(v uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return xxhash.Sum64(b[:])
}
