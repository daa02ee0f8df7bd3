package compressed

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
)

const (
	DefaultBlockWords  = 16
	DefaultOffsetRadix = 10
	DefaultWordRadix   = 6
	DefaultSuffixRadix = 6
	DefaultValueRadix  = 6

	minBlockWords = 4
)

var (
	// ErrGrowingTable is returned when the rank table is not fixed.
	ErrGrowingTable = errors.New("compressed: rank table must be built from a histogram")
	// ErrOrderNotReady is returned when putting into an order whose shorter
	// orders are not sealed yet.
	ErrOrderNotReady = errors.New("compressed: shorter order not sealed")
	// ErrBlockTooSmall is returned when a block header does not fit a block.
	ErrBlockTooSmall = errors.New("compressed: block too small for header")
)

// Config configures a Builder.
type Config struct {
	MaxOrder  int
	WordBits  uint8
	Direction hashtrie.Direction
	// BlockWords is the block size in 64-bit words.
	BlockWords uint8
	// Radices of the variable-length codes for positions, word deltas,
	// context (suffix) deltas and value ranks.
	OffsetRadix uint8
	WordRadix   uint8
	SuffixRadix uint8
	ValueRadix  uint8
}

// DefaultConfig returns a forward configuration with default block sizing.
func DefaultConfig() Config {
	return Config{
		MaxOrder:    hashtrie.DefaultMaxOrder,
		WordBits:    hashtable.DefaultWordBits,
		BlockWords:  DefaultBlockWords,
		OffsetRadix: DefaultOffsetRadix,
		WordRadix:   DefaultWordRadix,
		SuffixRadix: DefaultSuffixRadix,
		ValueRadix:  DefaultValueRadix,
	}
}

func (c Config) withDefaults() (Config, error) {
	d := DefaultConfig()
	if c.MaxOrder == 0 {
		c.MaxOrder = d.MaxOrder
	}
	if c.WordBits == 0 {
		c.WordBits = d.WordBits
	}
	if c.BlockWords == 0 {
		c.BlockWords = d.BlockWords
	}
	if c.OffsetRadix == 0 {
		c.OffsetRadix = d.OffsetRadix
	}
	if c.WordRadix == 0 {
		c.WordRadix = d.WordRadix
	}
	if c.SuffixRadix == 0 {
		c.SuffixRadix = d.SuffixRadix
	}
	if c.ValueRadix == 0 {
		c.ValueRadix = d.ValueRadix
	}

	switch {
	case c.MaxOrder < 1 || c.MaxOrder > 255:
		return c, fmt.Errorf("%w: max order %d", hashtrie.ErrInvalidConfig, c.MaxOrder)
	case c.BlockWords < minBlockWords:
		return c, fmt.Errorf("%w: block words %d < %d", hashtrie.ErrInvalidConfig, c.BlockWords, minBlockWords)
	case c.OffsetRadix > 64 || c.WordRadix > 64 || c.SuffixRadix > 64 || c.ValueRadix > 64:
		return c, fmt.Errorf("%w: radix above 64", hashtrie.ErrInvalidConfig)
	case c.Direction > hashtrie.Reversed:
		return c, fmt.Errorf("%w: direction %d", hashtrie.ErrInvalidConfig, c.Direction)
	}
	return c, nil
}
