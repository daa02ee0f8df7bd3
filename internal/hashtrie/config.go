package hashtrie

import (
	"fmt"

	"github.com/hupe1980/ngramstore/internal/hashtable"
)

// Direction selects which end of an n-gram is consumed first.
type Direction uint8

const (
	// Forward keys an n-gram by its last word under its prefix.
	Forward Direction = iota
	// Reversed keys an n-gram by its first word under its suffix.
	Reversed
)

func (d Direction) String() string {
	if d == Reversed {
		return "reversed"
	}
	return "forward"
}

// Word returns the i-th word consumed when walking ngram.
func (d Direction) Word(ngram []int32, i int) int32 {
	if d == Reversed {
		return ngram[len(ngram)-1-i]
	}
	return ngram[i]
}

// Sub returns the n-gram covered after consuming n words of ngram.
func (d Direction) Sub(ngram []int32, n int) []int32 {
	if d == Reversed {
		return ngram[len(ngram)-n:]
	}
	return ngram[:n]
}

// Backoff returns ngram without its first consumed word.
func (d Direction) Backoff(ngram []int32) []int32 {
	if d == Reversed {
		return ngram[:len(ngram)-1]
	}
	return ngram[1:]
}

const (
	DefaultMaxOrder      = 5
	DefaultLoadFactor    = 0.7
	DefaultMaxLoadFactor = 0.7
	DefaultGrowthFactor  = 1.5
	DefaultValueRadix    = 6

	defaultExplicitCapacity = 64
)

// Config configures a Builder.
type Config struct {
	// MaxOrder is the longest n-gram length.
	MaxOrder int
	// LoadFactor sizes the word ranges of implicit tables.
	LoadFactor float64
	// MaxLoadFactor is the occupancy that triggers growth of explicit tables.
	MaxLoadFactor float64
	// GrowthFactor multiplies the capacity of an explicit table on growth.
	GrowthFactor float64
	// WordBits is the number of key bits reserved for word ids.
	WordBits uint8
	// Direction is fixed for the lifetime of the trie.
	Direction Direction
	// StoreSuffixOffsets keeps, per n-gram, the offset of the n-gram without
	// its first consumed word.
	StoreSuffixOffsets bool
	// ValueRadix configures the variable-length rank code.
	ValueRadix uint8
	// Locked guards every builder call with a single mutex so that several
	// producers may feed one builder.
	Locked bool
	// OnRehash is called after an explicit order has grown.
	OnRehash func(order int, oldCapacity, newCapacity int64)
}

// DefaultConfig returns a forward configuration with default sizing.
func DefaultConfig() Config {
	return Config{
		MaxOrder:      DefaultMaxOrder,
		LoadFactor:    DefaultLoadFactor,
		MaxLoadFactor: DefaultMaxLoadFactor,
		GrowthFactor:  DefaultGrowthFactor,
		WordBits:      hashtable.DefaultWordBits,
		ValueRadix:    DefaultValueRadix,
	}
}

func (c Config) withDefaults() (Config, error) {
	d := DefaultConfig()
	if c.MaxOrder == 0 {
		c.MaxOrder = d.MaxOrder
	}
	if c.LoadFactor == 0 {
		c.LoadFactor = d.LoadFactor
	}
	if c.MaxLoadFactor == 0 {
		c.MaxLoadFactor = d.MaxLoadFactor
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = d.GrowthFactor
	}
	if c.WordBits == 0 {
		c.WordBits = d.WordBits
	}
	if c.ValueRadix == 0 {
		c.ValueRadix = d.ValueRadix
	}

	switch {
	case c.MaxOrder < 1 || c.MaxOrder > 255:
		return c, fmt.Errorf("%w: max order %d", ErrInvalidConfig, c.MaxOrder)
	case c.LoadFactor <= 0 || c.LoadFactor > 1:
		return c, fmt.Errorf("%w: load factor %v", ErrInvalidConfig, c.LoadFactor)
	case c.MaxLoadFactor <= 0 || c.MaxLoadFactor >= 1:
		return c, fmt.Errorf("%w: max load factor %v", ErrInvalidConfig, c.MaxLoadFactor)
	case c.GrowthFactor <= 1:
		return c, fmt.Errorf("%w: growth factor %v", ErrInvalidConfig, c.GrowthFactor)
	case c.ValueRadix > 64:
		return c, fmt.Errorf("%w: value radix %d", ErrInvalidConfig, c.ValueRadix)
	case c.Direction > Reversed:
		return c, fmt.Errorf("%w: direction %d", ErrInvalidConfig, c.Direction)
	}
	return c, nil
}
