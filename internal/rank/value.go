package rank

// PlaceholderRank is the rank reserved for the placeholder value.
const PlaceholderRank uint64 = 0

// Value is either a real value or the placeholder that marks an n-gram stored
// only to satisfy trie structure.
type Value[V comparable] struct {
	v  V
	ok bool
}

// Some wraps a real value.
func Some[V comparable](v V) Value[V] {
	return Value[V]{v: v, ok: true}
}

// Placeholder returns the placeholder value.
func Placeholder[V comparable]() Value[V] {
	return Value[V]{}
}

// Get returns the wrapped value and whether it is real.
func (x Value[V]) Get() (V, bool) { return x.v, x.ok }

// IsPlaceholder reports whether x carries no real value.
func (x Value[V]) IsPlaceholder() bool { return !x.ok }
