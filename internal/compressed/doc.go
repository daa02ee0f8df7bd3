// Package compressed implements the block-compressed variant of the n-gram
// trie.
//
// Unigrams use the identity table of package hashtable. Every higher order is
// sorted by packed key once complete and re-encoded into fixed-size bit
// blocks. A block starts with a raw anchor key, its absolute position, the
// anchor's value rank and a single-word flag, followed by as many delta-coded
// records as fit. Lookups binary search the anchors and decode linearly.
//
// Offsets are positions in sorted order, so an order must be sealed before
// the next one can reference it.
package compressed
