// Package rank maps distinct n-gram values to compact integer ranks and stores
// only ranks per slot.
//
// Ranks are assigned by descending value frequency so that common values get
// the cheapest codes. Rank 0 is reserved for the placeholder value in every
// table, including tables built from data that never contains a placeholder:
// the compressed trie sizes its rank fields before placeholders are known.
//
// Per-order rank columns are bit-packed (internal/bitpack) with a width derived
// from the number of ranks.
package rank
