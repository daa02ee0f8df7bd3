// Package hashtable implements the per-order hash tables of an n-gram hash
// trie.
//
// Every table maps a composite Key (word id, context offset) to a slot offset.
// Offsets are stable once assigned and double as context offsets for the next
// order. Three variants share the Table interface:
//
//   - Implicit: each word owns a private, contiguous slot range sized from a
//     precomputed count. Slots store only context+1, the word is recovered
//     from the range that contains the slot.
//   - Explicit: slots store the full packed key over one table-wide range.
//     Used when counts are unknown upfront; the owning trie grows it.
//   - Unigram: identity mapping from word id to offset.
//
// Tables are insert-only. There is no delete.
package hashtable
