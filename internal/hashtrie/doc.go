// Package hashtrie chains per-order hash tables into an n-gram trie.
//
// An n-gram of order k (k words, stored at order index k-1) is keyed by one
// word plus the offset of a shorter n-gram in the table of order k-1. The
// direction decides which word that is:
//
//   - Forward: the last word, with the prefix as context. Lookups consume the
//     first word first.
//   - Reversed: the first word, with the suffix as context. Lookups consume
//     the last word first.
//
// A Builder is filled order by order and then frozen into an immutable Map
// that is safe for concurrent readers. Orders are zero-based throughout:
// order 0 holds unigrams, and order -1 stands for the empty context.
package hashtrie
