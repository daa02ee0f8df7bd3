// Package bitpack provides fixed-width unsigned integer storage packed into a
// flat []uint64 backing array.
//
// Architecture:
//   - Element i occupies bits [i*width, (i+1)*width) of the backing words
//   - Values may straddle two words; neighbours are never disturbed
//   - Per-call widths (GetBits/SetBits) address arbitrary bit offsets
//
// Used internally for:
//   - Hash table slots (context offsets, packed keys)
//   - Value ranks and suffix back-pointers
//   - Word range boundaries
package bitpack
