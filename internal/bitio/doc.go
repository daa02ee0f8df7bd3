// Package bitio provides bit-granular readers and writers over []uint64 and a
// self-delimiting variable-length integer code.
//
// Bits are written LSB-first inside each word, matching internal/bitpack, so
// a block written here can be addressed with bitpack.Array.GetBits.
package bitio
