package hashtable

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
)

// Kind identifies a table variant.
type Kind uint8

const (
	// KindUnigram is the identity table for order 1.
	KindUnigram Kind = iota + 1
	// KindImplicit is the word-ranged table storing only contexts.
	KindImplicit
	// KindExplicit is the table storing full packed keys.
	KindExplicit
)

func (k Kind) String() string {
	switch k {
	case KindUnigram:
		return "unigram"
	case KindImplicit:
		return "implicit"
	case KindExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Table maps keys of one n-gram order to slot offsets.
type Table interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Put inserts k if absent and returns its offset and whether it was added.
	// A negative context yields NotFound and ErrContextNotFound.
	Put(k Key) (int64, bool, error)
	// Offset returns the offset of k or NotFound.
	Offset(k Key) int64
	// Key returns the key stored at a filled offset.
	Key(off int64) Key
	// IsEmpty reports whether the slot at off is unused.
	IsEmpty(off int64) bool
	// Len returns the number of filled slots.
	Len() int64
	// Capacity returns the number of addressable slots.
	Capacity() int64
	// All yields every filled slot in offset order.
	All() iter.Seq2[int64, Key]
	// SizeBytes returns the memory held by the table.
	SizeBytes() uint64

	io.WriterTo
}

// ReadTable reads a table written by its WriteTo method.
func ReadTable(r io.Reader, layout Layout) (Table, error) {
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	filled := int64(binary.LittleEndian.Uint64(hdr[1:]))
	switch Kind(hdr[0]) {
	case KindUnigram:
		return readUnigram(r, filled)
	case KindImplicit:
		return readImplicit(r, layout, filled)
	case KindExplicit:
		return readExplicit(r, layout, filled)
	default:
		return nil, fmt.Errorf("hashtable: unknown table kind %d", hdr[0])
	}
}

func writeHeader(w io.Writer, kind Kind, filled int64) (int64, error) {
	var hdr [9]byte
	hdr[0] = byte(kind)
	binary.LittleEndian.PutUint64(hdr[1:], uint64(filled))
	n, err := w.Write(hdr[:])
	return int64(n), err
}
