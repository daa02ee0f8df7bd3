package hashtrie

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("hashtrie: invalid config")
	// ErrInvalidNgram is returned for empty, too long, or negative n-grams.
	ErrInvalidNgram = errors.New("hashtrie: invalid n-gram")
	// ErrStructuralGap is matched by every *GapError.
	ErrStructuralGap = errors.New("hashtrie: context n-gram missing")
	// ErrSealed is returned when putting into a sealed order.
	ErrSealed = errors.New("hashtrie: order is sealed")
	// ErrFrozen is returned by any builder call after Freeze.
	ErrFrozen = errors.New("hashtrie: builder is frozen")
)

// GapError reports an n-gram whose context chain is incomplete. Missing lists
// every absent context n-gram along the chain, shortest first. Inserting them
// (as placeholders) makes the put succeed.
type GapError struct {
	Ngram   []int32
	Missing [][]int32
}

func (e *GapError) Error() string {
	return fmt.Sprintf("hashtrie: n-gram %v is missing %d context n-gram(s), shortest %v",
		e.Ngram, len(e.Missing), e.Missing[0])
}

func (e *GapError) Unwrap() error { return ErrStructuralGap }

// NewGapError reports the missing context chain of ngram for a walk that
// first missed at step i. Every longer context along the chain is missing as
// well.
func NewGapError(ngram []int32, d Direction, i int) *GapError {
	e := &GapError{Ngram: append([]int32(nil), ngram...)}
	for n := i + 1; n < len(ngram); n++ {
		e.Missing = append(e.Missing, append([]int32(nil), d.Sub(ngram, n)...))
	}
	return e
}
