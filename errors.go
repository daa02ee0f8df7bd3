package ngramstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ngramstore/internal/blob"
	"github.com/hupe1980/ngramstore/internal/compressed"
	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"github.com/hupe1980/ngramstore/internal/rank"
)

var (
	// ErrInvalidConfig is returned for out-of-range options.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidNgram is returned for empty, too long, or negative n-grams.
	ErrInvalidNgram = errors.New("invalid n-gram")
	// ErrCapacityExceeded is returned when a counted build meets more n-grams
	// than it counted.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrKeyOverflow is returned when a word id or context offset does not
	// fit the key layout; increase or decrease WithWordBits.
	ErrKeyOverflow = errors.New("key overflow")
	// ErrUnknownValue is returned when a value appears in the insertion pass
	// that the counting pass never saw.
	ErrUnknownValue = errors.New("value missing from counting pass")
	// ErrGapsNotConverged is returned when backfilling placeholders did not
	// resolve every missing context. It indicates a source whose two scans
	// differ.
	ErrGapsNotConverged = errors.New("missing contexts remain after backfill")
	// ErrValueTypeMismatch is returned when a saved model is loaded with a
	// different value type.
	ErrValueTypeMismatch = errors.New("value type mismatch")
)

// ErrCorruptBlob indicates a saved model that cannot be decoded.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrCorruptBlob struct {
	Reason string
	cause  error
}

func (e *ErrCorruptBlob) Error() string {
	return fmt.Sprintf("corrupt model blob: %s", e.Reason)
}

func (e *ErrCorruptBlob) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, hashtrie.ErrInvalidConfig), errors.Is(err, compressed.ErrBlockTooSmall):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	case errors.Is(err, hashtrie.ErrInvalidNgram):
		return fmt.Errorf("%w: %w", ErrInvalidNgram, err)
	case errors.Is(err, hashtable.ErrCapacityExceeded):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, hashtable.ErrKeyOverflow):
		return fmt.Errorf("%w: %w", ErrKeyOverflow, err)
	case errors.Is(err, rank.ErrUnknownValue):
		return fmt.Errorf("%w: %w", ErrUnknownValue, err)
	}

	for _, reason := range []struct {
		target error
		text   string
	}{
		{blob.ErrBadMagic, "bad magic"},
		{blob.ErrChecksum, "checksum mismatch"},
		{blob.ErrTruncated, "truncated"},
		{blob.ErrCorrupt, "corrupt block"},
		{blob.ErrUnknownCodec, "unknown header codec"},
		{blob.ErrUnknownCompression, "unknown compression"},
		{blob.ErrUnsupportedVersion, "unsupported version"},
	} {
		if errors.Is(err, reason.target) {
			return &ErrCorruptBlob{Reason: reason.text, cause: err}
		}
	}
	return err
}
