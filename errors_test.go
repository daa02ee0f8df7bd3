package ngramstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/ngramstore/internal/blob"
	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"github.com/hupe1980/ngramstore/internal/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	for _, tc := range []struct {
		in   error
		want error
	}{
		{hashtrie.ErrInvalidConfig, ErrInvalidConfig},
		{fmt.Errorf("put: %w", hashtrie.ErrInvalidNgram), ErrInvalidNgram},
		{hashtable.ErrCapacityExceeded, ErrCapacityExceeded},
		{hashtable.ErrKeyOverflow, ErrKeyOverflow},
		{rank.ErrUnknownValue, ErrUnknownValue},
	} {
		got := translateError(tc.in)
		assert.ErrorIs(t, got, tc.want)
		assert.ErrorIs(t, got, tc.in, "internal cause stays reachable")
	}

	err := translateError(fmt.Errorf("read: %w", blob.ErrChecksum))
	var corrupt *ErrCorruptBlob
	require.True(t, errors.As(err, &corrupt))
	assert.Equal(t, "checksum mismatch", corrupt.Reason)
	assert.ErrorIs(t, err, blob.ErrChecksum)
	assert.Equal(t, "corrupt model blob: checksum mismatch", err.Error())

	other := errors.New("other")
	assert.Equal(t, other, translateError(other))
}
