package ngramstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hupe1980/ngramstore/blobstore"
	"github.com/hupe1980/ngramstore/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saved[V comparable](t *testing.T, m *Model[V], opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf, opts...))
	return buf.Bytes()
}

func TestSaveLoad(t *testing.T) {
	ngrams := corpus(t, 5, 3)

	for _, variant := range buildVariants {
		for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
			t.Run(variant.name+"/"+comp.String(), func(t *testing.T) {
				m, err := Build(context.Background(), countSource(ngrams), append([]Option{WithMaxOrder(3)}, variant.opts...)...)
				require.NoError(t, err)

				loaded, err := Load[Count](bytes.NewReader(saved(t, m, WithCompression(comp))))
				require.NoError(t, err)

				assert.Equal(t, m.Format(), loaded.Format())
				assert.Equal(t, m.Direction(), loaded.Direction())
				assert.Equal(t, m.VocabSize(), loaded.VocabSize())
				assert.Equal(t, m.Stats().Orders, loaded.Stats().Orders)
				for _, ng := range ngrams {
					require.Equal(t, ng.Count, ReadCount(loaded, ng.Words), "n-gram %v", ng.Words)
				}
			})
		}
	}
}

func TestSaveLoad_Placeholders(t *testing.T) {
	m := probModel(t, WithCompressed())

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf, WithCompression(CompressionZSTD)))
	loaded, err := Load[ProbBackoff](&buf)
	require.NoError(t, err)

	assert.True(t, loaded.Contains([]int32{1, 2}))
	_, ok := loaded.Get([]int32{1, 2})
	assert.False(t, ok)
	p, ok := ReadProb(loaded, []int32{1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, float32(-0.1), p)
}

func TestLoad_ValueTypeMismatch(t *testing.T) {
	m, err := Build(context.Background(), countSource(corpus(t, 5, 2)), WithMaxOrder(2))
	require.NoError(t, err)

	_, err = Load[ProbBackoff](bytes.NewReader(saved(t, m)))
	assert.ErrorIs(t, err, ErrValueTypeMismatch)
}

func TestSaveLoad_JSONHeader(t *testing.T) {
	m := probModel(t)

	loaded, err := Load[ProbBackoff](bytes.NewReader(saved(t, m, WithCodec(codec.JSON{}))))
	require.NoError(t, err)
	p, ok := ReadProb(loaded, []int32{1, 2, 3})
	assert.True(t, ok)
	assert.Equal(t, float32(-0.1), p)
}

type namedCodec struct{}

func (namedCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (namedCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (namedCodec) Name() string                       { return "custom" }

func TestLoad_Corrupt(t *testing.T) {
	m, err := Build(context.Background(), countSource(corpus(t, 5, 2)), WithMaxOrder(2))
	require.NoError(t, err)
	good := saved(t, m, WithCompression(CompressionLZ4))

	for _, tc := range []struct {
		name   string
		data   func() []byte
		reason string
	}{
		{"BadMagic", func() []byte {
			b := bytes.Clone(good)
			b[0] ^= 0xFF
			return b
		}, "bad magic"},
		{"Trailer", func() []byte {
			b := bytes.Clone(good)
			b[len(b)-1] ^= 0xFF
			return b
		}, "checksum mismatch"},
		{"Truncated", func() []byte { return good[:len(good)-5] }, "truncated"},
		{"Empty", func() []byte { return nil }, "truncated"},
		{"UnknownCodec", func() []byte { return saved(t, m, WithCodec(namedCodec{})) }, "unknown header codec"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load[Count](bytes.NewReader(tc.data()))
			require.Error(t, err)

			var corrupt *ErrCorruptBlob
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.Equal(t, tc.reason, corrupt.Reason)
		})
	}
}

func TestSaveToLoadFrom(t *testing.T) {
	ctx := context.Background()
	ngrams := corpus(t, 8, 3)
	m, err := Build(ctx, countSource(ngrams), WithMaxOrder(3), WithCompressed())
	require.NoError(t, err)

	for _, tc := range []struct {
		name  string
		store blobstore.BlobStore
	}{
		{"Memory", blobstore.NewMemoryStore()},
		{"Local", blobstore.NewLocalStore(t.TempDir())},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, m.SaveTo(ctx, tc.store, "models/lm.ngs", WithCompression(CompressionZSTD)))

			names, err := tc.store.List(ctx, "models/")
			require.NoError(t, err)
			assert.Equal(t, []string{"models/lm.ngs"}, names)

			loaded, err := LoadFrom[Count](ctx, tc.store, "models/lm.ngs")
			require.NoError(t, err)
			assert.Equal(t, FormatCompressed, loaded.Format())
			for _, ng := range ngrams {
				require.Equal(t, ng.Count, ReadCount(loaded, ng.Words))
			}

			_, err = LoadFrom[Count](ctx, tc.store, "models/missing.ngs")
			assert.ErrorIs(t, err, blobstore.ErrNotFound)
		})
	}
}

// rangeOnlyStore hides the Mappable fast path of the wrapped store.
type rangeOnlyStore struct {
	blobstore.BlobStore
}

type rangeOnlyBlob struct {
	blobstore.Blob
}

func (s rangeOnlyStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	b, err := s.BlobStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return rangeOnlyBlob{b}, nil
}

func TestLoadFrom_RangeReads(t *testing.T) {
	ctx := context.Background()
	m := probModel(t)
	store := rangeOnlyStore{blobstore.NewMemoryStore()}

	require.NoError(t, m.SaveTo(ctx, store, "lm"))
	loaded, err := LoadFrom[ProbBackoff](ctx, store, "lm")
	require.NoError(t, err)

	p, ok := ReadProb(loaded, []int32{3})
	assert.True(t, ok)
	assert.Equal(t, float32(-3), p)
}
