package ngramstore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/ngramstore/blobstore"
	"github.com/hupe1980/ngramstore/internal/blob"
	"github.com/hupe1980/ngramstore/internal/compressed"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
)

// Save writes the model to w. Compression and header codec are taken from
// WithCompression and WithCodec.
func (m *Model[V]) Save(w io.Writer, optFns ...Option) error {
	o := applyOptions(optFns)

	counts := make([]int64, m.MaxOrder())
	for order := range counts {
		counts[order] = m.Len(order)
	}
	h := blob.Header{
		Format:    string(m.format),
		ValueType: valueType[V](),
		MaxOrder:  m.MaxOrder(),
		Direction: m.Direction().String(),
		Counts:    counts,
	}

	bw, err := blob.NewWriter(w, o.codec, h, o.compression)
	if err != nil {
		return translateError(err)
	}
	if _, err := m.m.WriteTo(bw); err != nil {
		return fmt.Errorf("write %s map: %w", m.format, err)
	}
	return bw.Close()
}

// Load reads a model written by Save. V must be the value type the model
// was saved with.
func Load[V comparable](r io.Reader, optFns ...Option) (*Model[V], error) {
	o := applyOptions(optFns)

	br, h, err := blob.NewReader(r)
	if err != nil {
		return nil, translateError(err)
	}
	if want := valueType[V](); h.ValueType != want {
		return nil, fmt.Errorf("%w: saved %s, loading %s", ErrValueTypeMismatch, h.ValueType, want)
	}

	var m ngramMap[V]
	switch Format(h.Format) {
	case FormatHashTrie:
		m, err = hashtrie.ReadMap[V](br)
	case FormatCompressed:
		m, err = compressed.ReadMap[V](br)
	default:
		return nil, &ErrCorruptBlob{Reason: fmt.Sprintf("unknown format %q", h.Format)}
	}
	if err == nil {
		err = br.Verify()
	}
	if err != nil {
		var cb *ErrCorruptBlob
		if te := translateError(err); errors.As(te, &cb) {
			return nil, te
		}
		return nil, &ErrCorruptBlob{Reason: fmt.Sprintf("decode %s map", h.Format), cause: err}
	}

	if m.MaxOrder() != h.MaxOrder || m.Direction().String() != h.Direction {
		return nil, &ErrCorruptBlob{Reason: "header does not match map"}
	}
	for order, n := range h.Counts {
		if order >= m.MaxOrder() || m.Len(order) != n {
			return nil, &ErrCorruptBlob{Reason: fmt.Sprintf("order %d count mismatch", order)}
		}
	}
	return newModel(m, &o), nil
}

// SaveTo writes the model as blob name of store. A failed write leaves no
// partial blob behind.
func (m *Model[V]) SaveTo(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (err error) {
	o := applyOptions(optFns)
	cw := &countingWriter{}
	defer func() { o.logger.LogSave(ctx, name, cw.n, err) }()

	wb, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	cw.w = wb
	if err := m.Save(cw, optFns...); err != nil {
		return errors.Join(err, wb.Abort())
	}
	return wb.Close()
}

// LoadFrom reads blob name of store. Stores that expose their blobs as
// byte slices are decoded without an extra copy.
func LoadFrom[V comparable](ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (model *Model[V], err error) {
	o := applyOptions(optFns)
	var size int64
	defer func() { o.logger.LogLoad(ctx, name, uint64(size), err) }()

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	size = b.Size()

	if mb, ok := b.(blobstore.Mappable); ok {
		data, err := mb.Bytes()
		if err != nil {
			return nil, err
		}
		return Load[V](bytes.NewReader(data), optFns...)
	}

	rc, err := b.ReadRange(ctx, 0, size)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Load[V](bufio.NewReaderSize(rc, 1<<20), optFns...)
}

func valueType[V comparable]() string {
	var zero V
	return fmt.Sprintf("%T", zero)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
