package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/hupe1980/ngramstore/codec"
)

// Magic starts every blob.
const Magic = "NGSTORE\x01"

// Version is the current header version.
const Version = 1

// blockSize is the uncompressed size of a full body block.
const blockSize = 256 << 10

const maxHeaderSize = 1 << 20

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	ErrBadMagic           = errors.New("blob: bad magic")
	ErrUnsupportedVersion = errors.New("blob: unsupported version")
	ErrUnknownCodec       = errors.New("blob: unknown header codec")
	ErrUnknownCompression = errors.New("blob: unknown compression")
	ErrChecksum           = errors.New("blob: checksum mismatch")
	ErrCorrupt            = errors.New("blob: corrupt block")
	ErrTruncated          = errors.New("blob: truncated")
)

// Header describes the serialized map that follows it.
type Header struct {
	Version     int     `json:"version"`
	Format      string  `json:"format"`
	ValueType   string  `json:"value_type"`
	Compression string  `json:"compression"`
	MaxOrder    int     `json:"max_order"`
	Direction   string  `json:"direction"`
	Counts      []int64 `json:"counts,omitempty"`
}

// Writer writes the body of a blob in compressed blocks.
type Writer struct {
	w      io.Writer
	comp   Compression
	buf    []byte
	out    []byte
	crc    hash.Hash32
	n      uint64
	closed bool
}

// NewWriter writes the blob prelude with h encoded by c. The body is then
// written through the returned Writer and finished by Close.
func NewWriter(w io.Writer, c codec.Codec, h Header, comp Compression) (*Writer, error) {
	if comp > CompressionZSTD {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, comp)
	}
	if c == nil {
		c = codec.Default
	}
	h.Version = Version
	h.Compression = comp.String()
	hdr, err := c.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("blob: encode header: %w", err)
	}
	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("%w: name %q too long", ErrUnknownCodec, name)
	}

	pre := make([]byte, 0, len(Magic)+1+len(name)+4+len(hdr)+4)
	pre = append(pre, Magic...)
	pre = append(pre, byte(len(name)))
	pre = append(pre, name...)
	pre = binary.LittleEndian.AppendUint32(pre, uint32(len(hdr)))
	pre = append(pre, hdr...)
	pre = binary.LittleEndian.AppendUint32(pre, crc32.Checksum(hdr, castagnoli))
	if _, err := w.Write(pre); err != nil {
		return nil, err
	}
	return &Writer{w: w, comp: comp, buf: make([]byte, 0, blockSize), crc: crc32.New(castagnoli)}, nil
}

// Write buffers p and flushes full blocks.
func (bw *Writer) Write(p []byte) (int, error) {
	if bw.closed {
		return 0, io.ErrClosedPipe
	}
	total := len(p)
	for len(p) > 0 {
		k := min(blockSize-len(bw.buf), len(p))
		bw.buf = append(bw.buf, p[:k]...)
		p = p[k:]
		if len(bw.buf) == blockSize {
			if err := bw.flush(); err != nil {
				return total - len(p), err
			}
		}
	}
	return total, nil
}

func (bw *Writer) flush() error {
	if len(bw.buf) == 0 {
		return nil
	}
	bw.crc.Write(bw.buf)
	bw.n += uint64(len(bw.buf))
	out, err := appendBlock(bw.out[:0], bw.buf, bw.comp)
	if err != nil {
		return err
	}
	bw.out = out
	bw.buf = bw.buf[:0]
	_, err = bw.w.Write(out)
	return err
}

// Close flushes the last block and writes the trailer. It does not close
// the underlying writer.
func (bw *Writer) Close() error {
	if bw.closed {
		return nil
	}
	bw.closed = true
	if err := bw.flush(); err != nil {
		return err
	}
	var tail [blockHeaderSize + 12]byte
	binary.LittleEndian.PutUint32(tail[blockHeaderSize:], bw.crc.Sum32())
	binary.LittleEndian.PutUint64(tail[blockHeaderSize+4:], bw.n)
	_, err := bw.w.Write(tail[:])
	return err
}

// Reader decodes a blob body and verifies its checksum at the end.
type Reader struct {
	r     io.Reader
	comp  Compression
	block []byte
	raw   []byte
	pos   int
	crc   hash.Hash32
	n     uint64
	done  bool
}

// NewReader parses the blob prelude and returns the header and a reader for
// the body. The body reader returns ErrChecksum instead of io.EOF if the
// body does not match its trailer.
func NewReader(r io.Reader) (*Reader, Header, error) {
	var h Header
	var magic [len(Magic) + 1]byte
	if err := readFull(r, magic[:]); err != nil {
		return nil, h, err
	}
	if string(magic[:len(Magic)]) != Magic {
		return nil, h, ErrBadMagic
	}
	name := make([]byte, magic[len(Magic)])
	if err := readFull(r, name); err != nil {
		return nil, h, err
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, h, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	var size [4]byte
	if err := readFull(r, size[:]); err != nil {
		return nil, h, err
	}
	n := binary.LittleEndian.Uint32(size[:])
	if n > maxHeaderSize {
		return nil, h, fmt.Errorf("%w: header of %d bytes", ErrCorrupt, n)
	}
	hdr := make([]byte, n+4)
	if err := readFull(r, hdr); err != nil {
		return nil, h, err
	}
	if crc32.Checksum(hdr[:n], castagnoli) != binary.LittleEndian.Uint32(hdr[n:]) {
		return nil, h, fmt.Errorf("%w: header", ErrChecksum)
	}
	if err := c.Unmarshal(hdr[:n], &h); err != nil {
		return nil, h, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if h.Version != Version {
		return nil, h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	comp, err := ParseCompression(h.Compression)
	if err != nil {
		return nil, h, err
	}
	return &Reader{r: r, comp: comp, crc: crc32.New(castagnoli)}, h, nil
}

func readFull(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %w", ErrTruncated, err)
		}
		return err
	}
	return nil
}

// Read implements io.Reader.
func (br *Reader) Read(p []byte) (int, error) {
	for br.pos == len(br.raw) {
		if br.done {
			return 0, io.EOF
		}
		if err := br.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, br.raw[br.pos:])
	br.pos += n
	return n, nil
}

func (br *Reader) next() error {
	var hdr [blockHeaderSize]byte
	if err := readFull(br.r, hdr[:]); err != nil {
		return err
	}
	rawLen := binary.LittleEndian.Uint32(hdr[0:])
	storedLen := binary.LittleEndian.Uint32(hdr[4:])

	if rawLen == 0 {
		var tail [12]byte
		if err := readFull(br.r, tail[:]); err != nil {
			return err
		}
		if binary.LittleEndian.Uint32(tail[:4]) != br.crc.Sum32() ||
			binary.LittleEndian.Uint64(tail[4:]) != br.n {
			return ErrChecksum
		}
		br.done = true
		br.raw, br.pos = br.raw[:0], 0
		return nil
	}
	if rawLen > blockSize || storedLen > uint32(blockSize)*2 {
		return fmt.Errorf("%w: block of %d/%d bytes", ErrCorrupt, rawLen, storedLen)
	}

	if cap(br.raw) < int(rawLen) {
		br.raw = make([]byte, rawLen)
	}
	br.raw, br.pos = br.raw[:rawLen], 0
	if storedLen == 0 {
		if err := readFull(br.r, br.raw); err != nil {
			return err
		}
	} else {
		if cap(br.block) < int(storedLen) {
			br.block = make([]byte, storedLen)
		}
		br.block = br.block[:storedLen]
		if err := readFull(br.r, br.block); err != nil {
			return err
		}
		if err := decodeBlock(br.raw, br.block, br.comp); err != nil {
			return err
		}
	}
	br.crc.Write(br.raw)
	br.n += uint64(rawLen)
	return nil
}

// Verify drains the rest of the body so that the trailer is checked.
func (br *Reader) Verify() error {
	_, err := io.Copy(io.Discard, br)
	return err
}
