package compressed

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/ngramstore/internal/bitio"
	"github.com/hupe1980/ngramstore/internal/hashtable"
)

// rankCoder is the variable-length rank code of the value store.
type rankCoder interface {
	EncodeRank(w *bitio.Writer, r uint64)
	DecodeRank(r *bitio.Reader) uint64
	RankLen(r uint64) uint64
}

// codec encodes and decodes the blocks of one trie.
type codec struct {
	layout    hashtable.Layout
	offset    bitio.VarCodec
	word      bitio.VarCodec
	suffix    bitio.VarCodec
	ranks     rankCoder
	blockBits uint64
}

func newCodec(cfg Config, layout hashtable.Layout, ranks rankCoder) *codec {
	return &codec{
		layout:    layout,
		offset:    bitio.NewVarCodec(cfg.OffsetRadix),
		word:      bitio.NewVarCodec(cfg.WordRadix),
		suffix:    bitio.NewVarCodec(cfg.SuffixRadix),
		ranks:     ranks,
		blockBits: uint64(cfg.BlockWords) * 64,
	}
}

func (c *codec) split(key uint64) (word, ctx uint64) {
	k := c.layout.Unpack(key)
	return uint64(k.Word), uint64(k.Context)
}

// stream is one order's sequence of blocks.
type stream struct {
	words  []uint64
	blocks uint64
	n      uint64
}

// encode packs n sorted, distinct keys and their ranks into blocks.
func (c *codec) encode(n uint64, key, rank func(uint64) uint64) (*stream, error) {
	w := bitio.NewWriter(n * 16)
	s := &stream{n: n}
	for i := uint64(0); i < n; {
		start := w.Len()
		count, changed, err := c.encodeBlock(w, start, i, n, key, rank, true)
		if err != nil {
			return nil, err
		}
		if changed {
			w.Truncate(start)
			multi, _, _ := c.encodeBlock(w, start, i, n, key, rank, false)
			if multi < count {
				w.Truncate(start)
				_, _, _ = c.encodeBlock(w, start, i, n, key, rank, true)
			} else {
				count = multi
			}
		}
		for end := start + c.blockBits; w.Len() < end; {
			w.WriteBits(0, uint8(min(64, end-w.Len())))
		}
		i += count
		s.blocks++
	}
	s.words = w.Words()
	return s, nil
}

// encodeBlock writes one block starting at entry i. In single-word mode it
// stops at the first word change and reports it.
func (c *codec) encodeBlock(w *bitio.Writer, start, i, n uint64, key, rank func(uint64) uint64, single bool) (count uint64, changed bool, err error) {
	limit := start + c.blockBits
	prev := key(i)
	w.WriteBits(prev, 64)
	c.offset.Encode(w, i)
	c.ranks.EncodeRank(w, rank(i))
	w.WriteBit(single)
	if w.Len() > limit {
		return 0, false, fmt.Errorf("%w: position %d", ErrBlockTooSmall, i)
	}

	count = 1
	for j := i + 1; j < n; j++ {
		cur := key(j)
		pw, pc := c.split(prev)
		cw, cc := c.split(cur)
		if single && cw != pw {
			return count, true, nil
		}
		var wordDelta, suffix uint64
		if cw == pw {
			suffix = cc - pc
		} else {
			wordDelta, suffix = cw-pw, cc
		}
		r := rank(j)
		size := c.suffix.Len(suffix) + c.ranks.RankLen(r)
		if !single {
			size += c.word.Len(wordDelta)
		}
		if w.Len()+size > limit {
			return count, false, nil
		}
		if !single {
			c.word.Encode(w, wordDelta)
		}
		c.suffix.Encode(w, suffix)
		c.ranks.EncodeRank(w, r)
		prev = cur
		count++
	}
	return count, false, nil
}

// cursor decodes the entries of one block in order.
type cursor struct {
	c      *codec
	r      *bitio.Reader
	single bool
	left   uint64
	key    uint64
	pos    uint64
	rank   uint64
}

func (c *codec) anchor(s *stream, b uint64) uint64 {
	return bitio.NewReader(s.words, b*c.blockBits).ReadBits(64)
}

func (c *codec) position(s *stream, b uint64) uint64 {
	if b >= s.blocks {
		return s.n
	}
	r := bitio.NewReader(s.words, b*c.blockBits+64)
	return c.offset.Decode(r)
}

func (c *codec) open(s *stream, b uint64) *cursor {
	r := bitio.NewReader(s.words, b*c.blockBits)
	cur := &cursor{c: c, r: r}
	cur.key = r.ReadBits(64)
	cur.pos = c.offset.Decode(r)
	cur.rank = c.ranks.DecodeRank(r)
	cur.single = r.ReadBit()
	cur.left = c.position(s, b+1) - cur.pos - 1
	return cur
}

// next advances to the following entry of the block.
func (cur *cursor) next() bool {
	if cur.left == 0 {
		return false
	}
	cur.left--
	c := cur.c
	pw, pc := c.split(cur.key)
	var wordDelta uint64
	if !cur.single {
		wordDelta = c.word.Decode(cur.r)
	}
	suffix := c.suffix.Decode(cur.r)
	if wordDelta == 0 {
		cur.key = (pw << c.layout.ContextBits()) | (pc + suffix)
	} else {
		cur.key = ((pw + wordDelta) << c.layout.ContextBits()) | suffix
	}
	cur.rank = c.ranks.DecodeRank(cur.r)
	cur.pos++
	return true
}

// find returns the position of key or NotFound.
func (c *codec) find(s *stream, key uint64) int64 {
	if s == nil || s.n == 0 {
		return hashtable.NotFound
	}
	b := sort.Search(int(s.blocks), func(i int) bool { return c.anchor(s, uint64(i)) > key }) - 1
	if b < 0 {
		return hashtable.NotFound
	}
	cur := c.open(s, uint64(b))
	for {
		switch {
		case cur.key == key:
			return int64(cur.pos)
		case cur.key > key:
			return hashtable.NotFound
		}
		if !cur.next() {
			return hashtable.NotFound
		}
	}
}

// at returns the cursor positioned on entry off.
func (c *codec) at(s *stream, off uint64) (*cursor, bool) {
	if s == nil || off >= s.n {
		return nil, false
	}
	b := sort.Search(int(s.blocks), func(i int) bool { return c.position(s, uint64(i)) > off }) - 1
	cur := c.open(s, uint64(b))
	for cur.pos < off {
		cur.next()
	}
	return cur, true
}

// all yields every entry of the stream in order.
func (c *codec) all(s *stream, yield func(pos, key, rank uint64) bool) {
	if s == nil {
		return
	}
	for b := uint64(0); b < s.blocks; b++ {
		cur := c.open(s, b)
		for {
			if !yield(cur.pos, cur.key, cur.rank) {
				return
			}
			if !cur.next() {
				break
			}
		}
	}
}

func (s *stream) sizeBytes() uint64 { return uint64(len(s.words)) * 8 }

func (s *stream) WriteTo(w io.Writer) (int64, error) {
	var hdr [24]byte
	binary.LittleEndian.PutUint64(hdr[0:], s.blocks)
	binary.LittleEndian.PutUint64(hdr[8:], s.n)
	binary.LittleEndian.PutUint64(hdr[16:], uint64(len(s.words)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	if err := binary.Write(w, binary.LittleEndian, s.words); err != nil {
		return int64(n), err
	}
	return int64(n) + int64(len(s.words))*8, nil
}

func readStream(r io.Reader, blockBits uint64) (*stream, error) {
	var hdr [24]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	s := &stream{
		blocks: binary.LittleEndian.Uint64(hdr[0:]),
		n:      binary.LittleEndian.Uint64(hdr[8:]),
	}
	nwords := binary.LittleEndian.Uint64(hdr[16:])
	if nwords*64 < s.blocks*blockBits || s.n < s.blocks {
		return nil, fmt.Errorf("compressed: corrupt stream header: %d blocks, %d words", s.blocks, nwords)
	}
	s.words = make([]uint64, nwords)
	if err := binary.Read(r, binary.LittleEndian, s.words); err != nil {
		return nil, err
	}
	return s, nil
}
