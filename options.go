package ngramstore

import (
	"log/slog"
	"time"

	"github.com/hupe1980/ngramstore/codec"
	"github.com/hupe1980/ngramstore/internal/blob"
	"github.com/hupe1980/ngramstore/internal/compressed"
	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
)

// Compression selects how a saved model is compressed.
type Compression = blob.Compression

const (
	CompressionNone = blob.CompressionNone
	CompressionLZ4  = blob.CompressionLZ4
	CompressionZSTD = blob.CompressionZSTD
)

const defaultProgressInterval = 5 * time.Second

type options struct {
	maxOrder      int
	loadFactor    float64
	maxLoadFactor float64
	growthFactor  float64
	wordBits      uint8
	direction     Direction
	suffixOffsets bool

	explicit   bool
	capacities []uint64

	compressed  bool
	blockWords  uint8
	offsetRadix uint8
	wordRadix   uint8
	suffixRadix uint8
	valueRadix  uint8

	compression      Compression
	codec            codec.Codec
	logger           *Logger
	metricsCollector MetricsCollector
	progressInterval time.Duration
}

// Option configures Build, Load and Save.
type Option func(*options)

func defaultOptions() options {
	return options{
		maxOrder:         hashtrie.DefaultMaxOrder,
		loadFactor:       hashtrie.DefaultLoadFactor,
		maxLoadFactor:    hashtrie.DefaultMaxLoadFactor,
		growthFactor:     hashtrie.DefaultGrowthFactor,
		wordBits:         hashtable.DefaultWordBits,
		blockWords:       compressed.DefaultBlockWords,
		offsetRadix:      compressed.DefaultOffsetRadix,
		wordRadix:        compressed.DefaultWordRadix,
		suffixRadix:      compressed.DefaultSuffixRadix,
		valueRadix:       compressed.DefaultValueRadix,
		compression:      CompressionNone,
		codec:            codec.Default,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		progressInterval: defaultProgressInterval,
	}
}

func applyOptions(optFns []Option) options {
	o := defaultOptions()
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// WithMaxOrder sets the longest n-gram length the model stores.
func WithMaxOrder(n int) Option {
	return func(o *options) { o.maxOrder = n }
}

// WithLoadFactor sets the target occupancy of the per-word ranges of a
// counted (two-pass) build. Lower values trade memory for shorter probes.
func WithLoadFactor(lf float64) Option {
	return func(o *options) { o.loadFactor = lf }
}

// WithWordBits sets how many key bits hold a word id. The remaining bits
// hold the context offset, so a larger vocabulary leaves less room for
// large tables.
func WithWordBits(bits uint8) Option {
	return func(o *options) { o.wordBits = bits }
}

// WithReversed keys every n-gram by its first word under its suffix instead
// of by its last word under its prefix.
func WithReversed() Option {
	return func(o *options) { o.direction = hashtrie.Reversed }
}

// WithSuffixOffsets stores, for every n-gram, the offset of the n-gram
// without its first consumed word. Ignored by compressed models.
func WithSuffixOffsets() Option {
	return func(o *options) { o.suffixOffsets = true }
}

// WithGrowth builds in a single pass over growing tables instead of counting
// first. capacities optionally pre-sizes each order (index 0 is the
// vocabulary). maxLoad and factor of zero keep the defaults.
//
// Single-pass builds need more memory while building; the source is only
// scanned again when n-grams arrive before their contexts.
func WithGrowth(maxLoad, factor float64, capacities ...uint64) Option {
	return func(o *options) {
		o.explicit = true
		if maxLoad > 0 {
			o.maxLoadFactor = maxLoad
		}
		if factor > 0 {
			o.growthFactor = factor
		}
		o.capacities = capacities
	}
}

// WithCompressed re-encodes the finished model into sorted, block-compressed
// streams. Lookups become a binary search plus a short decode.
func WithCompressed() Option {
	return func(o *options) { o.compressed = true }
}

// WithBlockWords sets the block size of a compressed model in 64-bit words.
func WithBlockWords(words uint8) Option {
	return func(o *options) { o.blockWords = words }
}

// WithRadices sets the variable-length code radices of a compressed model:
// block positions, word deltas, context deltas and value ranks. Zero keeps
// the default for that field. The value radix also applies to hash trie
// models.
func WithRadices(offset, word, suffix, value uint8) Option {
	return func(o *options) {
		if offset > 0 {
			o.offsetRadix = offset
		}
		if word > 0 {
			o.wordRadix = word
		}
		if suffix > 0 {
			o.suffixRadix = suffix
		}
		if value > 0 {
			o.valueRadix = value
		}
	}
}

// WithCompression selects the compression of saved models.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithCodec selects the codec of the saved header. Loading reads the codec
// name from the blob, so this only affects Save.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example:
//
//	metrics := &ngramstore.BasicMetricsCollector{}
//	model, _ := ngramstore.Build(ctx, src, ngramstore.WithMetricsCollector(metrics))
//	fmt.Println(metrics.GetStats().PutCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel is shorthand for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) { o.logger = NewTextLogger(level) }
}

// WithProgressInterval sets how often long build phases log progress.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) { o.progressInterval = d }
}

func (o *options) trieConfig(locked bool) hashtrie.Config {
	return hashtrie.Config{
		MaxOrder:           o.maxOrder,
		LoadFactor:         o.loadFactor,
		MaxLoadFactor:      o.maxLoadFactor,
		GrowthFactor:       o.growthFactor,
		WordBits:           o.wordBits,
		Direction:          o.direction,
		StoreSuffixOffsets: o.suffixOffsets && !o.compressed,
		ValueRadix:         o.valueRadix,
		Locked:             locked,
	}
}

func (o *options) compressedConfig() compressed.Config {
	return compressed.Config{
		MaxOrder:    o.maxOrder,
		WordBits:    o.wordBits,
		Direction:   o.direction,
		BlockWords:  o.blockWords,
		OffsetRadix: o.offsetRadix,
		WordRadix:   o.wordRadix,
		SuffixRadix: o.suffixRadix,
		ValueRadix:  o.valueRadix,
	}
}
