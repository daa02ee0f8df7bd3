package benchmark_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/ngramstore"
	"github.com/hupe1980/ngramstore/testutil"
)

var layouts = []struct {
	name string
	opts []ngramstore.Option
}{
	{"HashTrie", nil},
	{"Explicit", []ngramstore.Option{ngramstore.WithGrowth(0, 0)}},
	{"Compressed", []ngramstore.Option{ngramstore.WithCompressed()}},
}

func source(ngrams []testutil.Ngram) ngramstore.SliceSource[ngramstore.Count] {
	src := make(ngramstore.SliceSource[ngramstore.Count], len(ngrams))
	for i, ng := range ngrams {
		src[i] = ngramstore.Entry[ngramstore.Count]{Ngram: ng.Words, Value: ng.Count}
	}
	return src
}

func benchCorpus(sentences int) []testutil.Ngram {
	rng := testutil.NewRNG(1)
	return testutil.CountNgrams(rng.Sentences(sentences, 5, 20, 5000), 4)
}

func BenchmarkBuild(b *testing.B) {
	src := source(benchCorpus(2000))
	for _, l := range layouts {
		b.Run(l.name, func(b *testing.B) {
			b.ReportAllocs()
			opts := append([]ngramstore.Option{ngramstore.WithMaxOrder(4)}, l.opts...)
			for b.Loop() {
				if _, err := ngramstore.Build(context.Background(), src, opts...); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkGet(b *testing.B) {
	ngrams := benchCorpus(2000)
	for _, l := range layouts {
		b.Run(l.name, func(b *testing.B) {
			opts := append([]ngramstore.Option{ngramstore.WithMaxOrder(4)}, l.opts...)
			m, err := ngramstore.Build(context.Background(), source(ngrams), opts...)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportMetric(float64(m.SizeBytes())/float64(len(ngrams)), "bytes/ngram")

			i := 0
			for b.Loop() {
				if _, ok := m.Get(ngrams[i%len(ngrams)].Words); !ok {
					b.Fatal("missing n-gram")
				}
				i++
			}
		})
	}
}

// BenchmarkOffsetWalk extends contexts one word at a time, the access
// pattern of left-to-right scoring.
func BenchmarkOffsetWalk(b *testing.B) {
	rng := testutil.NewRNG(2)
	sentences := rng.Sentences(2000, 5, 20, 5000)
	ngrams := testutil.CountNgrams(sentences, 4)
	for _, l := range layouts {
		b.Run(l.name, func(b *testing.B) {
			opts := append([]ngramstore.Option{ngramstore.WithMaxOrder(4)}, l.opts...)
			m, err := ngramstore.Build(context.Background(), source(ngrams), opts...)
			if err != nil {
				b.Fatal(err)
			}

			i := 0
			for b.Loop() {
				s := sentences[i%len(sentences)]
				off, order := ngramstore.NotFound, -1
				for _, w := range s[:min(len(s), 4)] {
					off = m.Offset(off, order, w)
					order++
				}
				if off == ngramstore.NotFound {
					b.Fatal("missing sentence prefix")
				}
				i++
			}
		})
	}
}

func BenchmarkLoad(b *testing.B) {
	m, err := ngramstore.Build(context.Background(), source(benchCorpus(2000)), ngramstore.WithMaxOrder(4))
	if err != nil {
		b.Fatal(err)
	}
	for _, comp := range []ngramstore.Compression{ngramstore.CompressionNone, ngramstore.CompressionLZ4, ngramstore.CompressionZSTD} {
		b.Run(comp.String(), func(b *testing.B) {
			var buf bytes.Buffer
			if err := m.Save(&buf, ngramstore.WithCompression(comp)); err != nil {
				b.Fatal(err)
			}
			data := buf.Bytes()
			b.SetBytes(int64(len(data)))

			for b.Loop() {
				if _, err := ngramstore.Load[ngramstore.Count](bytes.NewReader(data)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
