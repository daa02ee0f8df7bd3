// Package ngramstore stores large n-gram collections in bounded memory for
// statistical language models.
//
// An n-gram is a sequence of word ids. Each n-gram maps to a value: a
// probability/backoff pair (ProbBackoff), a count (Count), or any other
// comparable type. Models are hash tries: every order has one table keyed by
// the last consumed word and the offset of the n-gram's context in the
// previous order, so full keys are never stored and extending a context by
// one word is a single probe.
//
// # Quick Start
//
//	src := ngramstore.SliceSource[ngramstore.Count]{
//		{Ngram: []int32{1}, Value: 12},
//		{Ngram: []int32{1, 2}, Value: 3},
//	}
//	model, _ := ngramstore.Build(ctx, src, ngramstore.WithMaxOrder(3))
//	count := ngramstore.ReadCount(model, []int32{1, 2})
//
// # Building
//
// Build counts the source first and sizes every table exactly. WithGrowth
// builds in one pass over tables that grow on demand. Either way, n-grams
// whose contexts are missing from the source get placeholder contexts that
// carry no value, and are then inserted again.
//
// BuildConcurrent reads several shards of one collection concurrently.
//
// # Layouts
//
// The default layout answers lookups with one hash probe per order.
// WithCompressed re-encodes the finished tables into sorted, variable-length
// coded blocks; lookups then binary search a block index and decode a short
// block.
//
// # Walking
//
// Offset extends a context one word at a time:
//
//	off, order := ngramstore.NotFound, -1
//	for _, w := range words {
//		if off = model.Offset(off, order, w); off == ngramstore.NotFound {
//			break
//		}
//		order++
//	}
//
// WithReversed keys n-grams by their first word under their suffix instead,
// which suits right-to-left scoring.
//
// # Persistence
//
//	_ = model.SaveTo(ctx, blobstore.NewLocalStore("./models"), "en.ngs",
//		ngramstore.WithCompression(ngramstore.CompressionZSTD))
//	model, _ = ngramstore.LoadFrom[ngramstore.Count](ctx, store, "en.ngs")
//
// The blobstore/s3 and blobstore/minio packages store models in object
// storage.
//
// # Observability
//
// WithLogger attaches a slog-based Logger. WithMetricsCollector records
// insertions, lookups, seals and table growth; see BasicMetricsCollector and
// PrometheusCollector.
package ngramstore
