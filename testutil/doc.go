// Package testutil provides testing utilities for ngramstore.
//
// This package is intended for use in tests and benchmarks only.
// It generates deterministic word-id corpora and the n-gram counts they
// contain.
//
// # Corpus Generation
//
//	rng := testutil.NewRNG(seed)
//	sentences := rng.Sentences(1000, 3, 12, 500) // Zipfian word ids
//	ngrams := testutil.CountNgrams(sentences, 4)  // every n-gram up to length 4
//
// # Gaps
//
// CountNgrams yields a closed set: every context of a counted n-gram is
// itself counted. Sparse removes some shorter n-grams so that builds must
// insert placeholders:
//
//	sparse := rng.Sparse(ngrams, 0.5)
package testutil
