package ngramstore_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/ngramstore"
)

func Example() {
	src := ngramstore.SliceSource[ngramstore.Count]{
		{Ngram: []int32{1}, Value: 12},
		{Ngram: []int32{2}, Value: 7},
		{Ngram: []int32{1, 2}, Value: 3},
	}

	model, err := ngramstore.Build(context.Background(), src, ngramstore.WithMaxOrder(2))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(ngramstore.ReadCount(model, []int32{1, 2}))
	fmt.Println(ngramstore.ReadCount(model, []int32{2, 1}))
	// Output:
	// 3
	// 0
}

// Example_placeholders shows an n-gram whose context is missing from the
// source. The context is stored without a value.
func Example_placeholders() {
	src := ngramstore.SliceSource[ngramstore.ProbBackoff]{
		{Ngram: []int32{4}, Value: ngramstore.ProbBackoff{Prob: -1.5, Backoff: -0.3}},
		{Ngram: []int32{5}, Value: ngramstore.ProbBackoff{Prob: -2}},
		{Ngram: []int32{4, 5, 6}, Value: ngramstore.ProbBackoff{Prob: -0.5}},
	}

	model, err := ngramstore.Build(context.Background(), src, ngramstore.WithMaxOrder(3), ngramstore.WithGrowth(0, 0))
	if err != nil {
		log.Fatal(err)
	}

	_, ok := model.Get([]int32{4, 5})
	fmt.Println(model.Contains([]int32{4, 5}), ok)

	v, n, _ := model.LongestValue([]int32{4, 5})
	fmt.Println(v.Prob, n)
	// Output:
	// true false
	// -2 1
}

// Example_walk extends a context one word at a time.
func Example_walk() {
	src := ngramstore.SliceSource[ngramstore.Count]{
		{Ngram: []int32{1}, Value: 5},
		{Ngram: []int32{1, 2}, Value: 2},
		{Ngram: []int32{1, 2, 3}, Value: 1},
	}
	model, err := ngramstore.Build(context.Background(), src, ngramstore.WithMaxOrder(3), ngramstore.WithCompressed())
	if err != nil {
		log.Fatal(err)
	}

	off, order := ngramstore.NotFound, -1
	for _, w := range []int32{1, 2, 3} {
		var v ngramstore.Count
		off, v, _ = model.ValueAndOffset(off, order, w)
		order++
		fmt.Println(order, v)
	}
	// Output:
	// 0 5
	// 1 2
	// 2 1
}

func Example_saveLoad() {
	src := ngramstore.SliceSource[ngramstore.Count]{{Ngram: []int32{9}, Value: 42}}
	model, err := ngramstore.Build(context.Background(), src, ngramstore.WithMaxOrder(1))
	if err != nil {
		log.Fatal(err)
	}

	var buf bytes.Buffer
	if err := model.Save(&buf, ngramstore.WithCompression(ngramstore.CompressionZSTD)); err != nil {
		log.Fatal(err)
	}
	loaded, err := ngramstore.Load[ngramstore.Count](&buf)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(ngramstore.ReadCount(loaded, []int32{9}), loaded.Format())
	// Output: 42 hashtrie
}
