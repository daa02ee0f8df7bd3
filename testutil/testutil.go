package testutil

import (
	"encoding/binary"
	"math"
	"math/rand"
	"slices"
	"sync"
)

// Ngram is a counted n-gram of word ids.
type Ngram struct {
	Words []int32
	Count uint64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Inverse transform over the harmonic prefix sums.
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// Sentences generates n sentences of minLen to maxLen words. Word ids are
// drawn from [0, vocab) with a Zipfian skew, so short n-grams repeat the way
// they do in natural text.
func (r *RNG) Sentences(n, minLen, maxLen int, vocab int32) [][]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]int32, n)
	for i := range out {
		l := minLen
		if maxLen > minLen {
			l += r.rand.Intn(maxLen - minLen + 1)
		}
		s := make([]int32, l)
		for j := range s {
			s[j] = int32(r.zipfLocked(int(vocab), 1.1))
		}
		out[i] = s
	}
	return out
}

// CountNgrams counts every n-gram of length 1 to maxOrder in sentences.
// The result is sorted by length, then by words.
func CountNgrams(sentences [][]int32, maxOrder int) []Ngram {
	index := make(map[string]int)
	var out []Ngram
	for _, s := range sentences {
		for n := 1; n <= maxOrder; n++ {
			for i := 0; i+n <= len(s); i++ {
				words := s[i : i+n]
				k := key(words)
				if j, ok := index[k]; ok {
					out[j].Count++
					continue
				}
				index[k] = len(out)
				out = append(out, Ngram{Words: slices.Clone(words), Count: 1})
			}
		}
	}
	sortNgrams(out)
	return out
}

// sortNgrams orders ngrams by length, then by words.
func sortNgrams(ngrams []Ngram) {
	slices.SortFunc(ngrams, func(a, b Ngram) int {
		if len(a.Words) != len(b.Words) {
			return len(a.Words) - len(b.Words)
		}
		return slices.Compare(a.Words, b.Words)
	})
}

// Sparse keeps every n-gram of the longest length present and a keep
// fraction of the shorter ones.
func (r *RNG) Sparse(ngrams []Ngram, keep float64) []Ngram {
	longest := 0
	for _, ng := range ngrams {
		longest = max(longest, len(ng.Words))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Ngram, 0, len(ngrams))
	for _, ng := range ngrams {
		if len(ng.Words) == longest || r.rand.Float64() < keep {
			out = append(out, ng)
		}
	}
	return out
}

// Shuffle permutes ngrams in place.
func (r *RNG) Shuffle(ngrams []Ngram) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(ngrams), func(i, j int) { ngrams[i], ngrams[j] = ngrams[j], ngrams[i] })
}

// Split deals ngrams round-robin into shards.
func Split(ngrams []Ngram, shards int) [][]Ngram {
	out := make([][]Ngram, shards)
	for i, ng := range ngrams {
		out[i%shards] = append(out[i%shards], ng)
	}
	return out
}

func key(words []int32) string {
	b := make([]byte, 0, 4*len(words))
	for _, w := range words {
		b = binary.LittleEndian.AppendUint32(b, uint32(w))
	}
	return string(b)
}
