/*
Package corpus holds tokenized method bodies and the deterministic plumbing around them.

A Method is the ordered token sequence an external tokenizer produced for one method
body. A Corpus is an ordered list of Methods; its order matters because the held-out
split is positional.

# Splitting

	split, err := corpus.SplitEvery(methods, 5)
	model, err := ngram.Fit(split.Train, 3)

SplitEvery routes every k-th method (by original index, starting at 0) to the held-out
side. SplitRandom is the seeded alternative; the same seed and input always produce the
same partition.

# Files

Corpora are read from CSV (one method per row, tokens as fields) or JSONL (one JSON
string array per line). LoadShards reads a directory of such files concurrently and keeps
them apart so counting can run per shard.
*/
package corpus

import (
	"errors"
	"slices"
)

var (
	ErrInvalidStride      = errors.New("corpus: held-out stride must be at least 1")
	ErrInvalidFraction    = errors.New("corpus: held-out fraction must be in (0, 1)")
	ErrUnsupportedFormat  = errors.New("corpus: unsupported file format")
	ErrUnrepresentable    = errors.New("corpus: method cannot be stored as CSV, use .jsonl")
	ErrInvalidPercentiles = errors.New("corpus: percentiles must satisfy 0 <= lower <= upper <= 100")
)

// Method is the ordered token sequence of one method body.
type Method []string

// Corpus is an ordered collection of methods.
type Corpus []Method

// Len returns the number of tokens in the method.
func (m Method) Len() int { return len(m) }

// Equal reports whether two methods hold the same tokens in the same order.
func (m Method) Equal(other Method) bool { return slices.Equal(m, other) }

// Tokens returns the total token count across all methods.
func (c Corpus) Tokens() int {
	total := 0
	for _, m := range c {
		total += len(m)
	}
	return total
}

// NonEmpty returns the methods that carry at least one token.
func (c Corpus) NonEmpty() Corpus {
	out := make(Corpus, 0, len(c))
	for _, m := range c {
		if len(m) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy so callers may hand out a corpus without sharing backing arrays.
func (c Corpus) Clone() Corpus {
	out := make(Corpus, len(c))
	for i, m := range c {
		out[i] = slices.Clone(m)
	}
	return out
}
