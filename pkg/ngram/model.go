/*
Package ngram implements an unsmoothed n-gram language model over tokenized method bodies.

A model is fitted once from a training corpus and is read-only afterwards, so it can be
shared across goroutines without locking. Every context seen during fitting maps to a
maximum-likelihood distribution over the tokens that followed it; no probability mass is
reserved for unseen tokens, and lookups outside the fitted table report ErrUnseenContext or
ErrUnseenToken instead of a number.

	model, err := ngram.Fit(train, 3)
	ppl, err := model.Perplexity(heldout)
	out := model.Generate([]string{"public", "void"}, 64)

Contexts are stored in a patricia trie keyed by the encoded token sequence, see Context.
*/
package ngram

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

var (
	ErrInvalidOrder  = errors.New("ngram: order must be at least 1")
	ErrNoData        = errors.New("ngram: no scorable data")
	ErrUnseenContext = errors.New("ngram: context not observed during fit")
	ErrUnseenToken   = errors.New("ngram: token not observed after context")
	ErrOrderMismatch = errors.New("ngram: order mismatch")
	ErrCorruptModel  = errors.New("ngram: corrupt model")
	ErrLowCoverage   = errors.New("ngram: held-out coverage below minimum")
)

// distribution is the next-token distribution of one context.
type distribution struct {
	counts map[string]int
	probs  map[string]float64
	// best is the argmax token, lexicographically smallest among ties.
	best string
}

func newDistribution(counts map[string]int) *distribution {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}

	d := &distribution{
		counts: make(map[string]int, len(counts)),
		probs:  make(map[string]float64, len(counts)),
	}
	bestCount := -1
	for tok, n := range counts {
		if n <= 0 {
			continue
		}
		d.counts[tok] = n
		d.probs[tok] = float64(n) / float64(total)
		if n > bestCount || (n == bestCount && tok < d.best) {
			bestCount = n
			d.best = tok
		}
	}
	return d
}

// Model is a fitted n-gram model. It is immutable after construction.
type Model struct {
	order    int
	table    *patricia.Trie
	contexts int
	counts   *FrequencyTable
}

// Fit tallies c at the given order and derives the probability table.
func Fit(c corpus.Corpus, order int) (*Model, error) {
	f, err := Tally(c, order)
	if err != nil {
		return nil, err
	}
	return FromCounts(f), nil
}

// FitShards tallies shards concurrently, merges the tables, and derives probabilities
// only after every merge has completed.
func FitShards(ctx context.Context, shards []corpus.Corpus, order int) (*Model, error) {
	f, err := TallyShards(ctx, shards, order)
	if err != nil {
		return nil, err
	}
	return FromCounts(f), nil
}

// FromCounts derives a model from a finished frequency table. The model keeps a
// private copy of the counts for self-scoring; later changes to f do not affect it.
func FromCounts(f *FrequencyTable) *Model {
	own, _ := NewFrequencyTable(f.order)
	_ = own.Merge(f)

	m := &Model{
		order:  own.order,
		table:  newTable(),
		counts: own,
	}
	for ctx, next := range own.counts {
		d := newDistribution(next)
		if d == nil {
			log.Debugf("Skipping zero-count context %s", ctx)
			continue
		}
		m.insert(ctx, d)
	}

	log.Debugf("Fitted order-%d model: contexts=%d tokens=%d", m.order, m.contexts, own.total)
	return m
}

// Order returns n.
func (m *Model) Order() int { return m.order }

// Len returns the number of contexts in the probability table.
func (m *Model) Len() int { return m.contexts }

// Empty reports whether the model was fitted on no tokens.
func (m *Model) Empty() bool { return m.contexts == 0 }

// Counts returns a copy of the training counts the model was derived from.
func (m *Model) Counts() *FrequencyTable {
	cp, _ := NewFrequencyTable(m.order)
	_ = cp.Merge(m.counts)
	return cp
}

// ContextOf returns the context formed by the last n-1 tokens of history,
// or all of history when it is shorter.
func (m *Model) ContextOf(history []string) Context {
	return contextAt(history, len(history), m.order)
}

func newTable() *patricia.Trie {
	return patricia.NewTrie()
}

func (m *Model) insert(ctx Context, d *distribution) {
	if m.table.Insert(patricia.Prefix(ctx), d) {
		m.contexts++
	}
}

func (m *Model) lookup(ctx Context) *distribution {
	item := m.table.Get(patricia.Prefix(ctx))
	if item == nil {
		return nil
	}
	return item.(*distribution)
}

// ProbabilityOf returns P(tok | ctx). Unobserved pairs are reported through
// ErrUnseenContext or ErrUnseenToken, never as a zero probability.
func (m *Model) ProbabilityOf(ctx Context, tok string) (float64, error) {
	d := m.lookup(ctx)
	if d == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnseenContext, ctx)
	}
	p, ok := d.probs[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q after %s", ErrUnseenToken, tok, ctx)
	}
	return p, nil
}

// Distribution returns a copy of the next-token distribution of ctx.
func (m *Model) Distribution(ctx Context) (map[string]float64, bool) {
	d := m.lookup(ctx)
	if d == nil {
		return nil, false
	}
	out := make(map[string]float64, len(d.probs))
	for tok, p := range d.probs {
		out[tok] = p
	}
	return out, true
}

// Walk calls fn for every context in ascending key order with a copy of its distribution.
// A non-nil error from fn stops the walk and is returned.
func (m *Model) Walk(fn func(ctx Context, probs map[string]float64) error) error {
	type entry struct {
		ctx Context
		d   *distribution
	}
	entries := make([]entry, 0, m.contexts)
	err := m.table.Visit(func(prefix patricia.Prefix, item patricia.Item) error {
		entries = append(entries, entry{Context(prefix), item.(*distribution)})
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ctx < entries[j].ctx })

	for _, e := range entries {
		probs := make(map[string]float64, len(e.d.probs))
		for tok, p := range e.d.probs {
			probs[tok] = p
		}
		if err := fn(e.ctx, probs); err != nil {
			return err
		}
	}
	return nil
}
