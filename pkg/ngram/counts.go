package ngram

import (
	"context"
	"fmt"
	"sort"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// FrequencyTable maps each context to the occurrence counts of the tokens that followed it.
// It is the mutable accumulator behind Fit; a Model never mutates the table it was built from.
type FrequencyTable struct {
	order  int
	counts map[Context]map[string]int
	total  int
}

// NewFrequencyTable creates an empty table for the given order.
func NewFrequencyTable(order int) (*FrequencyTable, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}
	return &FrequencyTable{
		order:  order,
		counts: make(map[Context]map[string]int),
	}, nil
}

// Tally counts every (context, token) pair of c at the given order.
func Tally(c corpus.Corpus, order int) (*FrequencyTable, error) {
	f, err := NewFrequencyTable(order)
	if err != nil {
		return nil, err
	}
	for _, m := range c {
		f.Add(m)
	}
	return f, nil
}

// TallyShards tallies each shard independently and merges the results by summation.
func TallyShards(ctx context.Context, shards []corpus.Corpus, order int) (*FrequencyTable, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}

	partial := make([]*FrequencyTable, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := Tally(shard, order)
			if err != nil {
				return err
			}
			partial[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, _ := NewFrequencyTable(order)
	for _, f := range partial {
		if err := merged.Merge(f); err != nil {
			return nil, err
		}
	}
	log.Debugf("Merged %d shard tables: contexts=%d tokens=%d", len(shards), merged.Len(), merged.Total())
	return merged, nil
}

// Order returns the n of the table.
func (f *FrequencyTable) Order() int { return f.order }

// Add counts the tokens of one method. An empty method contributes nothing.
func (f *FrequencyTable) Add(m corpus.Method) {
	for i, tok := range m {
		f.add(contextAt(m, i, f.order), tok, 1)
	}
}

func (f *FrequencyTable) add(ctx Context, tok string, n int) {
	next, ok := f.counts[ctx]
	if !ok {
		next = make(map[string]int)
		f.counts[ctx] = next
	}
	next[tok] += n
	f.total += n
}

// Merge adds every count of other into f. Both tables must share an order.
func (f *FrequencyTable) Merge(other *FrequencyTable) error {
	if other == nil {
		return nil
	}
	if other.order != f.order {
		return fmt.Errorf("%w: %d != %d", ErrOrderMismatch, other.order, f.order)
	}
	for ctx, next := range other.counts {
		for tok, n := range next {
			f.add(ctx, tok, n)
		}
	}
	return nil
}

// Count returns how often tok followed ctx.
func (f *FrequencyTable) Count(ctx Context, tok string) int {
	return f.counts[ctx][tok]
}

// Total returns the number of counted events, which equals the tokens tallied.
func (f *FrequencyTable) Total() int { return f.total }

// Len returns the number of distinct contexts.
func (f *FrequencyTable) Len() int { return len(f.counts) }

// Each calls fn for every (context, token, count) in ascending context then token order.
func (f *FrequencyTable) Each(fn func(ctx Context, tok string, count int)) {
	for _, ctx := range f.sortedContexts() {
		next := f.counts[ctx]
		toks := make([]string, 0, len(next))
		for tok := range next {
			toks = append(toks, tok)
		}
		sort.Strings(toks)
		for _, tok := range toks {
			fn(ctx, tok, next[tok])
		}
	}
}

func (f *FrequencyTable) sortedContexts() []Context {
	keys := make([]Context, 0, len(f.counts))
	for ctx := range f.counts {
		keys = append(keys, ctx)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
