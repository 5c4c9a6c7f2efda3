package ngram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Candidate is the held-out result of one candidate order.
type Candidate struct {
	Order      int
	Perplexity float64
	Scored     int
	Skipped    int
	// Err is set when the order could not be scored; the candidate is then ineligible.
	Err error
}

// Coverage is the fraction of held-out events the order could score.
func (c Candidate) Coverage() float64 {
	return Score{Scored: c.Scored, Skipped: c.Skipped}.Coverage()
}

// Selection is the outcome of SelectBest.
type Selection struct {
	Model      *Model
	Order      int
	Perplexity float64
	// Candidates lists every tried order in ascending order.
	Candidates []Candidate
}

type selectOptions struct {
	policy      UnseenPolicy
	workers     int
	minCoverage float64
}

// SelectOption configures SelectBest.
type SelectOption func(*selectOptions)

// WithPolicy sets how unseen held-out pairs are treated. Defaults to SkipUnseen.
func WithPolicy(p UnseenPolicy) SelectOption {
	return func(o *selectOptions) { o.policy = p }
}

// WithWorkers bounds the number of orders fitted at once. Defaults to GOMAXPROCS.
func WithWorkers(n int) SelectOption {
	return func(o *selectOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMinCoverage makes orders that score less than frac of the held-out events
// ineligible. Under SkipUnseen a high order can otherwise win on a handful of events.
// Defaults to 0, which accepts any scorable order.
func WithMinCoverage(frac float64) SelectOption {
	return func(o *selectOptions) {
		o.minCoverage = min(max(frac, 0), 1)
	}
}

// Orders returns the inclusive range [lo, hi].
func Orders(lo, hi int) []int {
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}

// SelectBest fits one model per candidate order on train, scores each on heldout and
// returns the model with the lowest held-out perplexity. Ties go to the smaller order.
// Orders whose held-out score fails are recorded and passed over; ErrNoData is returned
// when no order could be scored.
func SelectBest(ctx context.Context, train, heldout corpus.Corpus, orders []int, opts ...SelectOption) (*Selection, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: no candidate orders", ErrInvalidOrder)
	}
	for _, n := range orders {
		if n < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, n)
		}
	}
	o := selectOptions{policy: SkipUnseen, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}

	sorted := append([]int(nil), orders...)
	sort.Ints(sorted)

	models := make([]*Model, len(sorted))
	cands := make([]Candidate, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, n := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := Fit(train, n)
			if err != nil {
				return err
			}
			models[i] = m
			cands[i].Order = n

			s, err := m.Score(heldout, o.policy)
			cands[i].Scored, cands[i].Skipped = s.Scored, s.Skipped
			if err != nil {
				cands[i].Perplexity = math.Inf(1)
				cands[i].Err = err
				log.Debugf("Order %d not scorable: %v", n, err)
				return nil
			}
			if cov := s.Coverage(); cov < o.minCoverage {
				cands[i].Perplexity = math.Inf(1)
				cands[i].Err = fmt.Errorf("%w: %.3f < %.3f", ErrLowCoverage, cov, o.minCoverage)
				log.Debugf("Order %d covers %.3f of held-out events, below %.3f", n, cov, o.minCoverage)
				return nil
			}
			cands[i].Perplexity = s.Perplexity
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best, widest := -1, 0.0
	for i, c := range cands {
		if c.Err != nil {
			continue
		}
		widest = max(widest, c.Coverage())
		// strict comparison keeps the smallest order on ties since cands is sorted
		if best < 0 || c.Perplexity < cands[best].Perplexity {
			best = i
		}
	}
	if best < 0 {
		errs := make([]error, 0, len(cands))
		for _, c := range cands {
			errs = append(errs, fmt.Errorf("order %d: %w", c.Order, c.Err))
		}
		return &Selection{Candidates: cands}, fmt.Errorf("%w: no order could be scored: %w", ErrNoData, errors.Join(errs...))
	}

	if cov := cands[best].Coverage(); cov < widest/2 {
		log.Debugf("Selected order %d scores only %.1f%% of held-out events, best coverage is %.1f%%",
			cands[best].Order, 100*cov, 100*widest)
	}
	log.Debugf("Selected order %d with held-out perplexity %.4f", cands[best].Order, cands[best].Perplexity)
	return &Selection{
		Model:      models[best],
		Order:      cands[best].Order,
		Perplexity: cands[best].Perplexity,
		Candidates: cands,
	}, nil
}
