/*
Package eval scores a fitted n-gram model against held-out methods.

For each held-out method the harness seeds the greedy generator with a prefix of the
method, compares the generated sequence position by position with the method itself and
records the token accuracy. The report aggregates the mean accuracy and the held-out
perplexity, and can be exported as a CSV table or persisted to a SQLite results store.

	h := eval.NewHarness(model, eval.Options{})
	report, err := h.Evaluate(heldout)
	err = report.WriteCSV(os.Stdout)
*/
package eval

import (
	"errors"
	"math"

	"github.com/bastiangx/codegram/internal/logger"
	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"
)

// SeedWhole seeds generation with the entire held-out method.
const SeedWhole = -1

// Options controls how the harness seeds and scores generation.
type Options struct {
	// SeedTokens is the prefix length handed to the generator. Zero uses n-1 tokens
	// (at least one) and SeedWhole uses the whole method. Longer values are clamped.
	SeedTokens int
	// MaxLength bounds each generated sequence. Zero uses ngram.DefaultMaxLength.
	MaxLength   int
	Denominator Denominator
	// Policy applies to the held-out perplexity.
	Policy ngram.UnseenPolicy
}

// Record is the outcome for one held-out method.
type Record struct {
	Actual    []string
	Predicted []string
	Accuracy  float64
}

// Report aggregates one evaluation run.
type Report struct {
	Order   int
	Records []Record
	// MeanAccuracy is NaN when no method was evaluated.
	MeanAccuracy float64
	// Perplexity is NaN when no held-out event could be scored.
	Perplexity float64
	Scored     int
	Skipped    int
	// Empty counts zero-length held-out methods that were left out.
	Empty int
}

// Harness evaluates one model.
type Harness struct {
	model *ngram.Model
	opts  Options
	log   *log.Logger
}

// NewHarness binds a model to evaluation options.
func NewHarness(m *ngram.Model, opts Options) *Harness {
	return &Harness{
		model: m,
		opts:  opts,
		log:   logger.New("eval"),
	}
}

// seedLen resolves the prefix length for a method of n tokens.
func (h *Harness) seedLen(n int) int {
	k := h.opts.SeedTokens
	switch {
	case k == SeedWhole:
		k = n
	case k <= 0:
		k = max(h.model.Order()-1, 1)
	}
	return min(k, n)
}

// Evaluate generates a continuation for every non-empty held-out method and scores it.
// Only a perplexity failure under ngram.FailOnUnseen is returned as an error.
func (h *Harness) Evaluate(heldout corpus.Corpus) (*Report, error) {
	methods := heldout.NonEmpty()
	r := &Report{
		Order:   h.model.Order(),
		Records: make([]Record, 0, len(methods)),
		Empty:   len(heldout) - len(methods),
	}

	accs := make([]float64, 0, len(methods))
	for _, m := range methods {
		actual := []string(m)
		predicted := h.model.Generate(actual[:h.seedLen(len(actual))], h.opts.MaxLength)
		acc := Accuracy(actual, predicted, h.opts.Denominator)

		r.Records = append(r.Records, Record{
			Actual:    append([]string(nil), actual...),
			Predicted: predicted,
			Accuracy:  acc,
		})
		accs = append(accs, acc)
	}

	r.MeanAccuracy = math.NaN()
	if len(accs) > 0 {
		r.MeanAccuracy = stat.Mean(accs, nil)
	}

	score, err := h.model.Score(heldout, h.opts.Policy)
	switch {
	case errors.Is(err, ngram.ErrNoData):
		r.Perplexity = math.NaN()
		r.Skipped = score.Skipped
		h.log.Warn("No held-out event could be scored", "skipped", score.Skipped)
	case err != nil:
		return nil, err
	default:
		r.Perplexity = score.Perplexity
		r.Scored = score.Scored
		r.Skipped = score.Skipped
	}

	h.log.Debug("Evaluated held-out set",
		"order", r.Order,
		"methods", len(r.Records),
		"empty", r.Empty,
		"accuracy", r.MeanAccuracy,
		"perplexity", r.Perplexity,
	)
	return r, nil
}
