package eval

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"path/filepath"
	"testing"

	"github.com/bastiangx/codegram/internal/logger"
	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainCorpus() corpus.Corpus {
	return corpus.Corpus{
		{"public", "void", "run", "(", ")", "{", "}"},
		{"public", "int", "size", "(", ")", "{", "return", "n", ";", "}"},
		{"private", "void", "reset", "(", ")", "{", "n", "=", "0", ";", "}"},
		{"public", "void", "close", "(", ")", "{", "}"},
	}
}

func fitted(t *testing.T, order int) *ngram.Model {
	t.Helper()
	m, err := ngram.Fit(trainCorpus(), order)
	require.NoError(t, err)
	return m
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name      string
		actual    []string
		predicted []string
		shorter   float64
		longer    float64
	}{
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 1, 1},
		{"prediction shorter", []string{"a", "b", "c", "d"}, []string{"a", "b"}, 1, 0.5},
		{"prediction longer", []string{"a", "b"}, []string{"a", "x", "c", "d"}, 0.5, 0.25},
		{"no overlap", []string{"a", "b"}, []string{"x", "y"}, 0, 0},
		{"empty prediction", []string{"a"}, nil, 0, 0},
		{"both empty", nil, nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.shorter, Accuracy(tt.actual, tt.predicted, ShorterLength), 1e-12)
			assert.InDelta(t, tt.longer, Accuracy(tt.actual, tt.predicted, LongerLength), 1e-12)
		})
	}
}

func TestParseDenominator(t *testing.T) {
	d, err := ParseDenominator("longer")
	require.NoError(t, err)
	assert.Equal(t, LongerLength, d)
	assert.Equal(t, "longer", d.String())

	d, err = ParseDenominator("")
	require.NoError(t, err)
	assert.Equal(t, ShorterLength, d)

	_, err = ParseDenominator("median")
	assert.Error(t, err)
}

func TestSeedLen(t *testing.T) {
	m := fitted(t, 3)

	assert.Equal(t, 2, NewHarness(m, Options{}).seedLen(10))
	assert.Equal(t, 1, NewHarness(m, Options{}).seedLen(1))
	assert.Equal(t, 10, NewHarness(m, Options{SeedTokens: SeedWhole}).seedLen(10))
	assert.Equal(t, 4, NewHarness(m, Options{SeedTokens: 4}).seedLen(10))
	assert.Equal(t, 3, NewHarness(m, Options{SeedTokens: 9}).seedLen(3))

	unigram := fitted(t, 1)
	assert.Equal(t, 1, NewHarness(unigram, Options{}).seedLen(5))
}

func TestEvaluate(t *testing.T) {
	m := fitted(t, 3)
	heldout := corpus.Corpus{
		{"public", "void", "close", "(", ")", "{", "}"},
		{},
	}

	report, err := NewHarness(m, Options{}).Evaluate(heldout)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Order)
	assert.Equal(t, 1, report.Empty)
	require.Len(t, report.Records, 1)

	rec := report.Records[0]
	assert.Equal(t, []string(heldout[0]), rec.Actual)
	assert.Equal(t, rec.Actual, rec.Predicted)
	assert.Equal(t, 1.0, rec.Accuracy)
	assert.Equal(t, 1.0, report.MeanAccuracy)
	assert.Equal(t, 1, report.ExactMatches())

	assert.Equal(t, 7, report.Scored)
	assert.Equal(t, 0, report.Skipped)
	assert.GreaterOrEqual(t, report.Perplexity, 1.0)
}

func TestEvaluateSummaryIsDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	h := NewHarness(fitted(t, 2), Options{})
	h.log = logger.NewWithConfig(&buf, "eval", log.InfoLevel, false, false, log.TextFormatter)

	_, err := h.Evaluate(trainCorpus())
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	h.log.SetLevel(log.DebugLevel)
	_, err = h.Evaluate(trainCorpus())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Evaluated held-out set")
}

func TestEvaluateUnseen(t *testing.T) {
	m := fitted(t, 3)
	heldout := corpus.Corpus{{"q", "r"}}

	report, err := NewHarness(m, Options{}).Evaluate(heldout)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(report.Perplexity))
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Records, 1)
	assert.Equal(t, []string{"q", "r"}, report.Records[0].Predicted)

	_, err = NewHarness(m, Options{Policy: ngram.FailOnUnseen}).Evaluate(heldout)
	assert.ErrorIs(t, err, ngram.ErrUnseenToken)
}

func TestEvaluateEmpty(t *testing.T) {
	report, err := NewHarness(fitted(t, 2), Options{}).Evaluate(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Records)
	assert.True(t, math.IsNaN(report.MeanAccuracy))
	assert.True(t, math.IsNaN(report.Perplexity))
	assert.True(t, math.IsNaN(report.AccuracyQuantile(0.5)))
}

func TestEvaluateMaxLength(t *testing.T) {
	m, err := ngram.Fit(corpus.Corpus{{"a", "b", "a", "b"}}, 2)
	require.NoError(t, err)

	report, err := NewHarness(m, Options{MaxLength: 6}).Evaluate(corpus.Corpus{{"a", "b", "a"}})
	require.NoError(t, err)
	require.Len(t, report.Records, 1)
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, report.Records[0].Predicted)
	assert.Equal(t, 1.0, report.Records[0].Accuracy)

	report, err = NewHarness(m, Options{MaxLength: 6, Denominator: LongerLength}).Evaluate(corpus.Corpus{{"a", "b", "a"}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, report.Records[0].Accuracy, 1e-12)
}

func TestWriteCSV(t *testing.T) {
	report := &Report{
		Records: []Record{
			{Actual: []string{"a", "b"}, Predicted: []string{"a", "c"}, Accuracy: 0.5},
			{Actual: []string{"x", ","}, Predicted: []string{"x"}, Accuracy: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Actual", "Predicted", "Accuracy"}, rows[0])
	assert.Equal(t, []string{"a b", "a c", "0.5"}, rows[1])
	assert.Equal(t, []string{"x ,", "x", "1"}, rows[2])

	assert.InDelta(t, 0.5, report.AccuracyQuantile(0), 1e-12)
	assert.InDelta(t, 1.0, report.AccuracyQuantile(1), 1e-12)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Migrate(s.db))

	report, err := NewHarness(fitted(t, 3), Options{}).Evaluate(corpus.Corpus{
		{"public", "void", "close", "(", ")", "{", "}"},
		{"q", "r"},
	})
	require.NoError(t, err)

	first, err := s.SaveReport(ctx, report, "order-3")
	require.NoError(t, err)

	empty := &Report{Order: 2, MeanAccuracy: math.NaN(), Perplexity: math.NaN()}
	second, err := s.SaveReport(ctx, empty, "empty")
	require.NoError(t, err)
	assert.Greater(t, second, first)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "empty", runs[0].Label)
	assert.True(t, math.IsNaN(runs[0].Perplexity))
	assert.True(t, math.IsNaN(runs[0].MeanAccuracy))

	assert.Equal(t, "order-3", runs[1].Label)
	assert.Equal(t, 3, runs[1].Order)
	assert.Equal(t, 2, runs[1].Methods)
	assert.InDelta(t, report.MeanAccuracy, runs[1].MeanAccuracy, 1e-12)
	assert.InDelta(t, report.Perplexity, runs[1].Perplexity, 1e-12)
	assert.Equal(t, report.Skipped, runs[1].Skipped)

	recs, err := s.Records(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, report.Records, recs)

	recs, err = s.Records(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStoreInMemory(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
