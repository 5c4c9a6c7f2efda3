package eval

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

var csvHeader = []string{"Actual", "Predicted", "Accuracy"}

// WriteCSV writes one row per record with the token sequences joined by spaces.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := []string{
			strings.Join(rec.Actual, " "),
			strings.Join(rec.Predicted, " "),
			strconv.FormatFloat(rec.Accuracy, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the report table to path.
func (r *Report) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := r.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

// AccuracyQuantile returns the p-quantile of per-record accuracy, or NaN without records.
func (r *Report) AccuracyQuantile(p float64) float64 {
	if len(r.Records) == 0 {
		return math.NaN()
	}
	accs := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		accs[i] = rec.Accuracy
	}
	sort.Float64s(accs)
	return stat.Quantile(p, stat.Empirical, accs, nil)
}

// ExactMatches counts records whose prediction reproduced the method verbatim.
func (r *Report) ExactMatches() int {
	n := 0
	for _, rec := range r.Records {
		if len(rec.Actual) == len(rec.Predicted) && Matches(rec.Actual, rec.Predicted) == len(rec.Actual) {
			n++
		}
	}
	return n
}
