package corpus

import (
	"sort"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"
)

// Dedupe drops verbatim duplicate methods, keeping the first occurrence.
func Dedupe(c Corpus) Corpus {
	seen := make(map[string]bool, len(c))
	out := make(Corpus, 0, len(c))
	for _, m := range c {
		key := m.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	log.Debugf("Dedupe removed %d of %d methods", len(c)-len(out), len(c))
	return out
}

// ASCIIOnly drops methods that contain any non-ASCII byte.
func ASCIIOnly(c Corpus) Corpus {
	out := make(Corpus, 0, len(c))
	for _, m := range c {
		if isASCII(m) {
			out = append(out, m)
		}
	}
	log.Debugf("ASCII filter removed %d of %d methods", len(c)-len(out), len(c))
	return out
}

func isASCII(m Method) bool {
	for _, tok := range m {
		for i := 0; i < len(tok); i++ {
			if tok[i] >= utf8.RuneSelf {
				return false
			}
		}
	}
	return true
}

// TrimOutliers keeps methods whose token count lies inside the [lower, upper]
// percentile band of the corpus length distribution. Bounds are linearly interpolated.
func TrimOutliers(c Corpus, lower, upper float64) (Corpus, error) {
	if lower < 0 || upper > 100 || lower > upper {
		return nil, ErrInvalidPercentiles
	}
	if len(c) == 0 {
		return c, nil
	}

	lengths := make([]float64, len(c))
	for i, m := range c {
		lengths[i] = float64(len(m))
	}
	sort.Float64s(lengths)

	lo := stat.Quantile(lower/100, stat.LinInterp, lengths, nil)
	hi := stat.Quantile(upper/100, stat.LinInterp, lengths, nil)

	out := make(Corpus, 0, len(c))
	for _, m := range c {
		n := float64(len(m))
		if n >= lo && n <= hi {
			out = append(out, m)
		}
	}
	log.Debugf("Outlier filter [%.1f, %.1f] tokens removed %d of %d methods", lo, hi, len(c)-len(out), len(c))
	return out, nil
}

// Preprocess bundles the cleaning steps applied before splitting.
type Preprocess struct {
	Dedupe               bool
	ASCIIOnly            bool
	LowerPercentile      float64
	UpperPercentile      float64
	NormalizeIdentifiers bool
	Placeholder          string
}

// Apply runs the enabled steps in order: dedupe, ASCII filter, outlier trim, normalization.
// A zero percentile band (0, 0) disables the outlier trim.
func (p Preprocess) Apply(c Corpus) (Corpus, error) {
	if p.Dedupe {
		c = Dedupe(c)
	}
	if p.ASCIIOnly {
		c = ASCIIOnly(c)
	}
	if p.LowerPercentile != 0 || p.UpperPercentile != 0 {
		trimmed, err := TrimOutliers(c, p.LowerPercentile, p.UpperPercentile)
		if err != nil {
			return nil, err
		}
		c = trimmed
	}
	if p.NormalizeIdentifiers {
		c = NormalizeIdentifiers(c, p.Placeholder)
	}
	return c, nil
}
