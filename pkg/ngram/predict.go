package ngram

import "github.com/charmbracelet/log"

// DefaultMaxLength bounds Generate output when the caller passes no limit.
const DefaultMaxLength = 256

// PredictNext returns the most probable token after ctx, choosing the lexicographically
// smallest token among ties. ok is false when ctx was never observed; that is the
// end-of-sequence signal for generation.
func (m *Model) PredictNext(ctx Context) (tok string, ok bool) {
	d := m.lookup(ctx)
	if d == nil {
		return "", false
	}
	return d.best, true
}

// Generate extends seed greedily until PredictNext signals the end of the sequence or
// the output reaches maxLen tokens. The output starts with a copy of seed and never
// holds fewer tokens than the seed. maxLen <= 0 selects DefaultMaxLength.
func (m *Model) Generate(seed []string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	out := make([]string, len(seed), max(len(seed), maxLen))
	copy(out, seed)

	for len(out) < maxLen {
		tok, ok := m.PredictNext(m.ContextOf(out))
		if !ok {
			return out
		}
		out = append(out, tok)
	}

	log.Debugf("Generation hit the %d token bound", maxLen)
	return out
}
