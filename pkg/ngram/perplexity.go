package ngram

import (
	"errors"
	"fmt"
	"math"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
)

// UnseenPolicy decides how scoring treats (context, token) pairs the model never observed.
type UnseenPolicy int

const (
	// SkipUnseen leaves unseen pairs out of both the log-probability sum and the token count.
	SkipUnseen UnseenPolicy = iota
	// FailOnUnseen aborts scoring at the first unseen pair.
	FailOnUnseen
)

// String returns the config spelling of the policy.
func (p UnseenPolicy) String() string {
	switch p {
	case SkipUnseen:
		return "skip"
	case FailOnUnseen:
		return "fail"
	default:
		return fmt.Sprintf("UnseenPolicy(%d)", int(p))
	}
}

// ParseUnseenPolicy maps "skip" or "fail" to a policy.
func ParseUnseenPolicy(s string) (UnseenPolicy, error) {
	switch s {
	case "", "skip":
		return SkipUnseen, nil
	case "fail":
		return FailOnUnseen, nil
	default:
		return SkipUnseen, fmt.Errorf("unknown unseen policy %q (want skip or fail)", s)
	}
}

// Score is the outcome of scoring a corpus.
type Score struct {
	Perplexity float64
	// LogProb is the summed natural-log probability of the scored events.
	LogProb float64
	// Scored counts events that contributed to the perplexity.
	Scored int
	// Skipped counts events left out under SkipUnseen.
	Skipped int
}

// Coverage is the fraction of events that could be scored.
func (s Score) Coverage() float64 {
	total := s.Scored + s.Skipped
	if total == 0 {
		return 0
	}
	return float64(s.Scored) / float64(total)
}

// Perplexity scores c under SkipUnseen.
func (m *Model) Perplexity(c corpus.Corpus) (float64, error) {
	s, err := m.Score(c, SkipUnseen)
	if err != nil {
		return 0, err
	}
	return s.Perplexity, nil
}

// SelfPerplexity scores the training counts the model was fitted on.
func (m *Model) SelfPerplexity() (float64, error) {
	s, err := m.SelfScore(SkipUnseen)
	if err != nil {
		return 0, err
	}
	return s.Perplexity, nil
}

// Score computes exp(-Σ count(c,t)·ln P(t|c) / Σ count(c,t)) where the counts come from
// re-tallying c at the model's order and P comes from the fitted model. A nil or empty
// corpus has no events, so ErrNoData is returned as when nothing could be scored.
func (m *Model) Score(c corpus.Corpus, policy UnseenPolicy) (Score, error) {
	events, err := Tally(c, m.order)
	if err != nil {
		return Score{}, err
	}
	return m.score(events, policy)
}

// SelfScore is Score over the model's own training counts.
func (m *Model) SelfScore(policy UnseenPolicy) (Score, error) {
	return m.score(m.counts, policy)
}

func (m *Model) score(events *FrequencyTable, policy UnseenPolicy) (Score, error) {
	var (
		score  Score
		failed error
	)
	events.Each(func(ctx Context, tok string, count int) {
		if failed != nil {
			return
		}
		p, err := m.ProbabilityOf(ctx, tok)
		if err != nil {
			if policy == FailOnUnseen {
				failed = err
				return
			}
			score.Skipped += count
			return
		}
		score.LogProb += float64(count) * math.Log(p)
		score.Scored += count
	})
	if failed != nil {
		return Score{}, failed
	}
	if score.Scored == 0 {
		return score, fmt.Errorf("%w: %d events, none scorable", ErrNoData, score.Skipped)
	}

	score.Perplexity = math.Exp(-score.LogProb / float64(score.Scored))
	log.Debugf("Order-%d score: perplexity=%.4f scored=%d skipped=%d", m.order, score.Perplexity, score.Scored, score.Skipped)
	return score, nil
}

// IsUnseen reports whether err marks a lookup outside the fitted table.
func IsUnseen(err error) bool {
	return errors.Is(err, ErrUnseenContext) || errors.Is(err, ErrUnseenToken)
}
