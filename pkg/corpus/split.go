package corpus

import (
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

// Split is a disjoint, exhaustive partition of a corpus.
type Split struct {
	Train   Corpus
	Heldout Corpus
}

// SplitEvery sends method i to the held-out side when i%k == 0 and to training otherwise.
// Relative order is preserved on both sides.
func SplitEvery(c Corpus, k int) (Split, error) {
	if k < 1 {
		return Split{}, ErrInvalidStride
	}

	split := Split{
		Train:   make(Corpus, 0, len(c)-len(c)/k),
		Heldout: make(Corpus, 0, len(c)/k+1),
	}
	for i, m := range c {
		if i%k == 0 {
			split.Heldout = append(split.Heldout, m)
		} else {
			split.Train = append(split.Train, m)
		}
	}

	log.Debugf("Positional split every %d: train=%d heldout=%d", k, len(split.Train), len(split.Heldout))
	return split, nil
}

// SplitRandom draws round(fraction*len(c)) methods for the held-out side using a PCG
// source seeded with seed. Both sides keep the original relative order.
func SplitRandom(c Corpus, fraction float64, seed uint64) (Split, error) {
	if fraction <= 0 || fraction >= 1 || math.IsNaN(fraction) {
		return Split{}, ErrInvalidFraction
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	size := int(math.Round(fraction * float64(len(c))))

	heldout := make([]bool, len(c))
	for _, idx := range rng.Perm(len(c))[:size] {
		heldout[idx] = true
	}

	split := Split{
		Train:   make(Corpus, 0, len(c)-size),
		Heldout: make(Corpus, 0, size),
	}
	for i, m := range c {
		if heldout[i] {
			split.Heldout = append(split.Heldout, m)
		} else {
			split.Train = append(split.Train, m)
		}
	}

	log.Debugf("Random split fraction=%.3f seed=%d: train=%d heldout=%d", fraction, seed, len(split.Train), len(split.Heldout))
	return split, nil
}
