package eval

import "fmt"

// Denominator selects the length that token matches are divided by.
type Denominator int

const (
	// ShorterLength divides by len(predicted) when the prediction is shorter than the
	// actual sequence and by len(actual) otherwise.
	ShorterLength Denominator = iota
	// LongerLength divides by whichever sequence is longer, as the first validation
	// script effectively did.
	LongerLength
)

// String returns the config spelling of the denominator.
func (d Denominator) String() string {
	switch d {
	case ShorterLength:
		return "shorter"
	case LongerLength:
		return "longer"
	default:
		return fmt.Sprintf("Denominator(%d)", int(d))
	}
}

// ParseDenominator maps "shorter" or "longer" to a Denominator.
func ParseDenominator(s string) (Denominator, error) {
	switch s {
	case "", "shorter":
		return ShorterLength, nil
	case "longer":
		return LongerLength, nil
	default:
		return ShorterLength, fmt.Errorf("unknown accuracy denominator %q (want shorter or longer)", s)
	}
}

// Matches counts positions where both sequences hold a token and the tokens are equal.
func Matches(actual, predicted []string) int {
	n := 0
	for i := 0; i < len(actual) && i < len(predicted); i++ {
		if actual[i] == predicted[i] {
			n++
		}
	}
	return n
}

// Accuracy returns the positional token overlap of predicted against actual in [0, 1].
// A zero denominator yields 0.
func Accuracy(actual, predicted []string, d Denominator) float64 {
	var denom int
	switch d {
	case LongerLength:
		denom = max(len(actual), len(predicted))
	default:
		if len(predicted) < len(actual) {
			denom = len(predicted)
		} else {
			denom = len(actual)
		}
	}
	if denom == 0 {
		return 0
	}
	return float64(Matches(actual, predicted)) / float64(denom)
}
