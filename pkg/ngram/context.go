package ngram

import (
	"strings"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
)

// Context is the ordered token history that conditions a prediction.
// It is an immutable, collision-free encoding of the tokens and is safe to use as a map key.
// The zero value is not a valid context; use NewContext.
type Context string

// EmptyContext is the history of the unigram case and of the first position in a method.
var EmptyContext = NewContext(nil)

// NewContext builds a context from tokens in order.
func NewContext(tokens []string) Context {
	return Context(corpus.Method(tokens).Key())
}

// Tokens decodes the context back into its tokens.
func (c Context) Tokens() []string {
	m, err := corpus.DecodeKey(string(c))
	if err != nil {
		log.Debugf("Invalid context key %q: %v", string(c), err)
		return nil
	}
	return m
}

// Len returns the number of tokens in the context.
func (c Context) Len() int {
	return len(c.Tokens())
}

// String renders the context as a parenthesized token tuple.
func (c Context) String() string {
	return "(" + strings.Join(c.Tokens(), ", ") + ")"
}

// contextAt returns the clamped history tokens[max(0, i-(order-1)) : i].
func contextAt(tokens []string, i, order int) Context {
	start := i - (order - 1)
	if start < 0 {
		start = 0
	}
	return NewContext(tokens[start:i])
}
