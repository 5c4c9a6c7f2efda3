package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/charmbracelet/log"
)

// InputHandler reads whitespace-separated token prefixes line by line and prints the
// greedy continuation of each. It is meant for poking at a trained model by hand.
type InputHandler struct {
	model     *ngram.Model
	maxLength int
	in        io.Reader
	out       io.Writer
	requests  int
}

// NewInputHandler binds a model and the generation bound to an input and output stream.
func NewInputHandler(model *ngram.Model, maxLength int, in io.Reader, out io.Writer) *InputHandler {
	return &InputHandler{
		model:     model,
		maxLength: maxLength,
		in:        in,
		out:       out,
	}
}

// Start runs the read loop until the input is exhausted.
func (h *InputHandler) Start() error {
	fmt.Fprintln(h.out, titleStyle.Render(fmt.Sprintf("codegram order-%d model", h.model.Order())))
	fmt.Fprintln(h.out, labelStyle.Render("type space-separated tokens and press Enter (Ctrl+D to exit):"))

	reader := bufio.NewReader(h.in)
	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(line)
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(h.out)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// handleInput generates from one prefix line.
func (h *InputHandler) handleInput(line string) {
	h.requests++
	seed := strings.Fields(line)

	start := time.Now()
	out := h.model.Generate(seed, h.maxLength)
	log.Debugf("Took [ %v ] for %d seed tokens", time.Since(start), len(seed))

	if len(out) == len(seed) {
		log.Warnf("No continuation for context %s", h.model.ContextOf(seed))
	}
	renderTokens(h.out, len(seed), out)
}
