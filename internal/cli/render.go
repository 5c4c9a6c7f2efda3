package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bastiangx/codegram/internal/utils"
	"github.com/bastiangx/codegram/pkg/eval"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
	valueStyle = lipgloss.NewStyle().Bold(true)
	bestStyle  = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#b4637a", Dark: "#eb6f92"})
	tokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#56949f", Dark: "#5fafff"})
	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#dfdad9", Dark: "#403d52"})
)

// field renders one "label: value" line.
func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", label+":")) + " " + valueStyle.Render(value)
}

func renderTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

// renderSelection prints the per-order perplexity table with the chosen order highlighted.
func renderSelection(w io.Writer, sel *ngram.Selection) {
	renderTitle(w, "Order selection")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("order", "perplexity", "scored", "skipped", "coverage", "status")

	for _, c := range sel.Candidates {
		status := ""
		switch {
		case errors.Is(c.Err, ngram.ErrLowCoverage):
			status = errStyle.Render("low coverage")
		case c.Err != nil:
			status = errStyle.Render("unscorable")
		case c.Order == sel.Order:
			status = bestStyle.Render("selected")
		}
		t.Row(
			strconv.Itoa(c.Order),
			utils.FormatFloat(c.Perplexity, 4),
			utils.FormatWithCommas(c.Scored),
			utils.FormatWithCommas(c.Skipped),
			utils.FormatPercent(c.Coverage()),
			status,
		)
	}
	fmt.Fprintln(w, t.Render())
}

// renderReport prints the evaluation summary.
func renderReport(w io.Writer, r *eval.Report) {
	renderTitle(w, "Evaluation")
	fmt.Fprintln(w, field("order", strconv.Itoa(r.Order)))
	fmt.Fprintln(w, field("methods", utils.FormatWithCommas(len(r.Records))))
	if r.Empty > 0 {
		fmt.Fprintln(w, field("empty", utils.FormatWithCommas(r.Empty)))
	}
	fmt.Fprintln(w, field("accuracy", utils.FormatPercent(r.MeanAccuracy)))
	fmt.Fprintln(w, field("median", utils.FormatPercent(r.AccuracyQuantile(0.5))))
	fmt.Fprintln(w, field("exact", utils.FormatWithCommas(r.ExactMatches())))
	fmt.Fprintln(w, field("perplexity", utils.FormatFloat(r.Perplexity, 4)))
	fmt.Fprintln(w, field("scored", utils.FormatWithCommas(r.Scored)))
	fmt.Fprintln(w, field("skipped", utils.FormatWithCommas(r.Skipped)))
}

// renderScore prints a perplexity score.
func renderScore(w io.Writer, order int, s ngram.Score) {
	renderTitle(w, "Perplexity")
	fmt.Fprintln(w, field("order", strconv.Itoa(order)))
	fmt.Fprintln(w, field("perplexity", utils.FormatFloat(s.Perplexity, 4)))
	fmt.Fprintln(w, field("scored", utils.FormatWithCommas(s.Scored)))
	fmt.Fprintln(w, field("skipped", utils.FormatWithCommas(s.Skipped)))
	fmt.Fprintln(w, field("coverage", utils.FormatPercent(s.Coverage())))
}

// renderSplit prints the sizes of both sides of a split.
func renderSplit(w io.Writer, train, heldout, dropped int) {
	renderTitle(w, "Split")
	fmt.Fprintln(w, field("train", utils.FormatWithCommas(train)))
	fmt.Fprintln(w, field("held-out", utils.FormatWithCommas(heldout)))
	fmt.Fprintln(w, field("filtered", utils.FormatWithCommas(dropped)))
}

// renderTokens prints a generated sequence, seed tokens plain and predicted tokens colored.
func renderTokens(w io.Writer, seedLen int, out []string) {
	var b strings.Builder
	for i, tok := range out {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i < seedLen {
			b.WriteString(tok)
			continue
		}
		b.WriteString(tokenStyle.Render(tok))
	}
	fmt.Fprintln(w, b.String())
}
