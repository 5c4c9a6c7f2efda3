package cli

import (
	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/spf13/cobra"
)

func newScoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <model> [corpus]",
		Short: "Print the perplexity of a corpus, or of the training data without one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := ngram.LoadFile(args[0])
			if err != nil {
				return err
			}

			policy, err := a.cfg.Policy()
			if err != nil {
				return err
			}

			var s ngram.Score
			if len(args) == 2 {
				var c corpus.Corpus
				c, err = a.loadCorpus(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				s, err = model.Score(c, policy)
			} else {
				s, err = model.SelfScore(policy)
			}
			if err != nil {
				return err
			}
			renderScore(cmd.OutOrStdout(), model.Order(), s)
			return nil
		},
	}
	return cmd
}
