package cli

import (
	"fmt"

	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		maxLength   int
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "generate <model> [tokens...]",
		Short: "Greedily continue a token prefix",
		Long: `Extends the given tokens with the most probable next token until the model has
no continuation for the current context or --max-length tokens are produced.
With -i, prefixes are read line by line from stdin.`,
		Example: `
  codegram generate model.msgpack public void
  codegram generate model.msgpack -i`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := ngram.LoadFile(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-length") {
				maxLength = a.cfg.Eval.MaxLength
			}

			if interactive {
				return NewInputHandler(model, maxLength, cmd.InOrStdin(), cmd.OutOrStdout()).Start()
			}

			seed := args[1:]
			if len(seed) == 0 {
				return fmt.Errorf("no seed tokens given (use -i for interactive mode)")
			}
			renderTokens(cmd.OutOrStdout(), len(seed), model.Generate(seed, maxLength))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLength, "max-length", ngram.DefaultMaxLength, "Maximum tokens in the output, seed included")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read seed prefixes from stdin")

	return cmd
}
