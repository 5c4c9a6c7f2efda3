package cli

import (
	"fmt"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/spf13/cobra"
)

func newSplitCmd(a *app) *cobra.Command {
	var (
		trainOut   string
		heldoutOut string
		every      int
		random     bool
		fraction   float64
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "split <corpus>",
		Short: "Preprocess a corpus and split it into training and held-out sets",
		Long: `Reads a corpus file (.csv or .jsonl) or a directory of shard files, applies
the [corpus] preprocessing filters and writes the two sides of the split.

By default every k-th method (index i % k == 0) is held out. With --random a
seeded random subset of the given fraction is held out instead.`,
		Example: `
  # Hold out every 5th method
  codegram split methods.csv --train train.csv --heldout test.csv

  # Hold out a reproducible random 20%
  codegram split shards/ --train train.jsonl --heldout test.jsonl --random --fraction 0.2 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCorpus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			read := len(c)

			c, err = a.cfg.Preprocess().Apply(c)
			if err != nil {
				return fmt.Errorf("preprocessing corpus: %w", err)
			}

			flags := cmd.Flags()
			if !flags.Changed("every") {
				every = a.cfg.Split.HeldoutEvery
			}
			if !flags.Changed("random") {
				random = a.cfg.Split.Random
			}
			if !flags.Changed("fraction") {
				fraction = a.cfg.Split.HeldoutFraction
			}
			if !flags.Changed("seed") {
				seed = a.cfg.Split.Seed
			}

			var s corpus.Split
			if random {
				s, err = corpus.SplitRandom(c, fraction, seed)
			} else {
				s, err = corpus.SplitEvery(c, every)
			}
			if err != nil {
				return err
			}

			if err := corpus.WriteFile(trainOut, s.Train); err != nil {
				return err
			}
			if err := corpus.WriteFile(heldoutOut, s.Heldout); err != nil {
				return err
			}

			renderSplit(cmd.OutOrStdout(), len(s.Train), len(s.Heldout), read-len(c))
			return nil
		},
	}

	cmd.Flags().StringVar(&trainOut, "train", "", "Output path for the training set (.csv or .jsonl)")
	cmd.Flags().StringVar(&heldoutOut, "heldout", "", "Output path for the held-out set (.csv or .jsonl)")
	cmd.Flags().IntVar(&every, "every", 5, "Hold out every k-th method")
	cmd.Flags().BoolVar(&random, "random", false, "Use a seeded random split")
	cmd.Flags().Float64Var(&fraction, "fraction", 0.2, "Held-out fraction for --random")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for --random")
	cmd.MarkFlagRequired("train")
	cmd.MarkFlagRequired("heldout")

	return cmd
}
