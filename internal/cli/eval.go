package cli

import (
	"fmt"
	"path/filepath"

	"github.com/bastiangx/codegram/pkg/eval"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/spf13/cobra"
)

func newEvalCmd(a *app) *cobra.Command {
	var (
		csvOut string
		dbPath string
		label  string
		seed   int
	)

	cmd := &cobra.Command{
		Use:   "eval <model> <heldout>",
		Short: "Generate from held-out prefixes and report accuracy and perplexity",
		Example: `
  codegram eval model.msgpack test.csv --csv validation_set.csv
  codegram eval model.msgpack test.csv --db results.db --label baseline`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			model, err := ngram.LoadFile(args[0])
			if err != nil {
				return err
			}
			heldout, err := a.loadCorpus(ctx, args[1])
			if err != nil {
				return err
			}

			opts, err := a.cfg.EvalOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed-tokens") {
				opts.SeedTokens = seed
			}

			report, err := eval.NewHarness(model, opts).Evaluate(heldout)
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)

			if csvOut != "" {
				if err := report.WriteCSVFile(csvOut); err != nil {
					return err
				}
				a.log.Info("Wrote validation table", "path", csvOut, "rows", len(report.Records))
			}

			if dbPath == "" {
				dbPath = a.cfg.Eval.ResultsDB
			}
			if dbPath != "" {
				store, err := eval.OpenStore(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()

				if label == "" {
					label = fmt.Sprintf("%s order-%d", filepath.Base(args[0]), model.Order())
				}
				id, err := store.SaveReport(ctx, report, label)
				if err != nil {
					return err
				}
				a.log.Info("Stored results", "db", dbPath, "run", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvOut, "csv", "", "Write the Actual,Predicted,Accuracy table to this path")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite results database (defaults to eval.results_db)")
	cmd.Flags().StringVar(&label, "label", "", "Run label stored with the results")
	cmd.Flags().IntVar(&seed, "seed-tokens", 0, "Prefix length handed to the generator (0 = n-1, -1 = whole method)")

	return cmd
}
