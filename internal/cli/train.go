package cli

import (
	"fmt"

	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	var (
		heldoutPath string
		out         string
		order       int
		minOrder    int
		maxOrder    int
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "train <train>",
		Short: "Fit n-gram models and keep the order with the lowest held-out perplexity",
		Long: `Fits one model per order in [min-order, max-order] on the training corpus,
scores each on the held-out corpus and saves the best one.

Without --heldout a single model of --order is fitted; a shard directory is then
tallied shard by shard and merged before probabilities are derived.`,
		Example: `
  codegram train train.csv --heldout test.csv --out model.msgpack
  codegram train shards/ --order 3 --out model.msgpack`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			flags := cmd.Flags()
			if !flags.Changed("min-order") {
				minOrder = a.cfg.Model.MinOrder
			}
			if !flags.Changed("max-order") {
				maxOrder = a.cfg.Model.MaxOrder
			}
			if !flags.Changed("workers") {
				workers = a.cfg.Model.Workers
			}

			var model *ngram.Model
			if heldoutPath == "" {
				if order < 1 {
					return fmt.Errorf("--order is required without --heldout")
				}
				shards, err := a.loadShards(ctx, args[0])
				if err != nil {
					return err
				}
				model, err = ngram.FitShards(ctx, shards, order)
				if err != nil {
					return err
				}
				a.log.Info("Fitted model", "order", model.Order(), "contexts", model.Len())
			} else {
				train, err := a.loadCorpus(ctx, args[0])
				if err != nil {
					return err
				}
				heldout, err := a.loadCorpus(ctx, heldoutPath)
				if err != nil {
					return err
				}
				policy, err := a.cfg.Policy()
				if err != nil {
					return err
				}

				orders := ngram.Orders(minOrder, maxOrder)
				a.log.Info("Selecting order", "orders", len(orders), "train", len(train), "heldout", len(heldout))
				sel, err := ngram.SelectBest(ctx, train, heldout, orders,
					ngram.WithPolicy(policy),
					ngram.WithWorkers(workers),
					ngram.WithMinCoverage(a.cfg.Model.MinCoverage),
				)
				if sel != nil {
					renderSelection(w, sel)
				}
				if err != nil {
					return err
				}
				model = sel.Model
			}

			if err := model.SaveFile(out); err != nil {
				return err
			}
			a.log.Info("Saved model", "path", out, "order", model.Order())
			return nil
		},
	}

	cmd.Flags().StringVar(&heldoutPath, "heldout", "", "Held-out corpus used to select the order")
	cmd.Flags().StringVarP(&out, "out", "o", "model.msgpack", "Output path for the model")
	cmd.Flags().IntVar(&order, "order", 0, "Fixed order when no held-out corpus is given")
	cmd.Flags().IntVar(&minOrder, "min-order", 1, "Smallest candidate order")
	cmd.Flags().IntVar(&maxOrder, "max-order", 10, "Largest candidate order")
	cmd.Flags().IntVar(&workers, "workers", 0, "Orders fitted concurrently (0 = GOMAXPROCS)")

	return cmd
}
