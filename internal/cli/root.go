// Package cli wires the codegram commands: corpus splitting, model training with order
// selection, evaluation, scoring and generation.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/bastiangx/codegram/internal/logger"
	"github.com/bastiangx/codegram/pkg/config"
	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	debug      bool
	cfg        *config.Config
	log        *log.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "codegram",
		Short: "N-gram models over tokenized Java method bodies",
		Long: `codegram fits unsmoothed n-gram models over tokenized method bodies,
picks the order with the lowest held-out perplexity, and measures how well
greedy generation reproduces held-out methods.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.toml (defaults to the user config dir)")
	cmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Toggle debug mode")

	cmd.AddCommand(
		newSplitCmd(a),
		newTrainCmd(a),
		newEvalCmd(a),
		newGenerateCmd(a),
		newScoreCmd(a),
	)
	return cmd
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup() error {
	logger.Setup(a.debug)
	a.log = logger.New("codegram")
	if !a.debug {
		a.log.SetLevel(log.InfoLevel)
	}

	cfg, path, err := config.LoadConfigWithPriority(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", config.GetActiveConfigPath(path), err)
	}
	a.cfg = cfg
	log.Debugf("Using config: %s", config.GetActiveConfigPath(path))
	return nil
}

// loadCorpus reads a corpus file, or every shard of a directory concatenated in name order.
func (a *app) loadCorpus(ctx context.Context, path string) (corpus.Corpus, error) {
	shards, err := a.loadShards(ctx, path)
	if err != nil {
		return nil, err
	}
	return corpus.Concat(shards), nil
}

// loadShards returns one corpus per shard file; a plain file is a single shard.
func (a *app) loadShards(ctx context.Context, path string) ([]corpus.Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return corpus.LoadShards(ctx, path, a.cfg.Corpus.SkipColumns)
	}
	c, err := corpus.ReadFile(path, a.cfg.Corpus.SkipColumns)
	if err != nil {
		return nil, err
	}
	return []corpus.Corpus{c}, nil
}
