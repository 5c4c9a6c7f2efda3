// Copyright 2025 The Codegram Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the codegram command line tool.

Codegram estimates how predictable a token of a Java method body is from the
tokens before it. It fits unsmoothed n-gram models over tokenized methods,
selects the order with the lowest held-out perplexity, and measures how well
greedy generation reproduces held-out methods.

Tokenization happens upstream: codegram reads corpora where every method is
already an ordered list of token strings.

# Usage

Split a corpus into training and held-out sets, holding out every 5th method:

	codegram split methods.csv --train train.csv --heldout test.csv

Fit orders 1 through 10 and keep the best one:

	codegram train train.csv --heldout test.csv --out model.msgpack

Evaluate the model and write the validation table:

	codegram eval model.msgpack test.csv --csv validation_set.csv --db results.db

Continue a prefix, or score a corpus:

	codegram generate model.msgpack public void
	codegram score model.msgpack test.csv

# Corpora

A corpus is a .csv file with one method per row and one token per field, a
.jsonl file with one JSON string array per line, or a directory of such shard
files read in name order. Leading CSV columns such as a method name can be
skipped with corpus.skip_columns.

# Configuration

Defaults live in a TOML file that is created on first run in the user config
dir, or passed with --config:

	[corpus]
	skip_columns = 0
	dedupe = true
	ascii_only = true
	lower_percentile = 5.0
	upper_percentile = 95.0

	[split]
	heldout_every = 5

	[model]
	min_order = 1
	max_order = 10
	unseen = "skip"

	[eval]
	seed_tokens = 0
	denominator = "shorter"

A malformed file is recovered section by section; keys that cannot be read keep
their defaults.

# Scoring

Perplexity is exp(-Σ count·ln P / Σ count) over the (context, token) pairs of
the scored corpus, with P taken from the fitted model. The model has no
smoothing, so pairs it never observed have no probability: with unseen = "skip"
they are left out and reported as skipped, with unseen = "fail" scoring stops.

Accuracy compares the generated sequence with the held-out method position by
position. With denominator = "shorter" matches are divided by the length of the
prediction when it is shorter than the method and by the method length
otherwise; "longer" divides by the longer of the two.

# Command Line Flags

The global flags are:

	--config string
	    Path to config.toml
	-d, --debug
	    Enable debug logging with timestamps

Each subcommand documents its own flags under -h.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/codegram/internal/cli"
	"github.com/charmbracelet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}
