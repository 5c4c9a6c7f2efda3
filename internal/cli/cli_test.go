package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bastiangx/codegram/pkg/corpus"
	"github.com/bastiangx/codegram/pkg/eval"
	"github.com/bastiangx/codegram/pkg/ngram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var methodsCSV = strings.Join([]string{
	"public,void,run,(,),{,}",
	"public,int,size,(,),{,return,n,;,}",
	"private,void,reset,(,),{,n,=,0,;,}",
	"public,void,close,(,),{,}",
	"public,int,get,(,),{,return,n,;,}",
	"public,void,stop,(,),{,}",
	"private,int,count,(,),{,return,n,;,}",
	"public,void,clear,(,),{,n,=,0,;,}",
	"public,void,open,(,),{,}",
	"private,void,init,(,),{,n,=,0,;,}",
}, "\n") + "\n"

const testConfig = `
[corpus]
skip_columns = 0
lower_percentile = 0.0
upper_percentile = 0.0

[model]
min_order = 1
max_order = 3
workers = 2
`

type fixture struct {
	dir    string
	config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{dir: dir, config: filepath.Join(dir, "config.toml")}
	require.NoError(t, os.WriteFile(f.config, []byte(testConfig), 0644))
	require.NoError(t, os.WriteFile(f.path("methods.csv"), []byte(methodsCSV), 0644))
	return f
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", f.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (f fixture) split(t *testing.T) {
	t.Helper()
	_, err := f.run(t, "", "split", f.path("methods.csv"),
		"--train", f.path("train.csv"), "--heldout", f.path("test.csv"))
	require.NoError(t, err)
}

func (f fixture) train(t *testing.T) string {
	t.Helper()
	f.split(t)
	out, err := f.run(t, "", "train", f.path("train.csv"),
		"--heldout", f.path("test.csv"), "--out", f.path("model.msgpack"))
	require.NoError(t, err)
	return out
}

func TestSplitCommand(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "", "split", f.path("methods.csv"),
		"--train", f.path("train.csv"), "--heldout", f.path("test.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, out, "Split")

	train, err := corpus.ReadFile(f.path("train.csv"), 0)
	require.NoError(t, err)
	heldout, err := corpus.ReadFile(f.path("test.jsonl"), 0)
	require.NoError(t, err)

	assert.Len(t, train, 8)
	require.Len(t, heldout, 2)
	assert.Equal(t, corpus.Method{"public", "void", "run", "(", ")", "{", "}"}, heldout[0])
	assert.Equal(t, corpus.Method{"public", "void", "stop", "(", ")", "{", "}"}, heldout[1])
}

func TestSplitCommandRandom(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "", "split", f.path("methods.csv"),
		"--train", f.path("train.csv"), "--heldout", f.path("test.csv"),
		"--random", "--fraction", "0.3", "--seed", "9")
	require.NoError(t, err)

	heldout, err := corpus.ReadFile(f.path("test.csv"), 0)
	require.NoError(t, err)
	assert.Len(t, heldout, 3)
}

func TestSplitCommandRequiresOutputs(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, "", "split", f.path("methods.csv"))
	assert.Error(t, err)
}

func TestTrainCommand(t *testing.T) {
	f := newFixture(t)
	out := f.train(t)
	assert.Contains(t, out, "Order selection")
	assert.Contains(t, out, "selected")
	assert.Contains(t, out, "coverage")

	m, err := ngram.LoadFile(f.path("model.msgpack"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Order(), 1)
	assert.LessOrEqual(t, m.Order(), 3)
}

func TestTrainCommandFixedOrderShards(t *testing.T) {
	f := newFixture(t)
	shards := f.path("shards")
	require.NoError(t, os.Mkdir(shards, 0755))
	lines := strings.Split(strings.TrimSpace(methodsCSV), "\n")
	require.NoError(t, os.WriteFile(filepath.Join(shards, "a.csv"), []byte(strings.Join(lines[:5], "\n")), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(shards, "b.csv"), []byte(strings.Join(lines[5:], "\n")), 0644))

	_, err := f.run(t, "", "train", shards, "--order", "2", "--out", f.path("sharded.msgpack"))
	require.NoError(t, err)

	sharded, err := ngram.LoadFile(f.path("sharded.msgpack"))
	require.NoError(t, err)
	whole, err := corpus.ReadFile(f.path("methods.csv"), 0)
	require.NoError(t, err)
	direct, err := ngram.Fit(whole, 2)
	require.NoError(t, err)
	assert.Equal(t, direct.Len(), sharded.Len())

	_, err = f.run(t, "", "train", shards, "--out", f.path("x.msgpack"))
	assert.Error(t, err)
}

func TestEvalCommand(t *testing.T) {
	f := newFixture(t)
	f.train(t)

	out, err := f.run(t, "", "eval", f.path("model.msgpack"), f.path("test.csv"),
		"--csv", f.path("validation.csv"), "--db", f.path("results.db"), "--label", "run-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluation")
	assert.Contains(t, out, "accuracy")
	assert.FileExists(t, f.path("validation.csv"))

	data, err := os.ReadFile(f.path("validation.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Actual,Predicted,Accuracy"))

	store, err := eval.OpenStore(f.path("results.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].Label)
	assert.Equal(t, 2, runs[0].Methods)
}

func TestGenerateCommand(t *testing.T) {
	f := newFixture(t)
	f.train(t)

	out, err := f.run(t, "", "generate", f.path("model.msgpack"), "public", "void", "--max-length", "4")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 4)
	assert.Equal(t, []string{"public", "void"}, fields[:2])

	_, err = f.run(t, "", "generate", f.path("model.msgpack"))
	assert.Error(t, err)
}

func TestGenerateInteractive(t *testing.T) {
	f := newFixture(t)
	f.train(t)

	out, err := f.run(t, "public int\n\nprivate\n", "generate", f.path("model.msgpack"), "-i")
	require.NoError(t, err)
	assert.Contains(t, out, "public int")
	assert.Contains(t, out, "private")
}

func TestScoreCommand(t *testing.T) {
	f := newFixture(t)
	f.train(t)

	out, err := f.run(t, "", "score", f.path("model.msgpack"))
	require.NoError(t, err)
	assert.Contains(t, out, "perplexity")

	out, err = f.run(t, "", "score", f.path("model.msgpack"), f.path("test.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "coverage")

	require.NoError(t, os.WriteFile(f.path("empty.csv"), nil, 0644))
	_, err = f.run(t, "", "score", f.path("model.msgpack"), f.path("empty.csv"))
	assert.ErrorIs(t, err, ngram.ErrNoData)

	_, err = f.run(t, "", "score", f.path("missing.msgpack"))
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.config, []byte("[model]\nunseen = \"smooth\"\n"), 0644))

	_, err := f.run(t, "", "score", f.path("model.msgpack"))
	assert.ErrorContains(t, err, "invalid config")
}
