package ngram

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	snapshotFormat  = "codegram-ngram"
	snapshotVersion = 1
	// sumTolerance bounds how far a stored distribution may drift from 1.
	sumTolerance = 1e-6
)

type snapshotNext struct {
	Token string  `msgpack:"t"`
	Count int     `msgpack:"c"`
	Prob  float64 `msgpack:"p"`
}

type snapshotContext struct {
	Tokens []string       `msgpack:"k"`
	Next   []snapshotNext `msgpack:"n"`
}

type snapshot struct {
	Format   string            `msgpack:"format"`
	Version  int               `msgpack:"version"`
	Order    int               `msgpack:"order"`
	Contexts []snapshotContext `msgpack:"contexts"`
}

// Save writes the model to w as msgpack. Output is deterministic for a given model.
func (m *Model) Save(w io.Writer) error {
	snap := snapshot{
		Format:   snapshotFormat,
		Version:  snapshotVersion,
		Order:    m.order,
		Contexts: make([]snapshotContext, 0, m.contexts),
	}

	err := m.Walk(func(ctx Context, probs map[string]float64) error {
		d := m.lookup(ctx)
		toks := make([]string, 0, len(probs))
		for tok := range probs {
			toks = append(toks, tok)
		}
		sort.Strings(toks)

		sc := snapshotContext{Tokens: ctx.Tokens(), Next: make([]snapshotNext, 0, len(toks))}
		if sc.Tokens == nil {
			sc.Tokens = []string{}
		}
		for _, tok := range toks {
			sc.Next = append(sc.Next, snapshotNext{Token: tok, Count: d.counts[tok], Prob: probs[tok]})
		}
		snap.Contexts = append(snap.Contexts, sc)
		return nil
	})
	if err != nil {
		return err
	}

	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	return nil
}

// Load reads a model written by Save. Both the counts and the probability table are
// restored from the stored values; nothing is re-normalized. Malformed input yields
// ErrCorruptModel.
func Load(r io.Reader) (*Model, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if snap.Format != snapshotFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrCorruptModel, snap.Format)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptModel, snap.Version)
	}

	counts, err := NewFrequencyTable(snap.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}

	dists := make(map[Context]*distribution, len(snap.Contexts))
	for _, sc := range snap.Contexts {
		if len(sc.Tokens) > snap.Order-1 {
			return nil, fmt.Errorf("%w: context of %d tokens in order-%d model", ErrCorruptModel, len(sc.Tokens), snap.Order)
		}
		if len(sc.Next) == 0 {
			return nil, fmt.Errorf("%w: empty distribution", ErrCorruptModel)
		}
		ctx := NewContext(sc.Tokens)
		if _, dup := dists[ctx]; dup {
			return nil, fmt.Errorf("%w: duplicate context %s", ErrCorruptModel, ctx)
		}

		d := &distribution{
			counts: make(map[string]int, len(sc.Next)),
			probs:  make(map[string]float64, len(sc.Next)),
		}
		bestCount, sum := -1, 0.0
		for _, n := range sc.Next {
			if n.Count <= 0 || !(n.Prob > 0 && n.Prob <= 1) {
				return nil, fmt.Errorf("%w: bad entry %q after %s", ErrCorruptModel, n.Token, ctx)
			}
			if _, dup := d.probs[n.Token]; dup {
				return nil, fmt.Errorf("%w: duplicate token %q after %s", ErrCorruptModel, n.Token, ctx)
			}
			d.counts[n.Token] = n.Count
			d.probs[n.Token] = n.Prob
			sum += n.Prob
			if n.Count > bestCount || (n.Count == bestCount && n.Token < d.best) {
				bestCount = n.Count
				d.best = n.Token
			}
			counts.add(ctx, n.Token, n.Count)
		}
		if math.Abs(sum-1) > sumTolerance {
			return nil, fmt.Errorf("%w: probabilities after %s sum to %g", ErrCorruptModel, ctx, sum)
		}
		dists[ctx] = d
	}

	m := &Model{order: snap.Order, table: newTable(), counts: counts}
	for ctx, d := range dists {
		m.insert(ctx, d)
	}
	log.Debugf("Loaded order-%d model: contexts=%d", m.order, m.contexts)
	return m, nil
}

// SaveFile writes the model to path, replacing any existing file.
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating model file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := m.Save(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing model file: %w", err)
	}
	return f.Close()
}

// LoadFile reads a model from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()
	return Load(bufio.NewReader(f))
}
