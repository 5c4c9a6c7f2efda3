package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ShardInfo describes one corpus file found in a shard directory.
type ShardInfo struct {
	ID       int
	Filename string
	Format   FileFormat
	Size     int64
}

// AvailableShards scans dir for corpus files, sorted by file name. IDs follow that order.
func AvailableShards(dir string) ([]ShardInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for shard files: %w", err)
	}

	var shards []ShardInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, err := DetectFormat(entry.Name())
		if err != nil {
			log.Debugf("Ignoring non-corpus file %s", entry.Name())
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("Failed to stat shard %s: %v", entry.Name(), err)
			continue
		}
		shards = append(shards, ShardInfo{
			Filename: filepath.Join(dir, entry.Name()),
			Format:   format,
			Size:     info.Size(),
		})
	}

	sort.Slice(shards, func(i, j int) bool {
		return shards[i].Filename < shards[j].Filename
	})
	for i := range shards {
		shards[i].ID = i
	}
	return shards, nil
}

// LoadShards reads every shard in dir concurrently. The result is indexed like
// AvailableShards so concatenating it reproduces a stable corpus order.
func LoadShards(ctx context.Context, dir string, skipColumns int) ([]Corpus, error) {
	shards, err := AvailableShards(dir)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("no shard files found in %s", dir)
	}

	log.Debugf("Found %d shard files in %s", len(shards), dir)

	out := make([]Corpus, len(shards))
	g, ctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if info, ok := GetFormatInfo(shard.Format); ok {
				log.Debugf("Loading shard %d: %s (%s, %d bytes)", shard.ID, filepath.Base(shard.Filename), info.Description, shard.Size)
			}
			c, err := ReadFile(shard.Filename, skipColumns)
			if err != nil {
				return fmt.Errorf("shard %d: %w", shard.ID, err)
			}
			out[shard.ID] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Concat flattens shards into one corpus in shard order.
func Concat(shards []Corpus) Corpus {
	total := 0
	for _, s := range shards {
		total += len(s)
	}
	out := make(Corpus, 0, total)
	for _, s := range shards {
		out = append(out, s...)
	}
	return out
}
