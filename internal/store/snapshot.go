package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"callscope/internal/stats"
)

// Current schema version - increment when snapshotPayload format changes
const snapshotSchemaVersion uint16 = 1

// snapshotPayload is the msgpack envelope around one stat snapshot shard.
type snapshotPayload struct {
	Schema     uint16
	Session    string
	PID        int
	RecordedAt time.Time
	Entries    []stats.Entry
}

// WriteSnapshot appends a snapshot shard to the session directory. Each
// writer lands its own file, so concurrent recorders never contend.
func (s *Store) WriteSnapshot(name string, snap stats.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readMeta(name); err != nil {
		return err
	}

	dir := s.SessionDir(name)
	payload := snapshotPayload{
		Schema:     snapshotSchemaVersion,
		Session:    name,
		PID:        os.Getpid(),
		RecordedAt: time.Now(),
		Entries:    snap,
	}

	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(&payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	final := filepath.Join(dir, fmt.Sprintf("stats-%d-%d.mp", payload.PID, time.Now().UnixNano()))
	return os.Rename(tmp, final)
}

// LoadMerged reads every snapshot shard of a session and merges them.
// Shards decode in parallel; merging in any order is sound because the
// merge operation is associative and commutative.
func (s *Store) LoadMerged(ctx context.Context, name string) (stats.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.readMeta(name); err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(s.SessionDir(name), "stats-*.mp"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return stats.Snapshot{}, nil
	}

	var (
		mu    sync.Mutex
		parts []stats.Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), len(paths)))
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, err := readShard(path)
			if err != nil {
				return err
			}
			mu.Lock()
			parts = append(parts, part)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats.MergeSnapshots(parts...), nil
}

func readShard(path string) (stats.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var payload snapshotPayload
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if payload.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path),
			errors.New("unsupported snapshot schema"))
	}
	return payload.Entries, nil
}
