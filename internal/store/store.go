// Package store persists recorded sessions on disk.
//
// Layout under the data directory:
//
//	sessions/<name>/session.toml   session metadata
//	sessions/<name>/stats-*.mp     msgpack stat snapshots (one per writer)
//	sessions/<name>/timeline.*     streamed timeline, when enabled
//	ACTIVE                         name of the session currently recording
//
// Snapshot shards accumulate per recording process; reading merges them,
// which is sound because snapshot merging is associative and commutative.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	// ErrSessionExists indicates that Create hit an existing session name.
	ErrSessionExists = errors.New("session already exists")
	// ErrNoSession indicates a lookup for an unknown session name.
	ErrNoSession = errors.New("no such session")
	// ErrNoActiveSession indicates that no session is marked active.
	ErrNoActiveSession = errors.New("no active session")
)

// Meta describes one recorded session.
type Meta struct {
	Name      string    `toml:"name"`
	StartedAt time.Time `toml:"started_at"`
	StoppedAt time.Time `toml:"stopped_at"`
	Label     string    `toml:"label"`
}

// Stopped reports whether the session has been finalized.
func (m Meta) Stopped() bool {
	return !m.StoppedAt.IsZero()
}

// Store manages the on-disk session layout. Thread-safe.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns the standard data directory, honoring XDG_CACHE_HOME.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "callscope"), nil
}

// Open initializes a store rooted at dir; an empty dir means DefaultDir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(filepath.Join(dir, "sessions"), 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string {
	return s.dir
}

// SessionDir returns the directory holding a session's artifacts.
func (s *Store) SessionDir(name string) string {
	return filepath.Join(s.dir, "sessions", name)
}

// TimelinePath returns the conventional timeline file for a session.
func (s *Store) TimelinePath(name string) string {
	return filepath.Join(s.SessionDir(name), "timeline.ndjson")
}

func (s *Store) metaPath(name string) string {
	return filepath.Join(s.SessionDir(name), "session.toml")
}

func (s *Store) activePath() string {
	return filepath.Join(s.dir, "ACTIVE")
}

// Create allocates a new session directory and writes its metadata.
func (s *Store) Create(name string, label string) (Meta, error) {
	if err := validateName(name); err != nil {
		return Meta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.SessionDir(name)
	if _, err := os.Stat(dir); err == nil {
		return Meta{}, fmt.Errorf("%w: %s", ErrSessionExists, name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Meta{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, err
	}

	meta := Meta{Name: name, StartedAt: time.Now(), Label: label}
	if err := s.writeMeta(meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Meta reads a session's metadata.
func (s *Store) Meta(name string) (Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta(name)
}

// Finish stamps the session's stop time.
func (s *Store) Finish(name string) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(name)
	if err != nil {
		return Meta{}, err
	}
	if meta.StoppedAt.IsZero() {
		meta.StoppedAt = time.Now()
		if err := s.writeMeta(meta); err != nil {
			return Meta{}, err
		}
	}
	return meta, nil
}

// List returns metadata for every stored session, sorted by start time.
func (s *Store) List() ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "sessions"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.readMeta(e.Name())
		if err != nil {
			continue // skip damaged entries
		}
		out = append(out, meta)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartedAt.Before(out[j-1].StartedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// SetActive marks a session as the one recording right now.
func (s *Store) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.readMeta(name); err != nil {
		return err
	}
	return atomicWrite(s.activePath(), []byte(name+"\n"))
}

// Active returns the currently recording session name.
func (s *Store) Active() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.activePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoActiveSession
		}
		return "", err
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrNoActiveSession
	}
	return name, nil
}

// ClearActive removes the active marker. A no-op when none is set.
func (s *Store) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.activePath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) readMeta(name string) (Meta, error) {
	var meta Meta
	md, err := toml.DecodeFile(s.metaPath(name), &meta)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, fmt.Errorf("%w: %s", ErrNoSession, name)
		}
		return Meta{}, fmt.Errorf("%s: failed to parse session meta: %w", name, err)
	}
	if !md.IsDefined("name") || strings.TrimSpace(meta.Name) == "" {
		return Meta{}, fmt.Errorf("%s: session meta missing name", name)
	}
	return meta, nil
}

func (s *Store) writeMeta(meta Meta) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(meta); err != nil {
		return err
	}
	return atomicWrite(s.metaPath(meta.Name), []byte(sb.String()))
}

// atomicWrite lands data at path via temp file + rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func validateName(name string) error {
	if name == "" {
		return errors.New("empty session name")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid session name: %q", name)
	}
	return nil
}
