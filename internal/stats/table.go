package stats

import (
	"sync"
	"time"

	"callscope/internal/loc"
)

// Record accumulates per-location counters. Records are never deleted
// during a run; they reset only when a new session starts.
type Record struct {
	Calls uint64
	Cum   time.Duration // cumulative: includes time spent in callees
	Excl  time.Duration // exclusive: callee time subtracted
}

// Table aggregates records keyed by interned location ID. It is shared
// between monitored goroutines, so every update takes the mutex.
type Table struct {
	mu   sync.Mutex
	recs map[loc.ID]Record
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{recs: make(map[loc.ID]Record, 64)}
}

// Add charges one completed invocation to id. Exclusive time is clamped
// into [0, elapsed] so the Excl <= Cum invariant survives clock skew.
func (t *Table) Add(id loc.ID, elapsed, exclusive time.Duration) {
	if id == loc.NoID {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if exclusive < 0 {
		exclusive = 0
	}
	if exclusive > elapsed {
		exclusive = elapsed
	}

	t.mu.Lock()
	rec := t.recs[id]
	rec.Calls++
	rec.Cum += elapsed
	rec.Excl += exclusive
	t.recs[id] = rec
	t.mu.Unlock()
}

// Get returns the record for id.
func (t *Table) Get(id loc.ID) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.recs[id]
	return rec, ok
}

// Len reports the number of distinct locations recorded.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.recs)
}

// Merge folds other into t. Both tables must key IDs against the same
// interner; merging across interners goes through snapshots instead.
// Summation makes the operation associative and commutative.
func (t *Table) Merge(other *Table) {
	if other == nil || other == t {
		return
	}
	other.mu.Lock()
	copied := make(map[loc.ID]Record, len(other.recs))
	for id, rec := range other.recs {
		copied[id] = rec
	}
	other.mu.Unlock()

	t.mu.Lock()
	for id, rec := range copied {
		cur := t.recs[id]
		cur.Calls += rec.Calls
		cur.Cum += rec.Cum
		cur.Excl += rec.Excl
		t.recs[id] = cur
	}
	t.mu.Unlock()
}

// Reset drops every record. Called at session start.
func (t *Table) Reset() {
	t.mu.Lock()
	t.recs = make(map[loc.ID]Record, 64)
	t.mu.Unlock()
}

// Snapshot resolves IDs through the interner and returns the entries
// sorted by location for deterministic output.
func (t *Table) Snapshot(in *loc.Interner) Snapshot {
	t.mu.Lock()
	entries := make([]Entry, 0, len(t.recs))
	for id, rec := range t.recs {
		l, ok := in.Lookup(id)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Module:   l.Module,
			Function: l.Function,
			Line:     l.Line,
			Calls:    rec.Calls,
			Cum:      rec.Cum,
			Excl:     rec.Excl,
		})
	}
	t.mu.Unlock()

	snap := Snapshot(entries)
	snap.sort()
	return snap
}
