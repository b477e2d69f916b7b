package stats

import (
	"sort"
	"time"

	"callscope/internal/loc"
)

// Entry is one location's aggregated counters in portable form.
// Durations serialize as nanoseconds.
type Entry struct {
	Module   string        `msgpack:"module" json:"module"`
	Function string        `msgpack:"function" json:"function"`
	Line     int           `msgpack:"line" json:"line"`
	Calls    uint64        `msgpack:"calls" json:"calls"`
	Cum      time.Duration `msgpack:"cum_ns" json:"cum_ns"`
	Excl     time.Duration `msgpack:"excl_ns" json:"excl_ns"`
}

// Loc reconstructs the entry's location key.
func (e Entry) Loc() loc.Location {
	return loc.Location{Module: e.Module, Function: e.Function, Line: e.Line}
}

// Snapshot is an immutable, location-sorted view of a table, suitable
// for persistence and merging across sessions.
type Snapshot []Entry

func (s Snapshot) sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Loc().Less(s[j].Loc()) })
}

// Totals sums calls and exclusive time over the snapshot. The exclusive
// sum approximates total traced wall time without double counting.
func (s Snapshot) Totals() (calls uint64, excl time.Duration) {
	for _, e := range s {
		calls += e.Calls
		excl += e.Excl
	}
	return calls, excl
}

// MergeSnapshots combines snapshots keyed by location, summing counters.
// The operation is associative and commutative, so independently
// recorded sessions over the same code can merge in any order and equal
// sequential recording.
func MergeSnapshots(parts ...Snapshot) Snapshot {
	merged := make(map[loc.Location]Entry)
	for _, part := range parts {
		for _, e := range part {
			key := e.Loc()
			cur, ok := merged[key]
			if !ok {
				merged[key] = e
				continue
			}
			cur.Calls += e.Calls
			cur.Cum += e.Cum
			cur.Excl += e.Excl
			merged[key] = cur
		}
	}

	out := make(Snapshot, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	out.sort()
	return out
}
