// Package report renders aggregated statistics as a summary table.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"callscope/internal/stats"
)

// Sort selects the primary ordering key for the summary table.
type Sort uint8

const (
	// SortCumulative orders by cumulative time, descending (default).
	SortCumulative Sort = iota + 1
	// SortExclusive orders by exclusive time, descending.
	SortExclusive
	// SortCalls orders by call count, descending.
	SortCalls
)

// String returns the string representation of Sort.
func (s Sort) String() string {
	switch s {
	case SortCumulative:
		return "cumulative"
	case SortExclusive:
		return "exclusive"
	case SortCalls:
		return "calls"
	default:
		return "unknown"
	}
}

// ParseSort converts a string to a Sort.
func ParseSort(s string) (Sort, error) {
	switch strings.ToLower(s) {
	case "", "cumulative", "cum":
		return SortCumulative, nil
	case "exclusive", "excl", "tottime":
		return SortExclusive, nil
	case "calls", "ncalls":
		return SortCalls, nil
	default:
		return SortCumulative, fmt.Errorf("invalid sort mode: %q (expected: cumulative|exclusive|calls)", s)
	}
}

// Options controls table rendering.
type Options struct {
	Sort  Sort
	Limit int // 0 = no limit
}

var (
	headerColor = color.New(color.Bold)
	totalColor  = color.New(color.FgCyan)
)

// Order sorts entries by the chosen key, descending, with ties broken
// by lexical location order so output is deterministic.
func Order(snap stats.Snapshot, mode Sort) []stats.Entry {
	rows := make([]stats.Entry, len(snap))
	copy(rows, snap)

	key := func(e stats.Entry) int64 {
		switch mode {
		case SortExclusive:
			return int64(e.Excl)
		case SortCalls:
			c := e.Calls
			if c > uint64(1)<<62 {
				c = uint64(1) << 62
			}
			return int64(c)
		default:
			return int64(e.Cum)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki != kj {
			return ki > kj
		}
		return rows[i].Loc().Less(rows[j].Loc())
	})
	return rows
}

// Write renders the summary table. Columns follow the classic profiler
// layout: ncalls, tottime (exclusive), per-call exclusive, cumtime,
// per-call cumulative, location. Times are in milliseconds.
func Write(w io.Writer, snap stats.Snapshot, opts Options) error {
	if opts.Sort == 0 {
		opts.Sort = SortCumulative
	}
	rows := Order(snap, opts.Sort)
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	if _, err := headerColor.Fprintf(w, "%8s %10s %10s %10s %10s  %s\n",
		"ncalls", "tottime", "percall", "cumtime", "percall", "location"); err != nil {
		return err
	}

	for _, e := range rows {
		tot := toMillis(e.Excl)
		cum := toMillis(e.Cum)
		var perTot, perCum float64
		if e.Calls > 0 {
			perTot = tot / float64(e.Calls)
			perCum = cum / float64(e.Calls)
		}
		if _, err := fmt.Fprintf(w, "%8d %10.3f %10.3f %10.3f %10.3f  %s\n",
			e.Calls, tot, perTot, cum, perCum, e.Loc()); err != nil {
			return err
		}
	}

	calls, excl := snap.Totals()
	if _, err := totalColor.Fprintf(w, "%d locations, %d calls, %.3f ms traced\n",
		len(snap), calls, toMillis(excl)); err != nil {
		return err
	}
	return nil
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
