package loc

import (
	"fmt"

	"fortio.org/safecast"
)

// ID is a compact handle for an interned Location. Hot paths (frame
// stacks, stat tables) key on IDs instead of hashing three-field structs.
type ID uint32

// NoID is the invalid sentinel; slot 0 is reserved for it.
const NoID ID = 0

// Interner provides stable IDs for Locations seen during a session.
// It is not goroutine-safe; callers serialize access.
type Interner struct {
	locs  []Location
	index map[Location]ID
}

// NewInterner constructs an empty interner with slot 0 reserved.
func NewInterner() *Interner {
	in := &Interner{
		locs:  make([]Location, 1, 64),
		index: make(map[Location]ID, 64),
	}
	return in
}

// Intern ensures the location has a stable ID, allocating one on first sight.
func (in *Interner) Intern(l Location) ID {
	if l.IsZero() {
		return NoID
	}
	if id, ok := in.index[l]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.locs))
	if err != nil {
		panic(fmt.Errorf("len(locs) overflow: %w", err))
	}
	id := ID(slot)
	in.locs = append(in.locs, l)
	in.index[l] = id
	return id
}

// Lookup returns the location for an ID.
func (in *Interner) Lookup(id ID) (Location, bool) {
	if id == NoID || int(id) >= len(in.locs) {
		return Location{}, false
	}
	return in.locs[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id ID) Location {
	l, ok := in.Lookup(id)
	if !ok {
		panic("loc: invalid ID")
	}
	return l
}

// Len reports the number of interned locations (excluding the sentinel).
func (in *Interner) Len() int {
	return len(in.locs) - 1
}
