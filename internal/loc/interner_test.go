package loc

import "testing"

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()
	a := in.Intern(Location{Module: "billing", Function: "Charge", Line: 10})
	b := in.Intern(Location{Module: "billing", Function: "Charge", Line: 10})
	if a == NoID {
		t.Fatalf("expected a real ID")
	}
	if a != b {
		t.Fatalf("identical locations should intern to the same ID: %d vs %d", a, b)
	}
	if in.Len() != 1 {
		t.Fatalf("expected 1 interned location, got %d", in.Len())
	}
}

func TestInternerDistinguishesLines(t *testing.T) {
	in := NewInterner()
	a := in.Intern(Location{Module: "m", Function: "f", Line: 1})
	b := in.Intern(Location{Module: "m", Function: "f", Line: 2})
	if a == b {
		t.Fatalf("different lines must intern to different IDs")
	}
}

func TestInternerZeroLocation(t *testing.T) {
	in := NewInterner()
	if id := in.Intern(Location{}); id != NoID {
		t.Fatalf("zero location should intern to NoID, got %d", id)
	}
	if _, ok := in.Lookup(NoID); ok {
		t.Fatalf("NoID must not resolve")
	}
}

func TestInternerLookupRoundTrip(t *testing.T) {
	in := NewInterner()
	want := Location{Module: "api", Function: "Handle", Line: 42}
	id := in.Intern(want)
	got, ok := in.Lookup(id)
	if !ok {
		t.Fatalf("Lookup(%d) failed", id)
	}
	if got != want {
		t.Fatalf("Lookup(%d) = %v, want %v", id, got, want)
	}
}

func TestLocationOrdering(t *testing.T) {
	cases := []struct {
		a, b Location
		want bool
	}{
		{Location{Module: "a"}, Location{Module: "b"}, true},
		{Location{Module: "m", Function: "a"}, Location{Module: "m", Function: "b"}, true},
		{Location{Module: "m", Function: "f", Line: 1}, Location{Module: "m", Function: "f", Line: 2}, true},
		{Location{Module: "m", Function: "f", Line: 2}, Location{Module: "m", Function: "f", Line: 1}, false},
	}
	for _, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Fatalf("%v.Less(%v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLocationString(t *testing.T) {
	l := Location{Module: "store", Function: "Get", Line: 7}
	if got := l.String(); got != "store.Get:7" {
		t.Fatalf("String() = %q", got)
	}
	noLine := Location{Module: "store", Function: "Get"}
	if got := noLine.String(); got != "store.Get" {
		t.Fatalf("String() without line = %q", got)
	}
}
