package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"callscope/internal/stats"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func TestCreateAndReadMeta(t *testing.T) {
	st := openStore(t)

	created, err := st.Create("run-1", "first run")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Name != "run-1" || created.Label != "first run" {
		t.Fatalf("created meta = %+v", created)
	}
	if created.StartedAt.IsZero() || created.Stopped() {
		t.Fatalf("fresh session should be started but not stopped: %+v", created)
	}

	got, err := st.Meta("run-1")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if got.Name != created.Name || got.Label != created.Label {
		t.Fatalf("read-back meta = %+v, want %+v", got, created)
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := st.Create("run", ""); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate Create = %v, want ErrSessionExists", err)
	}
}

func TestCreateRejectsBadNames(t *testing.T) {
	st := openStore(t)
	for _, name := range []string{"", "a/b", `a\b`, ".", ".."} {
		if _, err := st.Create(name, ""); err == nil {
			t.Fatalf("Create(%q) should fail", name)
		}
	}
}

func TestMetaUnknownSession(t *testing.T) {
	st := openStore(t)
	if _, err := st.Meta("ghost"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Meta(ghost) = %v, want ErrNoSession", err)
	}
}

func TestFinishStampsOnce(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, err := st.Finish("run")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !first.Stopped() {
		t.Fatalf("Finish did not stamp stop time")
	}

	second, err := st.Finish("run")
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}
	if !second.StoppedAt.Equal(first.StoppedAt) {
		t.Fatalf("second Finish moved the stop time: %v vs %v", second.StoppedAt, first.StoppedAt)
	}
}

func TestActiveMarkerLifecycle(t *testing.T) {
	st := openStore(t)

	if _, err := st.Active(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Active on empty store = %v, want ErrNoActiveSession", err)
	}
	if err := st.SetActive("ghost"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("SetActive(ghost) = %v, want ErrNoSession", err)
	}

	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.SetActive("run"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	name, err := st.Active()
	if err != nil || name != "run" {
		t.Fatalf("Active = %q, %v", name, err)
	}

	if err := st.ClearActive(); err != nil {
		t.Fatalf("ClearActive: %v", err)
	}
	if _, err := st.Active(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("Active after clear = %v, want ErrNoActiveSession", err)
	}
	// clearing twice is fine
	if err := st.ClearActive(); err != nil {
		t.Fatalf("second ClearActive: %v", err)
	}
}

func TestListSortedByStart(t *testing.T) {
	st := openStore(t)
	for _, name := range []string{"b", "a", "c"} {
		if _, err := st.Create(name, ""); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List returned %d sessions", len(list))
	}
	// creation order, not name order
	if list[0].Name != "b" || list[1].Name != "a" || list[2].Name != "c" {
		t.Fatalf("wrong order: %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestListSkipsDamagedEntries(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("good", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	bad := st.SessionDir("bad")
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, "session.toml"), []byte("not toml {{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "good" {
		t.Fatalf("List = %+v", list)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap := stats.Snapshot{
		{Module: "app", Function: "f", Line: 1, Calls: 2, Cum: 10 * time.Millisecond, Excl: 4 * time.Millisecond},
	}
	if err := st.WriteSnapshot("run", snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	got, err := st.LoadMerged(context.Background(), "run")
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if len(got) != 1 || got[0] != snap[0] {
		t.Fatalf("round trip = %+v, want %+v", got, snap)
	}
}

func TestLoadMergedCombinesShards(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		snap := stats.Snapshot{
			{Module: "app", Function: "f", Line: 1, Calls: 1, Cum: time.Millisecond, Excl: time.Millisecond},
		}
		if err := st.WriteSnapshot("run", snap); err != nil {
			t.Fatalf("WriteSnapshot #%d: %v", i, err)
		}
	}

	got, err := st.LoadMerged(context.Background(), "run")
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 merged location, got %d", len(got))
	}
	if got[0].Calls != 3 || got[0].Cum != 3*time.Millisecond {
		t.Fatalf("merged entry = %+v", got[0])
	}
}

func TestLoadMergedEmptySession(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := st.LoadMerged(context.Background(), "run")
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestLoadMergedRejectsBadShard(t *testing.T) {
	st := openStore(t)
	if _, err := st.Create("run", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	path := filepath.Join(st.SessionDir("run"), "stats-1-1.mp")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := st.LoadMerged(context.Background(), "run"); err == nil {
		t.Fatalf("expected error on corrupt shard")
	}
}

func TestTimelinePath(t *testing.T) {
	st := openStore(t)
	want := filepath.Join(st.Dir(), "sessions", "run", "timeline.ndjson")
	if got := st.TimelinePath("run"); got != want {
		t.Fatalf("TimelinePath = %q, want %q", got, want)
	}
}

func TestDefaultDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir: %v", err)
	}
	if filepath.Base(dir) != "callscope" {
		t.Fatalf("DefaultDir = %q", dir)
	}
}
