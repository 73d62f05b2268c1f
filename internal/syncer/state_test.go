package syncer

import (
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFileReturnsEmpty(t *testing.T) {
	st := loadState(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if st.LastCommit != "" {
		t.Errorf("expected empty LastCommit, got %q", st.LastCommit)
	}
	if st.PathIdentity == nil {
		t.Error("expected a non-nil PathIdentity map")
	}
}

func TestLoadStateEmptyPathReturnsEmpty(t *testing.T) {
	st := loadState("")
	if st.LastCommit != "" || len(st.PathIdentity) != 0 {
		t.Errorf("expected zero-value state, got %+v", st)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	want := persistentState{
		LastCommit:   "abc123",
		PathIdentity: map[string]string{"collections/a.json": "https://example.com/a.json"},
	}

	if err := saveState(path, want); err != nil {
		t.Fatalf("saveState: %v", err)
	}

	got := loadState(path)
	if got.LastCommit != want.LastCommit {
		t.Errorf("LastCommit = %q want %q", got.LastCommit, want.LastCommit)
	}
	if got.PathIdentity["collections/a.json"] != "https://example.com/a.json" {
		t.Errorf("PathIdentity round trip failed: %+v", got.PathIdentity)
	}
}

func TestSaveStateNoopOnEmptyPath(t *testing.T) {
	if err := saveState("", persistentState{}); err != nil {
		t.Errorf("expected no error for empty path, got %v", err)
	}
}
