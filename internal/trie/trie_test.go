package trie

import (
	"errors"
	"reflect"
	"testing"
)

func TestInsertAndFindExact(t *testing.T) {
	tr := New()
	tr.Insert("logging", "v1")
	tr.Insert("logging", "v2")
	tr.Insert("logger", "v3")

	got, err := tr.Find("logging")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	want := map[Value]struct{}{"v1": {}, "v2": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestFindMissingReturnsNotFound(t *testing.T) {
	tr := New()
	tr.Insert("logging", "v1")

	if _, err := tr.Find("networking"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// A prefix of a stored word with no value of its own is also not found.
	if _, err := tr.Find("log"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for bare prefix, got %v", err)
	}
}

func TestFindWithPrefix(t *testing.T) {
	tr := New()
	tr.Insert("logging", "v1")
	tr.Insert("logger", "v2")
	tr.Insert("login", "v3")
	tr.Insert("networking", "v4")

	got, err := tr.FindWithPrefix("log")
	if err != nil {
		t.Fatalf("FindWithPrefix: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 matching words, got %d: %v", len(got), got)
	}
	for _, word := range []string{"logging", "logger", "login"} {
		if _, ok := got[word]; !ok {
			t.Errorf("expected %q in results", word)
		}
	}
	if _, ok := got["networking"]; ok {
		t.Errorf("did not expect networking in prefix results")
	}
}

func TestRemoveDeletesMatchingValuesAndGarbageCollectsNodes(t *testing.T) {
	tr := New()
	tr.Insert("logging", "v1")
	tr.Insert("logging", "v2")
	tr.Insert("logger", "v3")

	tr.Remove(func(v Value) bool { return v == "v1" })

	got, err := tr.Find("logging")
	if err != nil {
		t.Fatalf("Find after partial remove: %v", err)
	}
	if _, ok := got["v1"]; ok {
		t.Errorf("v1 should have been removed")
	}
	if _, ok := got["v2"]; !ok {
		t.Errorf("v2 should remain")
	}

	tr.Remove(func(v Value) bool { return v == "v2" })
	if _, err := tr.Find("logging"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected logging to be fully removed, got %v", err)
	}

	// logger, an unrelated word sharing the "log" prefix, must survive.
	if _, err := tr.Find("logger"); err != nil {
		t.Errorf("logger should still be findable: %v", err)
	}
}

func TestRemoveEverythingEmptiesRoot(t *testing.T) {
	tr := New()
	tr.Insert("a", 1)
	tr.Insert("ab", 2)

	tr.Remove(func(Value) bool { return true })

	if _, err := tr.FindWithPrefix(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected empty trie after removing everything, got %v", err)
	}
}
