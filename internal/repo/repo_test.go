package repo

import "testing"

func TestIsCollectionFile(t *testing.T) {
	cases := map[string]bool{
		"collections/a.json":          true,
		"collections/nested/b.JSON":   true,
		"collections/a.yaml":          false,
		"other/a.json":                false,
		"collections/.hidden/a.json":  false,
		"collections/.a.json":         false,
		"collections":                 false,
	}
	for path, want := range cases {
		if got := isCollectionFile(path); got != want {
			t.Errorf("isCollectionFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExtractPercent(t *testing.T) {
	if pct, ok := extractPercent("Receiving objects:  42% (10/24)"); !ok || pct != 42 {
		t.Fatalf("got %d, %v want 42, true", pct, ok)
	}
	if _, ok := extractPercent("Resolving deltas: done"); ok {
		t.Fatalf("expected no match")
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("abcdef0123456789"); got != "abcdef012345" {
		t.Errorf("got %q", got)
	}
	if got := shortCommit("short"); got != "short" {
		t.Errorf("got %q", got)
	}
}
