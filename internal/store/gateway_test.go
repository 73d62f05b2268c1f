package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestDBOpensLazilyAndBootstrapsSchema(t *testing.T) {
	gw := New(InMemory(), nil)
	ctx := context.Background()

	db, err := gw.DB(ctx)
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO package_collections(key, value) VALUES ('k', X'00')`); err != nil {
		t.Fatalf("primary table not usable: %v", err)
	}

	if err := gw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCloseIsIdempotentWhenNeverOpened(t *testing.T) {
	gw := New(InMemory(), nil)
	if err := gw.Close(); err != nil {
		t.Fatalf("Close on unopened gateway: %v", err)
	}
}

func TestReopenAfterFileDeletedOutOfBand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "index.db")
	fs := &fakeFileSystem{existing: map[string]bool{}}
	gw := New(AtPath(path), fs)
	ctx := context.Background()

	if _, err := gw.DB(ctx); err != nil {
		t.Fatalf("first DB: %v", err)
	}

	fs.existing[path] = false // simulate the file vanishing out-of-band

	db2, err := gw.DB(ctx)
	if err != nil {
		t.Fatalf("second DB after simulated deletion: %v", err)
	}
	if _, err := db2.ExecContext(ctx, `INSERT INTO package_collections(key, value) VALUES ('k', X'00')`); err != nil {
		t.Fatalf("reopened db not usable: %v", err)
	}
}

// fakeFileSystem lets tests control Exists() independently of the real
// filesystem, to exercise the Gateway's stale-handle detection without
// needing to actually delete an on-disk SQLite file mid-test.
type fakeFileSystem struct {
	existing map[string]bool
}

func (f *fakeFileSystem) Exists(path string) bool {
	v, ok := f.existing[path]
	if !ok {
		return OSFileSystem{}.Exists(path)
	}
	return v
}

func (f *fakeFileSystem) CreateDirectory(path string, recursive bool) error {
	err := OSFileSystem{}.CreateDirectory(path, recursive)
	if err == nil {
		f.existing[path] = true
	}
	return err
}
