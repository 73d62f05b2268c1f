// Package store is the DB Gateway: a lazily-opened SQL connection with
// schema bootstrap and an FTS-capability probe.
//
// Grounded on zephyraoss-poppy-pkgs/internal/store.Open/Migrate (single
// *sql.DB, SetMaxOpenConns(1), pragma list, CREATE TABLE IF NOT EXISTS
// migrations) and on aladin2907-overhuman/internal/storage/sqlite.go's
// FTS-virtual-table-alongside-primary-table shape.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// LocationKind discriminates where the backing SQLite file lives.
type LocationKind int

const (
	// LocationPath is a real file on disk.
	LocationPath LocationKind = iota
	// LocationMemory is a private in-memory database, gone on Close.
	LocationMemory
	// LocationTemporary is a private on-disk database in the OS temp
	// directory, gone on Close.
	LocationTemporary
)

// Location names where the database lives.
type Location struct {
	Kind LocationKind
	Path string
}

// AtPath opens the database at a real file path.
func AtPath(p string) Location { return Location{Kind: LocationPath, Path: p} }

// InMemory opens a private in-memory database.
func InMemory() Location { return Location{Kind: LocationMemory} }

// Temporary opens a private on-disk database that does not outlive the
// process (SQLite's "" DSN backed by a temp file).
func Temporary() Location { return Location{Kind: LocationTemporary} }

func (l Location) dsn() string {
	switch l.Kind {
	case LocationMemory:
		return "file::memory:"
	case LocationTemporary:
		return ""
	default:
		return fmt.Sprintf("file:%s", filepath.ToSlash(l.Path))
	}
}

// FileSystem is the filesystem abstraction the gateway consumes:
// existence checks and directory creation, so tests can substitute an
// in-memory filesystem without touching disk.
type FileSystem interface {
	Exists(path string) bool
	CreateDirectory(path string, recursive bool) error
}

// OSFileSystem is the default FileSystem, backed by the os package.
type OSFileSystem struct{}

// Exists reports whether path exists.
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateDirectory creates path, and its parents if recursive is true.
func (OSFileSystem) CreateDirectory(path string, recursive bool) error {
	if recursive {
		return os.MkdirAll(path, 0o755)
	}
	return os.Mkdir(path, 0o755)
}

// Gateway owns the lazily created *sql.DB handle. It is safe for
// concurrent use: all opens/closes/reopens are serialized under mu.
type Gateway struct {
	loc Location
	fs  FileSystem

	mu               sync.Mutex
	db               *sql.DB
	opened           bool
	useSearchIndices bool
}

// New returns a Gateway for loc. fs may be nil to use OSFileSystem.
func New(loc Location, fs FileSystem) *Gateway {
	if fs == nil {
		fs = OSFileSystem{}
	}
	return &Gateway{loc: loc, fs: fs}
}

// DB returns the open *sql.DB, opening it (and bootstrapping schema) on
// first use, and transparently reopening it if the backing file
// disappeared out-of-band (path locations only).
func (g *Gateway) DB(ctx context.Context) (*sql.DB, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.opened && g.loc.Kind == LocationPath && !g.fs.Exists(g.loc.Path) {
		_ = g.db.Close()
		g.opened = false
		g.db = nil
	}

	if g.opened {
		return g.db, nil
	}

	if g.loc.Kind == LocationPath {
		if err := g.fs.CreateDirectory(filepath.Dir(g.loc.Path), true); err != nil {
			return nil, fmt.Errorf("store: create parent directories: %w", err)
		}
	}

	db, err := sql.Open("sqlite", g.loc.dsn())
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := bootstrapSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	g.useSearchIndices = probeFTS(ctx, db)

	g.db = db
	g.opened = true
	return g.db, nil
}

// UseSearchIndices reports whether FTS virtual table creation succeeded
// for the current handle. It only has a meaningful value after DB has
// been called at least once.
func (g *Gateway) UseSearchIndices() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.useSearchIndices
}

// Close closes the underlying handle, if any. Safe to call when never
// opened.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opened {
		return nil
	}
	err := g.db.Close()
	g.opened = false
	g.db = nil
	return err
}

func bootstrapSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createPrimaryTable); err != nil {
		return fmt.Errorf("store: create primary table: %w", err)
	}

	if _, err := db.ExecContext(ctx, setWAL); err != nil {
		return fmt.Errorf("store: set WAL mode: %w", err)
	}

	return nil
}

// probeFTS attempts to create both FTS virtual tables and reports
// whether both succeeded. It is separate from bootstrapSchema because the
// resulting flag must be recorded on the owning Gateway, not just
// discarded on error: callers must not silently fall back to an older
// FTS version if the fixed one is unavailable, only to the substring
// fallback path.
func probeFTS(ctx context.Context, db *sql.DB) bool {
	if _, err := db.ExecContext(ctx, createPackagesFTS); err != nil {
		return false
	}
	if _, err := db.ExecContext(ctx, createTargetsFTS); err != nil {
		return false
	}
	return true
}
