// Package index is the top-level Index component: it wires the DB
// Gateway, the in-memory cache, the target trie, and the Index Writer /
// Query Engine into the Engine type applications embed.
//
// Grounded on zephyraoss-poppy-pkgs/internal/store.Store as the
// composition root that owns a *sql.DB alongside its derived in-memory
// structures, and on that package's Close (best-effort, logged, never
// panics) generalized here into a backoff-driven retry.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zephyraoss/poppy-index/internal/backoff"
	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/diagnostics"
	"github.com/zephyraoss/poppy-index/internal/pkgcache"
	"github.com/zephyraoss/poppy-index/internal/store"
	"github.com/zephyraoss/poppy-index/internal/trie"
	"github.com/zephyraoss/poppy-index/internal/workpool"
)

// State enumerates the Lifecycle's coarse states.
type State int

const (
	// Idle means the Engine has been constructed but DB has not yet been
	// opened.
	Idle State = iota
	// Connected means the DB handle is open and usable.
	Connected
	// Disconnected means Close has returned, whether or not the underlying
	// close succeeded.
	Disconnected
	// Errored means the last lifecycle transition failed.
	Errored
)

// Engine is the Index component applications construct and hold for the
// lifetime of a process. It is safe for concurrent use.
type Engine struct {
	gw     *store.Gateway
	cache  *pkgcache.Cache
	trie   *trie.Trie
	diag   diagnostics.Sink
	writer *writer
	query  *queryEngine

	stateMu sync.RWMutex
	state   State

	trieReady atomic.Bool

	warmupMu      sync.Mutex
	warmupStarted bool

	shuttingDown atomic.Bool

	closePolicy backoff.Policy
}

// Options configures a new Engine.
type Options struct {
	// Location is where the backing SQLite database lives.
	Location store.Location
	// FileSystem overrides the Gateway's filesystem collaborator. Nil uses
	// store.OSFileSystem.
	FileSystem store.FileSystem
	// Diagnostics receives non-fatal warnings. Nil uses diagnostics.NopSink.
	Diagnostics diagnostics.Sink
	// ClosePolicy overrides the backoff schedule Close retries under. Zero
	// value uses backoff.Default().
	ClosePolicy *backoff.Policy
}

// New constructs an Engine in the Idle state. No I/O happens until the
// first operation.
func New(opts Options) *Engine {
	diag := opts.Diagnostics
	if diag == nil {
		diag = diagnostics.NopSink{}
	}
	closePolicy := backoff.Default()
	if opts.ClosePolicy != nil {
		closePolicy = *opts.ClosePolicy
	}

	gw := store.New(opts.Location, opts.FileSystem)
	cache := pkgcache.New()
	tr := trie.New()

	e := &Engine{
		gw:          gw,
		cache:       cache,
		trie:        tr,
		diag:        diag,
		writer:      newWriter(gw, tr),
		closePolicy: closePolicy,
	}
	e.query = newQueryEngine(gw, cache, tr, diag, e.trieReady.Load)
	return e
}

// State reports the Lifecycle's current state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// ensureConnected opens the DB handle on first use and kicks off trie
// warm-up once per connection (Close resets it, so the next operation
// after Close starts it again): the Engine connects lazily, on first
// operation.
func (e *Engine) ensureConnected(ctx context.Context) error {
	if e.shuttingDown.Load() {
		return ErrClosed
	}

	db, err := e.gw.DB(ctx)
	if err != nil {
		e.setState(Errored)
		return fmt.Errorf("index: connect: %w", err)
	}
	_ = db
	e.setState(Connected)

	e.warmupMu.Lock()
	if !e.warmupStarted {
		e.warmupStarted = true
		e.warmupMu.Unlock()
		go e.warmTrie(context.Background())
	} else {
		e.warmupMu.Unlock()
	}
	return nil
}

// warmTrie populates the trie from every fts_targets row and then marks
// it ready. It polls shuttingDown between rows so Close is never blocked
// by a slow warm-up on a large database.
func (e *Engine) warmTrie(ctx context.Context) {
	if !e.gw.UseSearchIndices() {
		e.trieReady.Store(true)
		return
	}

	db, err := e.gw.DB(ctx)
	if err != nil {
		e.diag.Warn("trie warm-up: could not open database", "error", err)
		return
	}

	rows, err := db.QueryContext(ctx, `SELECT collection_id_blob_base64, package_repository_url, name FROM fts_targets`)
	if err != nil {
		e.diag.Warn("trie warm-up: query failed", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		if e.shuttingDown.Load() {
			return
		}
		var b64, repoURL, name string
		if err := rows.Scan(&b64, &repoURL, &name); err != nil {
			e.diag.Warn("trie warm-up: scan failed", "error", err)
			continue
		}
		id, err := collection.DecodeIdentifierBase64(b64)
		if err != nil {
			continue
		}
		e.trie.Insert(strings.ToLower(name), trieValue{Collection: id, Package: collection.NewPackageIdentity(repoURL)})
	}
	if err := rows.Err(); err != nil {
		e.diag.Warn("trie warm-up: row iteration failed", "error", err)
	}

	e.trieReady.Store(true)
}

// Put write-throughs the primary table and search indices, then updates
// the cache only after the write succeeds.
func (e *Engine) Put(ctx context.Context, c collection.Collection) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	if err := e.writer.put(ctx, c); err != nil {
		return err
	}
	e.cache.Put(c.Identifier.DatabaseKey(), c)
	return nil
}

// Remove deletes a collection and evicts it from the cache.
func (e *Engine) Remove(ctx context.Context, id collection.Identifier) error {
	if err := e.ensureConnected(ctx); err != nil {
		return err
	}
	if err := e.writer.remove(ctx, id); err != nil {
		return err
	}
	e.cache.Delete(id.DatabaseKey())
	return nil
}

// Get returns the collection identified by id.
func (e *Engine) Get(ctx context.Context, id collection.Identifier) (collection.Collection, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return collection.Collection{}, err
	}
	return e.query.get(ctx, id)
}

// List returns every collection identified by ids, or every collection in
// the store if ids is nil.
func (e *Engine) List(ctx context.Context, ids []collection.Identifier) ([]collection.Collection, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return e.query.list(ctx, ids)
}

// SearchPackages returns every package matching query, restricted to ids
// if given.
func (e *Engine) SearchPackages(ctx context.Context, ids []collection.Identifier, query string) ([]PackageSearchHit, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return e.query.searchPackages(ctx, ids, query)
}

// FindPackage returns the most-recently-processed match for identity.
func (e *Engine) FindPackage(ctx context.Context, identity collection.PackageIdentity, ids []collection.Identifier) (FindPackageResult, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return FindPackageResult{}, err
	}
	return e.query.findPackage(ctx, identity, ids)
}

// SearchTargets returns every target name matching query under matchType.
func (e *Engine) SearchTargets(ctx context.Context, ids []collection.Identifier, query string, matchType TargetMatchType) ([]TargetSearchHit, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return e.query.searchTargets(ctx, ids, query, matchType)
}

// Close deinitializes the Engine: it marks shutdown (so warm-up and new
// operations stop), then retries the underlying Close under
// backoff.Default (or the configured ClosePolicy) up to its MaxAttempts,
// returning ErrCloseFailed if every attempt fails. Close always leaves the
// Engine in Disconnected regardless of outcome: the next operation
// re-opens the DB handle and restarts warm-up, exactly as a fresh Engine
// would on its first call.
func (e *Engine) Close(ctx context.Context) error {
	e.shuttingDown.Store(true)
	defer func() {
		e.warmupMu.Lock()
		e.warmupStarted = false
		e.warmupMu.Unlock()
		e.trieReady.Store(false)
		e.shuttingDown.Store(false)
		e.setState(Disconnected)
	}()

	seq := e.closePolicy.Start()
	var lastErr error
	for {
		if err := e.gw.Close(); err != nil {
			lastErr = err
			delay, backoffErr := seq.Next()
			if backoffErr != nil {
				return fmt.Errorf("%w: %v", ErrCloseFailed, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		return nil
	}
}

// PutAsync is Put's callback-oriented wrapper: fire off the synchronous
// call on its own goroutine and report the result via cb.
func (e *Engine) PutAsync(ctx context.Context, c collection.Collection, cb func(error)) {
	workpool.Go(func() { cb(e.Put(ctx, c)) })
}

// RemoveAsync is Remove's callback-oriented wrapper.
func (e *Engine) RemoveAsync(ctx context.Context, id collection.Identifier, cb func(error)) {
	workpool.Go(func() { cb(e.Remove(ctx, id)) })
}

// GetAsync is Get's callback-oriented wrapper.
func (e *Engine) GetAsync(ctx context.Context, id collection.Identifier, cb func(collection.Collection, error)) {
	workpool.Go(func() {
		c, err := e.Get(ctx, id)
		cb(c, err)
	})
}

// ListAsync is List's callback-oriented wrapper.
func (e *Engine) ListAsync(ctx context.Context, ids []collection.Identifier, cb func([]collection.Collection, error)) {
	workpool.Go(func() {
		cs, err := e.List(ctx, ids)
		cb(cs, err)
	})
}

// SearchPackagesAsync is SearchPackages's callback-oriented wrapper.
func (e *Engine) SearchPackagesAsync(ctx context.Context, ids []collection.Identifier, query string, cb func([]PackageSearchHit, error)) {
	workpool.Go(func() {
		hits, err := e.SearchPackages(ctx, ids, query)
		cb(hits, err)
	})
}

// FindPackageAsync is FindPackage's callback-oriented wrapper.
func (e *Engine) FindPackageAsync(ctx context.Context, identity collection.PackageIdentity, ids []collection.Identifier, cb func(FindPackageResult, error)) {
	workpool.Go(func() {
		res, err := e.FindPackage(ctx, identity, ids)
		cb(res, err)
	})
}

// SearchTargetsAsync is SearchTargets's callback-oriented wrapper.
func (e *Engine) SearchTargetsAsync(ctx context.Context, ids []collection.Identifier, query string, matchType TargetMatchType, cb func([]TargetSearchHit, error)) {
	workpool.Go(func() {
		hits, err := e.SearchTargets(ctx, ids, query, matchType)
		cb(hits, err)
	})
}
