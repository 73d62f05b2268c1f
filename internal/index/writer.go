package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/store"
	"github.com/zephyraoss/poppy-index/internal/trie"
)

// trieValue is what the target trie stores at each terminal node: which
// collection and which package within it declared the target.
type trieValue struct {
	Collection collection.Identifier
	Package    collection.PackageIdentity
}

// writer is the Index Writer: transactional update of the primary table,
// both FTS tables, and the trie.
//
// Grounded on zephyraoss-poppy-pkgs/internal/store.ApplyManifestChanges
// and rebuildPackagesTx: delete-then-reinsert derived rows for an
// affected key, inside one transaction, committed once.
type writer struct {
	gw   *store.Gateway
	trie *trie.Trie

	// ftsMu serializes the FTS-update transaction within put: the SQL
	// engine admits only one transaction per connection, and this lock
	// makes that a hard invariant without a connection pool.
	ftsMu sync.Mutex
}

func newWriter(gw *store.Gateway, tr *trie.Trie) *writer {
	return &writer{gw: gw, trie: tr}
}

// put encodes c, upserts its primary row, then replaces its FTS+trie
// entries inside one transaction. Cache population is the caller's
// responsibility — see Engine.Put — because it must only happen after
// this call returns success, and the cache is a sibling component, not
// something the writer should reach into.
func (w *writer) put(ctx context.Context, c collection.Collection) error {
	raw, err := collection.Encode(c)
	if err != nil {
		return fmt.Errorf("index: encode collection: %w", err)
	}

	db, err := w.gw.DB(ctx)
	if err != nil {
		return err
	}

	key := c.Identifier.DatabaseKey()
	if _, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO package_collections(key, value) VALUES (?, ?)`, key, raw); err != nil {
		return fmt.Errorf("index: upsert primary row: %w", err)
	}

	if !w.gw.UseSearchIndices() {
		return nil
	}

	w.ftsMu.Lock()
	defer w.ftsMu.Unlock()
	return w.replaceSearchIndices(ctx, db, c)
}

// remove deletes the primary row, then (if FTS enabled) deletes FTS rows
// and trie entries. A missing row is not an error; Engine.Remove evicts
// the cache whenever this returns nil.
func (w *writer) remove(ctx context.Context, id collection.Identifier) error {
	db, err := w.gw.DB(ctx)
	if err != nil {
		return err
	}

	key := id.DatabaseKey()
	if _, err := db.ExecContext(ctx, `DELETE FROM package_collections WHERE key = ?`, key); err != nil {
		return fmt.Errorf("index: delete primary row: %w", err)
	}

	if !w.gw.UseSearchIndices() {
		return nil
	}

	w.ftsMu.Lock()
	defer w.ftsMu.Unlock()
	return w.deleteSearchIndices(ctx, db, id)
}

func (w *writer) replaceSearchIndices(ctx context.Context, db *sql.DB, c collection.Collection) error {
	b64, err := c.Identifier.Base64()
	if err != nil {
		return fmt.Errorf("index: encode collection identifier: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin fts transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_packages WHERE collection_id_blob_base64 = ?`, b64); err != nil {
		return fmt.Errorf("index: delete stale package fts rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_targets WHERE collection_id_blob_base64 = ?`, b64); err != nil {
		return fmt.Errorf("index: delete stale target fts rows: %w", err)
	}
	w.trie.Remove(func(v trie.Value) bool {
		tv, ok := v.(trieValue)
		return ok && tv.Collection == c.Identifier
	})

	insertPackage, err := tx.PrepareContext(ctx, `
		INSERT INTO fts_packages (collection_id_blob_base64, id, version, name, repository_url, summary, keywords, products, targets)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare package fts insert: %w", err)
	}
	defer insertPackage.Close()

	insertTarget, err := tx.PrepareContext(ctx, `
		INSERT INTO fts_targets (collection_id_blob_base64, package_repository_url, name)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare target fts insert: %w", err)
	}
	defer insertTarget.Close()

	for _, pkg := range c.Packages {
		identity := pkg.Identity()
		for _, v := range pkg.Versions {
			productNames := make([]string, 0, len(v.Products))
			for _, p := range v.Products {
				productNames = append(productNames, p.Name)
			}
			targetNames := v.TargetNames()

			if _, err := insertPackage.ExecContext(ctx,
				b64,
				string(identity),
				v.Version,
				v.PackageName,
				pkg.Repository.URL,
				pkg.EffectiveSummary(c),
				strings.Join(pkg.EffectiveKeywords(c), " "),
				strings.Join(productNames, " "),
				strings.Join(targetNames, " "),
			); err != nil {
				return fmt.Errorf("index: insert package fts row: %w", err)
			}
		}

		for _, name := range pkg.UnionTargetNames() {
			if _, err := insertTarget.ExecContext(ctx, b64, pkg.Repository.URL, name); err != nil {
				return fmt.Errorf("index: insert target fts row: %w", err)
			}
			w.trie.Insert(strings.ToLower(name), trieValue{Collection: c.Identifier, Package: identity})
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit fts transaction: %w", err)
	}
	committed = true
	return nil
}

func (w *writer) deleteSearchIndices(ctx context.Context, db *sql.DB, id collection.Identifier) error {
	b64, err := id.Base64()
	if err != nil {
		return fmt.Errorf("index: encode collection identifier: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin fts transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_packages WHERE collection_id_blob_base64 = ?`, b64); err != nil {
		return fmt.Errorf("index: delete package fts rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_targets WHERE collection_id_blob_base64 = ?`, b64); err != nil {
		return fmt.Errorf("index: delete target fts rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit fts transaction: %w", err)
	}
	committed = true

	w.trie.Remove(func(v trie.Value) bool {
		tv, ok := v.(trieValue)
		return ok && tv.Collection == id
	})
	return nil
}
