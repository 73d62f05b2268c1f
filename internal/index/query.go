// Query Engine: get, list, searchPackages, findPackage, searchTargets.
// Cache-first reads, FTS-path-with-fallback-scan search, trie-accelerated
// target search once warm-up completes.
//
// The FTS-vs-fallback dual path is grounded on
// zephyraoss-poppy-pkgs/internal/store.SearchPackages, which issues one
// query shape when its FTS5 table is usable and a plain LIKE/COLLATE
// NOCASE query shape when it isn't (there, the fallback is a design
// choice for exact/prefix ranking; here it's the documented FTS
// unavailability path — same shape, different trigger).
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zephyraoss/poppy-index/internal/collection"
	"github.com/zephyraoss/poppy-index/internal/diagnostics"
	"github.com/zephyraoss/poppy-index/internal/pkgcache"
	"github.com/zephyraoss/poppy-index/internal/store"
	"github.com/zephyraoss/poppy-index/internal/trie"
	"github.com/zephyraoss/poppy-index/internal/workpool"
)

// parallelDecodeThreshold is the cutoff between serial and worker-pool
// decoding: batches of 100 or more decode in parallel.
const parallelDecodeThreshold = 100

// sqlChunkSize is the chunk size used for IN (...) queries against the
// primary table, keeping generated SQL well under SQLite's parameter
// limit.
const sqlChunkSize = 100

type queryEngine struct {
	gw    *store.Gateway
	cache *pkgcache.Cache
	trie  *trie.Trie
	diag  diagnostics.Sink

	// trieReady reports whether trie warm-up has completed. Owned by the
	// Lifecycle (engine.go); the query engine only reads it.
	trieReady func() bool
}

func newQueryEngine(gw *store.Gateway, cache *pkgcache.Cache, tr *trie.Trie, diag diagnostics.Sink, trieReady func() bool) *queryEngine {
	return &queryEngine{gw: gw, cache: cache, trie: tr, diag: diag, trieReady: trieReady}
}

// get(id) is cache-first, then a direct primary row lookup. Never
// populates the cache (only writes do).
func (q *queryEngine) get(ctx context.Context, id collection.Identifier) (collection.Collection, error) {
	key := id.DatabaseKey()
	if v, ok := q.cache.Get(key); ok {
		return v, nil
	}

	db, err := q.gw.DB(ctx)
	if err != nil {
		return collection.Collection{}, err
	}

	var raw []byte
	err = db.QueryRowContext(ctx, `SELECT value FROM package_collections WHERE key = ? LIMIT 1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return collection.Collection{}, &NotFoundError{Subject: key}
	}
	if err != nil {
		return collection.Collection{}, fmt.Errorf("index: get %q: %w", key, err)
	}

	c, err := collection.Decode(raw)
	if err != nil {
		return collection.Collection{}, &CorruptError{Key: key, Err: err}
	}
	return c, nil
}

// list(ids?) returns every collection identified by ids, or every stored
// collection when ids is nil.
func (q *queryEngine) list(ctx context.Context, ids []collection.Identifier) ([]collection.Collection, error) {
	var keys []string
	if ids != nil {
		keys = make([]string, len(ids))
		for i, id := range ids {
			keys[i] = id.DatabaseKey()
		}
		if cached, ok := q.cache.GetMany(keys); ok {
			return cached, nil
		}
	}

	blobs, err := q.fetchBlobs(ctx, keys)
	if err != nil {
		return nil, err
	}

	decoded := q.decodeBlobs(blobs)

	if len(decoded) < len(blobs) {
		q.diag.Warn("some stored collections could not be deserialized")
	}

	if ids == nil {
		return decoded, nil
	}

	byKey := make(map[string]collection.Collection, len(decoded))
	for _, c := range decoded {
		byKey[c.Identifier.DatabaseKey()] = c
	}
	ordered := make([]collection.Collection, 0, len(decoded))
	for _, k := range keys {
		if c, ok := byKey[k]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (q *queryEngine) fetchBlobs(ctx context.Context, keys []string) ([][]byte, error) {
	db, err := q.gw.DB(ctx)
	if err != nil {
		return nil, err
	}

	if keys == nil {
		rows, err := db.QueryContext(ctx, `SELECT value FROM package_collections`)
		if err != nil {
			return nil, fmt.Errorf("index: list all: %w", err)
		}
		defer rows.Close()
		return scanBlobs(rows)
	}

	var blobs [][]byte
	for start := 0; start < len(keys); start += sqlChunkSize {
		end := start + sqlChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT value FROM package_collections WHERE key IN (%s)`, placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("index: list chunk: %w", err)
		}
		chunkBlobs, err := scanBlobs(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, chunkBlobs...)
	}
	return blobs, nil
}

func scanBlobs(rows *sql.Rows) ([][]byte, error) {
	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("index: scan blob: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (q *queryEngine) decodeBlobs(blobs [][]byte) []collection.Collection {
	if len(blobs) < parallelDecodeThreshold {
		out := make([]collection.Collection, 0, len(blobs))
		for _, raw := range blobs {
			if c, err := collection.Decode(raw); err == nil {
				out = append(out, c)
			}
		}
		return out
	}

	type decoded struct {
		c  collection.Collection
		ok bool
	}
	results := workpool.Map(blobs, func(raw []byte) decoded {
		c, err := collection.Decode(raw)
		return decoded{c: c, ok: err == nil}
	})
	out := make([]collection.Collection, 0, len(results))
	for _, r := range results {
		if r.ok {
			out = append(out, r.c)
		}
	}
	return out
}

// searchPackages(ids?, query) returns every package matching query,
// restricted to ids if given.
func (q *queryEngine) searchPackages(ctx context.Context, ids []collection.Identifier, query string) ([]PackageSearchHit, error) {
	candidates, err := q.list(ctx, ids)
	if err != nil {
		return nil, err
	}
	byKey := indexByKey(candidates)

	if q.gw.UseSearchIndices() {
		return q.searchPackagesFTS(ctx, byKey, query)
	}
	return searchPackagesFallback(candidates, query), nil
}

func (q *queryEngine) searchPackagesFTS(ctx context.Context, byKey map[string]collection.Collection, query string) ([]PackageSearchHit, error) {
	db, err := q.gw.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT collection_id_blob_base64, repository_url FROM fts_packages WHERE fts_packages MATCH ?`, query)
	if err != nil {
		return nil, fmt.Errorf("index: search packages: %w", err)
	}
	defer rows.Close()

	type key struct {
		identity collection.PackageIdentity
	}
	order := make([]key, 0)
	grouped := make(map[key]*PackageSearchHit)

	for rows.Next() {
		var b64, repoURL string
		if err := rows.Scan(&b64, &repoURL); err != nil {
			return nil, fmt.Errorf("index: scan package fts hit: %w", err)
		}
		id, err := collection.DecodeIdentifierBase64(b64)
		if err != nil {
			continue
		}
		c, ok := byKey[id.DatabaseKey()]
		if !ok {
			continue
		}
		identity := collection.NewPackageIdentity(repoURL)
		pkg, ok := findPackageByIdentity(c, identity)
		if !ok {
			continue
		}
		k := key{identity: identity}
		hit, ok := grouped[k]
		if !ok {
			hit = &PackageSearchHit{Package: pkg}
			grouped[k] = hit
			order = append(order, k)
		}
		hit.Collections = appendIdentifierUnique(hit.Collections, c.Identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]PackageSearchHit, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out, nil
}

func searchPackagesFallback(candidates []collection.Collection, query string) []PackageSearchHit {
	q := strings.ToLower(query)

	type key struct {
		identity collection.PackageIdentity
	}
	order := make([]key, 0)
	grouped := make(map[key]*PackageSearchHit)

	for _, c := range candidates {
		for _, pkg := range c.Packages {
			if !packageMatchesSubstring(pkg, c, q) {
				continue
			}
			k := key{identity: pkg.Identity()}
			hit, ok := grouped[k]
			if !ok {
				hit = &PackageSearchHit{Package: pkg}
				grouped[k] = hit
				order = append(order, k)
			}
			hit.Collections = appendIdentifierUnique(hit.Collections, c.Identifier)
		}
	}

	out := make([]PackageSearchHit, 0, len(order))
	for _, k := range order {
		out = append(out, *grouped[k])
	}
	return out
}

func packageMatchesSubstring(pkg collection.Package, parent collection.Collection, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(pkg.Repository.URL), lowerQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(pkg.EffectiveSummary(parent)), lowerQuery) {
		return true
	}
	for _, kw := range pkg.EffectiveKeywords(parent) {
		if strings.Contains(strings.ToLower(kw), lowerQuery) {
			return true
		}
	}
	for _, v := range pkg.Versions {
		if strings.Contains(strings.ToLower(v.PackageName), lowerQuery) {
			return true
		}
		for _, p := range v.Products {
			if strings.Contains(strings.ToLower(p.Name), lowerQuery) {
				return true
			}
		}
		for _, t := range v.Targets {
			if strings.Contains(strings.ToLower(t.Name), lowerQuery) {
				return true
			}
		}
	}
	return false
}

// findPackage(identity, ids?) returns the most-recently-processed match
// for identity, plus every containing collection.
func (q *queryEngine) findPackage(ctx context.Context, identity collection.PackageIdentity, ids []collection.Identifier) (FindPackageResult, error) {
	candidates, err := q.list(ctx, ids)
	if err != nil {
		return FindPackageResult{}, err
	}
	byKey := indexByKey(candidates)

	var matches []collection.Collection
	if q.gw.UseSearchIndices() {
		matches, err = q.findPackageFTS(ctx, byKey, identity)
		if err != nil {
			return FindPackageResult{}, err
		}
	} else {
		for _, c := range candidates {
			if _, ok := findPackageByIdentity(c, identity); ok {
				matches = append(matches, c)
			}
		}
	}

	if len(matches) == 0 {
		return FindPackageResult{}, &NotFoundError{Subject: string(identity)}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].LastProcessedAt.After(matches[j].LastProcessedAt)
	})

	pkg, ok := findPackageByIdentity(matches[0], identity)
	if !ok {
		return FindPackageResult{}, &NotFoundError{Subject: string(identity)}
	}

	collections := make([]collection.Identifier, 0, len(matches))
	for _, c := range matches {
		collections = append(collections, c.Identifier)
	}
	return FindPackageResult{Package: pkg, Collections: collections}, nil
}

func (q *queryEngine) findPackageFTS(ctx context.Context, byKey map[string]collection.Collection, identity collection.PackageIdentity) ([]collection.Collection, error) {
	db, err := q.gw.DB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT collection_id_blob_base64, repository_url FROM fts_packages WHERE id = ?`, string(identity))
	if err != nil {
		return nil, fmt.Errorf("index: find package: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var out []collection.Collection
	for rows.Next() {
		var b64, repoURL string
		if err := rows.Scan(&b64, &repoURL); err != nil {
			return nil, fmt.Errorf("index: scan find-package hit: %w", err)
		}
		id, err := collection.DecodeIdentifierBase64(b64)
		if err != nil {
			continue
		}
		key := id.DatabaseKey()
		if _, dup := seen[key]; dup {
			continue
		}
		c, ok := byKey[key]
		if !ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out, rows.Err()
}

func findPackageByIdentity(c collection.Collection, identity collection.PackageIdentity) (collection.Package, bool) {
	for _, pkg := range c.Packages {
		if pkg.Identity() == identity {
			return pkg, true
		}
	}
	return collection.Package{}, false
}

// searchTargets(ids?, query, type) returns every target name matching
// query under matchType, grouped back into package-level hits.
func (q *queryEngine) searchTargets(ctx context.Context, ids []collection.Identifier, query string, matchType TargetMatchType) ([]TargetSearchHit, error) {
	lowerQuery := strings.ToLower(query)

	candidates, err := q.list(ctx, ids)
	if err != nil {
		return nil, err
	}
	byKey := indexByKey(candidates)

	var byWord map[string][]trieValue

	switch {
	case q.gw.UseSearchIndices() && q.trieReady():
		byWord, err = q.searchTargetsTrie(lowerQuery, matchType)
	case q.gw.UseSearchIndices():
		byWord, err = q.searchTargetsFTS(ctx, lowerQuery, matchType)
	default:
		byWord = searchTargetsFallback(candidates, lowerQuery, matchType)
	}
	if err != nil {
		return nil, err
	}

	return buildTargetHits(byWord, byKey), nil
}

func (q *queryEngine) searchTargetsTrie(lowerQuery string, matchType TargetMatchType) (map[string][]trieValue, error) {
	out := make(map[string][]trieValue)

	var err error
	var found map[string]map[trie.Value]struct{}
	switch matchType {
	case ExactMatch:
		var vals map[trie.Value]struct{}
		vals, err = q.trie.Find(lowerQuery)
		if err == nil {
			found = map[string]map[trie.Value]struct{}{lowerQuery: vals}
		}
	default:
		found, err = q.trie.FindWithPrefix(lowerQuery)
	}
	if errors.Is(err, trie.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for word, vals := range found {
		list := make([]trieValue, 0, len(vals))
		for v := range vals {
			if tv, ok := v.(trieValue); ok {
				list = append(list, tv)
			}
		}
		out[word] = list
	}
	return out, nil
}

func (q *queryEngine) searchTargetsFTS(ctx context.Context, lowerQuery string, matchType TargetMatchType) (map[string][]trieValue, error) {
	db, err := q.gw.DB(ctx)
	if err != nil {
		return nil, err
	}

	pattern := lowerQuery
	if matchType == Prefix {
		pattern = lowerQuery + "%"
	}

	rows, err := db.QueryContext(ctx, `SELECT collection_id_blob_base64, package_repository_url, name FROM fts_targets WHERE name LIKE ?`, pattern)
	if err != nil {
		return nil, fmt.Errorf("index: search targets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]trieValue)
	for rows.Next() {
		var b64, repoURL, name string
		if err := rows.Scan(&b64, &repoURL, &name); err != nil {
			return nil, fmt.Errorf("index: scan target fts hit: %w", err)
		}
		id, err := collection.DecodeIdentifierBase64(b64)
		if err != nil {
			continue
		}
		word := strings.ToLower(name)
		out[word] = append(out[word], trieValue{Collection: id, Package: collection.NewPackageIdentity(repoURL)})
	}
	return out, rows.Err()
}

func searchTargetsFallback(candidates []collection.Collection, lowerQuery string, matchType TargetMatchType) map[string][]trieValue {
	out := make(map[string][]trieValue)
	for _, c := range candidates {
		for _, pkg := range c.Packages {
			for _, name := range pkg.UnionTargetNames() {
				lowerName := strings.ToLower(name)
				matched := lowerName == lowerQuery
				if matchType == Prefix {
					matched = strings.HasPrefix(lowerName, lowerQuery)
				}
				if !matched {
					continue
				}
				out[lowerName] = append(out[lowerName], trieValue{Collection: c.Identifier, Package: pkg.Identity()})
			}
		}
	}
	return out
}

func buildTargetHits(byWord map[string][]trieValue, byKey map[string]collection.Collection) []TargetSearchHit {
	words := make([]string, 0, len(byWord))
	for w := range byWord {
		words = append(words, w)
	}
	sort.Strings(words)

	hits := make([]TargetSearchHit, 0, len(words))
	for _, word := range words {
		type pkgKey struct{ identity collection.PackageIdentity }
		order := make([]pkgKey, 0)
		entries := make(map[pkgKey]*TargetPackageEntry)

		for _, tv := range byWord[word] {
			c, ok := byKey[tv.Collection.DatabaseKey()]
			if !ok {
				continue
			}
			pkg, ok := findPackageByIdentity(c, tv.Package)
			if !ok {
				continue
			}
			k := pkgKey{identity: tv.Package}
			entry, ok := entries[k]
			if !ok {
				entry = &TargetPackageEntry{Repository: pkg.Repository, Summary: pkg.Summary}
				entries[k] = entry
				order = append(order, k)
			}
			entry.Collections = appendIdentifierUnique(entry.Collections, c.Identifier)
			for _, v := range pkg.Versions {
				if !versionHasTargetWord(v, word) {
					continue
				}
				entry.Versions = appendVersionUnique(entry.Versions, v)
			}
		}

		packages := make([]TargetPackageEntry, 0, len(order))
		for _, k := range order {
			entry := entries[k]
			sort.SliceStable(entry.Versions, func(i, j int) bool {
				return compareVersions(entry.Versions[i].Version, entry.Versions[j].Version) > 0
			})
			packages = append(packages, *entry)
		}
		hits = append(hits, TargetSearchHit{Target: word, Packages: packages})
	}
	return hits
}

func versionHasTargetWord(v collection.Version, lowerWord string) bool {
	for _, t := range v.Targets {
		if strings.ToLower(t.Name) == lowerWord {
			return true
		}
	}
	return false
}

func appendVersionUnique(versions []collection.Version, v collection.Version) []collection.Version {
	for _, existing := range versions {
		if existing.Version == v.Version {
			return versions
		}
	}
	return append(versions, v)
}

func appendIdentifierUnique(ids []collection.Identifier, id collection.Identifier) []collection.Identifier {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func indexByKey(collections []collection.Collection) map[string]collection.Collection {
	out := make(map[string]collection.Collection, len(collections))
	for _, c := range collections {
		out[c.Identifier.DatabaseKey()] = c
	}
	return out
}
