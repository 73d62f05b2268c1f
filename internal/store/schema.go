package store

// Fixed schema: table and column names, FTS version and tokenizer are
// part of the external contract — do not rename or substitute FTS5 for
// FTS4 here; the capability probe in gateway.go is what tolerates FTS4
// being unavailable, not a schema swap.
const (
	createPrimaryTable = `CREATE TABLE IF NOT EXISTS package_collections(
    key   TEXT PRIMARY KEY NOT NULL,
    value BLOB NOT NULL);`

	createPackagesFTS = `CREATE VIRTUAL TABLE IF NOT EXISTS fts_packages USING fts4(
    collection_id_blob_base64, id, version, name, repository_url,
    summary, keywords, products, targets,
    notindexed=collection_id_blob_base64, tokenize=unicode61);`

	createTargetsFTS = `CREATE VIRTUAL TABLE IF NOT EXISTS fts_targets USING fts4(
    collection_id_blob_base64, package_repository_url, name,
    notindexed=collection_id_blob_base64, tokenize=unicode61);`

	setWAL = `PRAGMA journal_mode=WAL;`
)
