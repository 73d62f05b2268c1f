package collection

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// IdentifierCase discriminates the tagged variants of Identifier. Only
// Json is presently defined, but the field exists so the on-disk shape
// (`{_case, url}`) can grow new variants without breaking old rows.
type IdentifierCase string

// JSONIdentifier is the only Identifier variant in use: the collection's
// canonical URL, as fetched.
const JSONIdentifier IdentifierCase = "json"

// Identifier tags a Collection. Its database key (see DatabaseKey) is the
// primary-table primary key, and the base64 of its canonical JSON encoding
// is the collection_id_blob_base64 column in both FTS tables.
type Identifier struct {
	Case IdentifierCase
	URL  string
}

// NewJSONIdentifier builds the Json(url) variant.
func NewJSONIdentifier(url string) Identifier {
	return Identifier{Case: JSONIdentifier, URL: url}
}

type identifierWire struct {
	Case IdentifierCase `json:"_case"`
	URL  string         `json:"url"`
}

// MarshalJSON encodes the tagged variant as {_case, url}.
func (id Identifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(identifierWire{Case: id.Case, URL: id.URL})
}

// UnmarshalJSON decodes {_case, url}. Unknown cases are preserved as-is
// rather than rejected, so future variants round-trip through readers
// that don't understand them yet.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	var wire identifierWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Case == "" {
		return fmt.Errorf("collection identifier: missing _case")
	}
	id.Case = wire.Case
	id.URL = wire.URL
	return nil
}

// DatabaseKey is the primary-table TEXT PRIMARY KEY for this identifier:
// the URL in canonical string form. Canonicalization here is limited to
// the URL as given, since Collection sources are already-validated URLs
// by the time they reach the core.
func (id Identifier) DatabaseKey() string {
	return id.URL
}

// Base64 returns standard (non-URL-safe) base64 of the canonical JSON
// encoding of id, matching the encoder used for collection_id_blob_base64
// throughout the FTS tables. Every write and every read of that column
// MUST go through this function for lookups to succeed.
func (id Identifier) Base64() (string, error) {
	raw, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeIdentifierBase64 reverses Base64.
func DecodeIdentifierBase64(encoded string) (Identifier, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Identifier{}, err
	}
	var id Identifier
	if err := json.Unmarshal(raw, &id); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// PackageIdentity is a Package's identity, derived from its repository
// URL. Two packages whose repository URLs match case-insensitively (after
// trimming surrounding whitespace and a trailing slash) are the same
// package across collections.
type PackageIdentity string

// NewPackageIdentity derives an identity from a repository URL the same
// way on every call site, so identities computed at write time and at
// query time always agree.
func NewPackageIdentity(repositoryURL string) PackageIdentity {
	return PackageIdentity(strings.ToLower(strings.TrimSuffix(strings.TrimSpace(repositoryURL), "/")))
}

// PackageReference carries a package's identity. It is a struct rather
// than a bare PackageIdentity because that is the on-disk shape the
// engine expects when matching FTS hits back to their owning Package by
// comparing reference.identity.
type PackageReference struct {
	Identity PackageIdentity `json:"identity"`
}

// NewPackageReference derives a reference from a repository URL.
func NewPackageReference(repositoryURL string) PackageReference {
	return PackageReference{Identity: NewPackageIdentity(repositoryURL)}
}

// Identity returns the package's identity, preferring an explicitly set
// Reference and falling back to deriving one from the repository URL for
// callers that only populated Repository.
func (p Package) Identity() PackageIdentity {
	if p.Reference.Identity != "" {
		return p.Reference.Identity
	}
	return NewPackageIdentity(p.Repository.URL)
}
