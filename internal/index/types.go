package index

import "github.com/zephyraoss/poppy-index/internal/collection"

// PackageSearchHit groups a Package with every candidate collection it
// was found in, the shape searchPackages returns.
type PackageSearchHit struct {
	Package     collection.Package
	Collections []collection.Identifier
}

// FindPackageResult is findPackage's return shape: the Package value from
// the collection with the greatest LastProcessedAt among those
// containing the identity, plus every collection that contains it.
type FindPackageResult struct {
	Package     collection.Package
	Collections []collection.Identifier
}

// TargetMatchType selects exact or prefix matching for searchTargets.
type TargetMatchType int

const (
	// ExactMatch requires the target name to equal the query exactly
	// (case-insensitively).
	ExactMatch TargetMatchType = iota
	// Prefix requires the target name to start with the query
	// (case-insensitively).
	Prefix
)

// TargetPackageEntry is one package's contribution to a TargetSearchHit.
type TargetPackageEntry struct {
	Repository  collection.Repository
	Summary     string
	Versions    []collection.Version
	Collections []collection.Identifier
}

// TargetSearchHit is one matched target name and every package that
// declares it.
type TargetSearchHit struct {
	Target   string
	Packages []TargetPackageEntry
}
