// Package collection defines the package-collection data model persisted
// and searched by the index: Collection, Package, Version, Target, Product,
// and the identifiers used to key them.
package collection

// Collection is the unit of persistence: a bundle of package metadata
// fetched from a single source.
type Collection struct {
	Identifier      Identifier `json:"identifier"`
	Source          Source     `json:"source"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Keywords        []string   `json:"keywords,omitempty"`
	Packages        []Package  `json:"packages"`
	CreatedAt       Time       `json:"createdAt"`
	LastProcessedAt Time       `json:"lastProcessedAt"`
}

// SourceType enumerates where a Collection's packages came from.
type SourceType string

// JSONSource is currently the only supported source type.
const JSONSource SourceType = "json"

// Source describes where a Collection was fetched from.
type Source struct {
	Type SourceType `json:"type"`
	URL  string     `json:"url"`
}

// Repository is the canonical locator of a Package.
type Repository struct {
	URL string `json:"url"`
}

// Package is metadata for one source repository. Summary and Keywords
// fall back to the parent Collection's Description/Keywords for search
// purposes when the package itself leaves them empty — see
// EffectiveSummary and EffectiveKeywords.
type Package struct {
	Reference  PackageReference `json:"reference"`
	Repository Repository       `json:"repository"`
	Summary    string           `json:"summary,omitempty"`
	ReadmeURL  string           `json:"readmeURL,omitempty"`
	Keywords   []string         `json:"keywords,omitempty"`
	Versions   []Version        `json:"versions"`
}

// EffectiveSummary returns p.Summary, or parent.Description when p.Summary
// is empty.
func (p Package) EffectiveSummary(parent Collection) string {
	if p.Summary != "" {
		return p.Summary
	}
	return parent.Description
}

// EffectiveKeywords returns p.Keywords, or parent.Keywords when p declares
// none of its own.
func (p Package) EffectiveKeywords(parent Collection) []string {
	if len(p.Keywords) > 0 {
		return p.Keywords
	}
	return parent.Keywords
}

// Target is a named compilation unit inside a package version.
type Target struct {
	Name       string `json:"name"`
	ModuleName string `json:"moduleName"`
}

// Product is a buildable artifact assembled from one or more Targets.
type Product struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	TargetNames []string `json:"targetNames"`
}

// Version is one released state of a package.
type Version struct {
	Version            string   `json:"version"`
	PackageName        string   `json:"packageName"`
	ToolsVersion       string   `json:"toolsVersion"`
	VerifiedPlatforms  []string `json:"verifiedPlatforms,omitempty"`
	VerifiedSwiftVers  []string `json:"verifiedSwiftVersions,omitempty"`
	License            string   `json:"license,omitempty"`
	Targets            []Target `json:"targets"`
	Products           []Product `json:"products"`
}

// TargetNames returns the set of distinct target names declared across
// this version's targets, in first-seen order.
func (v Version) TargetNames() []string {
	seen := make(map[string]struct{}, len(v.Targets))
	out := make([]string, 0, len(v.Targets))
	for _, t := range v.Targets {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t.Name)
	}
	return out
}

// UnionTargetNames returns the distinct target names across all of a
// package's versions, in first-seen order.
func (p Package) UnionTargetNames() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range p.Versions {
		for _, name := range v.TargetNames() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
