// Package legacy upgrades a single pre-existing YAML package manifest
// into a collection.Package, so a manifest tree indexed by an older,
// non-JSON pipeline can be folded into a synthesized Collection during
// migration. It is a one-way, best-effort shim, not a wire format the
// core ever reads or writes.
//
// Grounded on zephyraoss-poppy-pkgs/internal/indexer.parseManifest: same
// field set (PackageIdentifier, PackageVersion, PackageName, Tags, ...),
// same yaml.v3 decode-into-map-then-extract approach.
package legacy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zephyraoss/poppy-index/internal/collection"
)

// Manifest is one decoded legacy YAML manifest, matching the field names
// the older WinGet-style manifests used.
type Manifest struct {
	PackageIdentifier string
	PackageVersion    string
	PackageName       string
	Publisher         string
	ShortDescription  string
	Tags              []string
}

// ParseLegacyManifest decodes raw as a legacy manifest and reports its
// fields. It returns an error if PackageIdentifier is absent, since that
// is the field every downstream consumer keys on.
func ParseLegacyManifest(raw []byte) (Manifest, error) {
	var body map[string]any
	if err := yaml.Unmarshal(raw, &body); err != nil {
		return Manifest{}, fmt.Errorf("legacy: decode manifest: %w", err)
	}

	m := Manifest{
		PackageIdentifier: getString(body, "PackageIdentifier"),
		PackageVersion:    getString(body, "PackageVersion"),
		PackageName:       getString(body, "PackageName"),
		Publisher:         getString(body, "Publisher"),
		ShortDescription:  getString(body, "ShortDescription"),
		Tags:              getStringList(body, "Tags"),
	}
	if m.PackageIdentifier == "" {
		return Manifest{}, fmt.Errorf("legacy: manifest missing PackageIdentifier")
	}
	return m, nil
}

// ToPackage upgrades a legacy manifest into a collection.Package. The
// manifest's PackageIdentifier becomes the synthesized repository URL
// (there is no real repository to point at), and its single version
// becomes the package's only Version entry.
func (m Manifest) ToPackage() collection.Package {
	repoURL := "legacy://" + m.PackageIdentifier
	return collection.Package{
		Reference:  collection.NewPackageReference(repoURL),
		Repository: collection.Repository{URL: repoURL},
		Summary:    m.ShortDescription,
		Keywords:   m.Tags,
		Versions: []collection.Version{
			{
				Version:     m.PackageVersion,
				PackageName: firstNonEmpty(m.PackageName, m.PackageIdentifier),
			},
		},
	}
}

// MergeInto folds every legacy manifest's package into an existing
// collection, keyed by PackageIdentifier: manifests sharing an identifier
// contribute additional Versions to the same Package rather than
// duplicate entries.
func MergeInto(c collection.Collection, manifests []Manifest) collection.Collection {
	byIdentifier := make(map[string]int, len(c.Packages))
	for i, pkg := range c.Packages {
		byIdentifier[string(pkg.Identity())] = i
	}

	for _, m := range manifests {
		pkg := m.ToPackage()
		identity := string(pkg.Identity())
		if idx, ok := byIdentifier[identity]; ok {
			c.Packages[idx].Versions = append(c.Packages[idx].Versions, pkg.Versions...)
			continue
		}
		byIdentifier[identity] = len(c.Packages)
		c.Packages = append(c.Packages, pkg)
	}
	return c
}

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func getStringList(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
