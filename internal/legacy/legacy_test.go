package legacy

import (
	"testing"

	"github.com/zephyraoss/poppy-index/internal/collection"
)

const sampleManifest = `
PackageIdentifier: Example.Tool
PackageVersion: 1.2.3
PackageName: Example Tool
Publisher: Example Inc
ShortDescription: does a thing
Tags:
  - cli
  - utility
`

func TestParseLegacyManifest(t *testing.T) {
	m, err := ParseLegacyManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseLegacyManifest: %v", err)
	}
	if m.PackageIdentifier != "Example.Tool" {
		t.Errorf("PackageIdentifier = %q", m.PackageIdentifier)
	}
	if m.PackageVersion != "1.2.3" {
		t.Errorf("PackageVersion = %q", m.PackageVersion)
	}
	if len(m.Tags) != 2 || m.Tags[0] != "cli" || m.Tags[1] != "utility" {
		t.Errorf("Tags = %v", m.Tags)
	}
}

func TestParseLegacyManifestRequiresIdentifier(t *testing.T) {
	_, err := ParseLegacyManifest([]byte("PackageVersion: 1.0.0\n"))
	if err == nil {
		t.Fatal("expected error for missing PackageIdentifier")
	}
}

func TestToPackageSynthesizesRepository(t *testing.T) {
	m := Manifest{PackageIdentifier: "Example.Tool", PackageVersion: "1.0.0", PackageName: "Example Tool"}
	pkg := m.ToPackage()

	if pkg.Repository.URL != "legacy://Example.Tool" {
		t.Errorf("Repository.URL = %q", pkg.Repository.URL)
	}
	if len(pkg.Versions) != 1 || pkg.Versions[0].Version != "1.0.0" {
		t.Errorf("Versions = %+v", pkg.Versions)
	}
}

func TestMergeIntoAppendsVersionsForExistingPackage(t *testing.T) {
	existing := collection.Collection{
		Packages: []collection.Package{
			{
				Reference: collection.NewPackageReference("legacy://Example.Tool"),
				Versions:  []collection.Version{{Version: "1.0.0"}},
			},
		},
	}

	merged := MergeInto(existing, []Manifest{
		{PackageIdentifier: "Example.Tool", PackageVersion: "2.0.0"},
		{PackageIdentifier: "Other.Tool", PackageVersion: "1.0.0"},
	})

	if len(merged.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(merged.Packages))
	}
	if len(merged.Packages[0].Versions) != 2 {
		t.Errorf("expected 2 versions merged into existing package, got %d", len(merged.Packages[0].Versions))
	}
}
