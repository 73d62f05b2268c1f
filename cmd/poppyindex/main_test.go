package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLegacyManifestsWalksYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), "PackageIdentifier: Foo.Bar\nPackageVersion: \"1.0\"\n")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "nested", "b.yml"), "PackageIdentifier: Nested.Pkg\nPackageVersion: \"2.0\"\n")
	writeFile(t, filepath.Join(dir, "ignore.txt"), "not a manifest")

	manifests, err := loadLegacyManifests(dir)
	if err != nil {
		t.Fatalf("loadLegacyManifests: %v", err)
	}
	if len(manifests) != 2 {
		t.Fatalf("got %d manifests, want 2: %+v", len(manifests), manifests)
	}

	ids := map[string]bool{}
	for _, m := range manifests {
		ids[m.PackageIdentifier] = true
	}
	if !ids["Foo.Bar"] || !ids["Nested.Pkg"] {
		t.Fatalf("missing expected identifiers, got %+v", manifests)
	}
}

func TestLoadLegacyManifestsRejectsMissingIdentifier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "PackageVersion: \"1.0\"\n")

	if _, err := loadLegacyManifests(dir); err == nil {
		t.Fatal("expected error for manifest missing PackageIdentifier")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
