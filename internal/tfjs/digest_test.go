package tfjs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArtifactDigests(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "group1-shard1of1.bin"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "assets"), 0755); err != nil {
		t.Fatal(err)
	}

	a, err := ListArtifacts(dir)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}

	digests, err := a.Digests(context.Background())
	if err != nil {
		t.Fatalf("Digests() error = %v", err)
	}

	if len(digests) != 2 {
		t.Fatalf("len(digests) = %d, want 2 (directories skipped)", len(digests))
	}
	const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := digests["group1-shard1of1.bin"].Encoded(); got != emptySHA256 {
		t.Errorf("empty shard digest = %s, want %s", got, emptySHA256)
	}
	if got := digests["model.json"].Algorithm().String(); got != "sha256" {
		t.Errorf("algorithm = %s, want sha256", got)
	}
}

func TestArtifactDigestsCancelled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := ListArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Digests(ctx); err == nil {
		t.Error("Digests() with cancelled context should fail")
	}
}
