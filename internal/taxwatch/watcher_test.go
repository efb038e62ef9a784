package taxwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hireloop/talentsearch/internal/graph"
)

func writeTaxonomy(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0644); err != nil {
		t.Fatalf("write taxonomy: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename taxonomy: %v", err)
	}
}

func taxonomyV(version int) string {
	return fmt.Sprintf(`{"version": %d, "skills": [{"id": "s1", "name": "Go"}], "roles": [], "aliases": [], "roleRequirements": [], "skillRelations": []}`, version)
}

func waitForVersion(t *testing.T, store graph.Store, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		v, err := store.ActiveVersion(context.Background())
		if err == nil && v == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	v, _ := store.ActiveVersion(context.Background())
	t.Fatalf("active version = %d, want %d", v, want)
}

func TestReloadSyncsNewVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	writeTaxonomy(t, path, taxonomyV(2))

	store := graph.NewMemoryStore()
	w := New(path, store, nil)
	w.Reload(context.Background())

	v, err := store.ActiveVersion(context.Background())
	if err != nil {
		t.Fatalf("active version: %v", err)
	}
	if v != 2 {
		t.Fatalf("active version = %d, want 2", v)
	}
}

func TestReloadSkipsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	store := graph.NewMemoryStore()
	w := New(path, store, nil)

	writeTaxonomy(t, path, taxonomyV(1))
	w.Reload(context.Background())

	// Alias pointing at an unknown id must not replace the active version.
	writeTaxonomy(t, path, `{"version": 2, "skills": [], "roles": [], "aliases": [{"id": "a1", "alias": "golang", "ofId": "nope"}]}`)
	w.Reload(context.Background())

	v, _ := store.ActiveVersion(context.Background())
	if v != 1 {
		t.Fatalf("active version = %d, want 1 after invalid reload", v)
	}
}

func TestReloadSkipsStaleVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	store := graph.NewMemoryStore()
	w := New(path, store, nil)

	writeTaxonomy(t, path, taxonomyV(5))
	w.Reload(context.Background())

	writeTaxonomy(t, path, taxonomyV(5))
	w.Reload(context.Background())
	writeTaxonomy(t, path, taxonomyV(3))
	w.Reload(context.Background())

	v, _ := store.ActiveVersion(context.Background())
	if v != 5 {
		t.Fatalf("active version = %d, want 5", v)
	}
}

func TestReloadSkipsMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := graph.NewMemoryStore()
	w := New(filepath.Join(dir, "missing.json"), store, nil)
	w.Reload(context.Background())

	if _, err := store.ActiveVersion(context.Background()); err == nil {
		t.Fatal("expected no active version after missing file reload")
	}
}

func TestWatcherPicksUpAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	writeTaxonomy(t, path, taxonomyV(1))

	store := graph.NewMemoryStore()
	w := New(path, store, nil, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	writeTaxonomy(t, path, taxonomyV(2))
	waitForVersion(t, store, 2)

	writeTaxonomy(t, path, taxonomyV(3))
	waitForVersion(t, store, 3)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	writeTaxonomy(t, path, taxonomyV(1))

	store := graph.NewMemoryStore()
	w := New(path, store, nil, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	writeTaxonomy(t, filepath.Join(dir, "other.json"), taxonomyV(9))
	time.Sleep(100 * time.Millisecond)

	if _, err := store.ActiveVersion(context.Background()); err == nil {
		t.Fatal("sibling file write must not trigger a sync")
	}
}

func TestStartIdempotentAndStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.json")
	writeTaxonomy(t, path, taxonomyV(1))

	w := New(path, graph.NewMemoryStore(), nil)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	w.Stop()
	w.Stop()
}
