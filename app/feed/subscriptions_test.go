package feed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSubscriptionCacheLoadValidFile(t *testing.T) {
	tempDir := t.TempDir()

	content := `
subscriptions:
  - tag: "Fluff"
    destination: "https://hooks.example.com/a"
    owner: "user-1"
    exclude:
      - "Major Character Death"
      - "Angst"
  - tag: "https://archiveofourown.org/tags/12345/feed.atom"
    destination: "https://hooks.example.com/b"
`

	path := filepath.Join(tempDir, "subscriptions.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cache := NewSubscriptionCache(path)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetSubscriptionCount() != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", cache.GetSubscriptionCount())
	}

	subs := cache.GetSubscriptions()
	if subs[0].Tag != "Fluff" {
		t.Errorf("Expected tag 'Fluff', got '%s'", subs[0].Tag)
	}
	if subs[0].Owner != "user-1" {
		t.Errorf("Expected owner 'user-1', got '%s'", subs[0].Owner)
	}
	if len(subs[0].Exclude) != 2 {
		t.Errorf("Expected 2 excluded tags, got %d", len(subs[0].Exclude))
	}
	if subs[1].Tag != "12345" {
		t.Errorf("Expected feed URL to be normalized to '12345', got '%s'", subs[1].Tag)
	}
}

func TestSubscriptionCacheMissingFile(t *testing.T) {
	cache := NewSubscriptionCache(filepath.Join(t.TempDir(), "missing.yml"))

	if err := cache.Run(); err != nil {
		t.Errorf("Missing file should not be an error, got: %v", err)
	}
	if cache.GetSubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions, got %d", cache.GetSubscriptionCount())
	}
}

func TestSubscriptionCacheEmptyPath(t *testing.T) {
	cache := NewSubscriptionCache("")

	if err := cache.Run(); err != nil {
		t.Errorf("Empty path should not be an error, got: %v", err)
	}
}

func TestSubscriptionCacheInvalidTag(t *testing.T) {
	tempDir := t.TempDir()

	content := `
subscriptions:
  - tag: "not a tag!"
    destination: "https://hooks.example.com/a"
`

	path := filepath.Join(tempDir, "subscriptions.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := NewSubscriptionCache(path).Run()
	if !errors.Is(err, ErrInvalidTagID) {
		t.Errorf("Expected ErrInvalidTagID, got: %v", err)
	}
}

func TestSubscriptionCacheMissingDestination(t *testing.T) {
	tempDir := t.TempDir()

	content := `
subscriptions:
  - tag: "Fluff"
`

	path := filepath.Join(tempDir, "subscriptions.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewSubscriptionCache(path).Run(); err == nil {
		t.Error("Expected error for subscription without destination")
	}
}

func TestSubscriptionCacheInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()

	path := filepath.Join(tempDir, "subscriptions.yml")
	if err := os.WriteFile(path, []byte("subscriptions: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewSubscriptionCache(path).Run(); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
