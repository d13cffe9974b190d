package feed

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Subscription file types

type SubscriptionFile struct {
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

type SubscriptionConfig struct {
	Tag         string   `yaml:"tag"` // tag identifier or full feed URL
	Destination string   `yaml:"destination"`
	Owner       string   `yaml:"owner"`
	Exclude     []string `yaml:"exclude"`
}

// SubscriptionCache holds subscriptions declared in a YAML file. The file
// is optional; an empty path yields an empty cache.
type SubscriptionCache struct {
	path  string
	cache []SubscriptionConfig
	mu    sync.RWMutex
}

func NewSubscriptionCache(path string) *SubscriptionCache {
	return &SubscriptionCache{
		path: path,
	}
}

func (sc *SubscriptionCache) Run() error {
	if sc.path == "" {
		return nil
	}
	if _, err := os.Stat(sc.path); os.IsNotExist(err) {
		slog.Warn("Subscriptions file not found", "path", sc.path)
		return nil
	}

	subscriptions, err := sc.parseFile(sc.path)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", sc.path, err)
	}

	for i := range subscriptions {
		if err := sc.validateSubscription(&subscriptions[i]); err != nil {
			return fmt.Errorf("invalid subscription at index %d in %s: %w", i, sc.path, err)
		}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = subscriptions

	slog.Debug("Subscriptions loaded", "path", sc.path, "count", len(subscriptions))

	return nil
}

func (sc *SubscriptionCache) GetSubscriptions() []SubscriptionConfig {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return slices.Clone(sc.cache)
}

func (sc *SubscriptionCache) GetSubscriptionCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

func (sc *SubscriptionCache) parseFile(path string) ([]SubscriptionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file SubscriptionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return file.Subscriptions, nil
}

// validateSubscription normalizes the tag to a bare identifier.
func (sc *SubscriptionCache) validateSubscription(sub *SubscriptionConfig) error {
	tagID, err := ExtractTagID(sub.Tag)
	if err != nil {
		return err
	}
	sub.Tag = tagID

	if sub.Destination == "" {
		return fmt.Errorf("destination is required")
	}

	for i, name := range sub.Exclude {
		if name == "" {
			return fmt.Errorf("excluded tag at index %d is empty", i)
		}
	}

	return nil
}
