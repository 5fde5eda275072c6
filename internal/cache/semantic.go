package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leefowlercu/memorizer/internal/providers"
)

// SemanticCache stores provider analysis results on disk, keyed by document
// content hash. Entries carry the cache version in their filename, so a
// version bump simply stops matching old files.
type SemanticCache struct {
	config SemanticCacheConfig
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewSemanticCache creates a semantic cache rooted at config.BaseDir.
func NewSemanticCache(config SemanticCacheConfig) (*SemanticCache, error) {
	if config.Version <= 0 {
		config.Version = 1
	}

	if err := ensureDir(filepath.Join(config.BaseDir, "semantic")); err != nil {
		return nil, fmt.Errorf("creating semantic cache directory; %w", err)
	}

	return &SemanticCache{
		config: config,
		logger: slog.Default().With("component", "semantic-cache"),
	}, nil
}

// NewSemanticCacheWithDefaults creates a semantic cache under the default
// cache base directory.
func NewSemanticCacheWithDefaults() (*SemanticCache, error) {
	return NewSemanticCache(SemanticCacheConfig{BaseDir: BaseDirDefault(), Version: 1})
}

// Get returns the cached analysis for contentHash, or ErrCacheMiss. A
// corrupt entry is deleted and reported as a miss.
func (c *SemanticCache) Get(contentHash string) (*providers.SemanticResult, error) {
	c.mu.RLock()
	path := c.entryPath(contentHash)
	data, err := os.ReadFile(path)
	c.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("reading semantic cache entry; %w", err)
	}

	var result providers.SemanticResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("deleting corrupt semantic cache entry", "hash", contentHash, "error", err)
		c.mu.Lock()
		_ = os.Remove(path)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}

	return &result, nil
}

// Set stores result under contentHash.
func (c *SemanticCache) Set(contentHash string, result *providers.SemanticResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(contentHash)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating semantic cache directory; %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding semantic result; %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing semantic cache entry; %w", err)
	}

	return nil
}

// Delete removes the entry for contentHash, if present.
func (c *SemanticCache) Delete(contentHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.entryPath(contentHash)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting semantic cache entry; %w", err)
	}
	return nil
}

// Has reports whether an entry exists for contentHash.
func (c *SemanticCache) Has(contentHash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, err := os.Stat(c.entryPath(contentHash))
	return err == nil
}

// Clear removes every entry.
func (c *SemanticCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Join(c.config.BaseDir, "semantic")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing semantic cache; %w", err)
	}
	return ensureDir(dir)
}

// Stats reports entry count and total size.
func (c *SemanticCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsOf(filepath.Join(c.config.BaseDir, "semantic"))
}

// Version returns the cache version.
func (c *SemanticCache) Version() int {
	return c.config.Version
}

// BaseDir returns the base cache directory.
func (c *SemanticCache) BaseDir() string {
	return c.config.BaseDir
}

func (c *SemanticCache) entryPath(contentHash string) string {
	dir := filepath.Join(c.config.BaseDir, "semantic")
	return hashToPath(dir, contentHash, fmt.Sprintf("-v%d.json", c.config.Version))
}
