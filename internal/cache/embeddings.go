package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/leefowlercu/memorizer/internal/providers"
)

// embMagic marks embedding cache files so a stray file is rejected rather
// than decoded into garbage.
const embMagic = 0x4D5A5631 // "MZV1"

// EmbeddingsCache stores embedding vectors on disk in a compact binary
// format, scoped per provider and model so vectors of different
// dimensionality never mix.
type EmbeddingsCache struct {
	config EmbeddingsCacheConfig
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewEmbeddingsCache creates an embeddings cache rooted at config.BaseDir.
func NewEmbeddingsCache(config EmbeddingsCacheConfig) (*EmbeddingsCache, error) {
	if config.Version <= 0 {
		config.Version = 1
	}

	c := &EmbeddingsCache{
		config: config,
		logger: slog.Default().With("component", "embeddings-cache"),
	}

	if err := ensureDir(c.cacheDir()); err != nil {
		return nil, fmt.Errorf("creating embeddings cache directory; %w", err)
	}

	return c, nil
}

// NewEmbeddingsCacheWithDefaults creates an embeddings cache under the
// default cache base directory.
func NewEmbeddingsCacheWithDefaults(provider, model string) (*EmbeddingsCache, error) {
	return NewEmbeddingsCache(EmbeddingsCacheConfig{
		BaseDir:  BaseDirDefault(),
		Version:  1,
		Provider: provider,
		Model:    model,
	})
}

// Get returns the cached vector for (contentHash, chunkIndex), or
// ErrCacheMiss. A corrupt entry is deleted and reported as a miss.
func (c *EmbeddingsCache) Get(contentHash string, chunkIndex int) (*providers.EmbeddingsResult, error) {
	c.mu.RLock()
	path := c.entryPath(contentHash, chunkIndex)
	data, err := os.ReadFile(path)
	c.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("reading embeddings cache entry; %w", err)
	}

	result, err := decodeEmbedding(data)
	if err != nil {
		c.logger.Warn("deleting corrupt embeddings cache entry",
			"hash", contentHash, "chunk", chunkIndex, "error", err)
		c.mu.Lock()
		_ = os.Remove(path)
		c.mu.Unlock()
		return nil, ErrCacheMiss
	}

	result.ProviderName = c.config.Provider
	result.ModelName = c.config.Model
	return result, nil
}

// Set stores result under (contentHash, chunkIndex).
func (c *EmbeddingsCache) Set(contentHash string, chunkIndex int, result *providers.EmbeddingsResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.entryPath(contentHash, chunkIndex)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating embeddings cache directory; %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating embeddings cache entry; %w", err)
	}
	defer file.Close()

	return encodeEmbedding(file, result)
}

// Delete removes the entry for (contentHash, chunkIndex), if present.
func (c *EmbeddingsCache) Delete(contentHash string, chunkIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.entryPath(contentHash, chunkIndex)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting embeddings cache entry; %w", err)
	}
	return nil
}

// Has reports whether an entry exists for (contentHash, chunkIndex).
func (c *EmbeddingsCache) Has(contentHash string, chunkIndex int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, err := os.Stat(c.entryPath(contentHash, chunkIndex))
	return err == nil
}

// Clear removes every entry for this provider/model pair.
func (c *EmbeddingsCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.cacheDir()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing embeddings cache; %w", err)
	}
	return ensureDir(dir)
}

// Stats reports entry count and total size for this provider/model pair.
func (c *EmbeddingsCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statsOf(c.cacheDir())
}

// Version returns the cache version.
func (c *EmbeddingsCache) Version() int {
	return c.config.Version
}

// BaseDir returns the base cache directory.
func (c *EmbeddingsCache) BaseDir() string {
	return c.config.BaseDir
}

// Provider returns the provider name this cache is scoped to.
func (c *EmbeddingsCache) Provider() string {
	return c.config.Provider
}

// Model returns the model name this cache is scoped to.
func (c *EmbeddingsCache) Model() string {
	return c.config.Model
}

func (c *EmbeddingsCache) cacheDir() string {
	return filepath.Join(c.config.BaseDir, "embeddings", c.config.Provider, c.config.Model)
}

func (c *EmbeddingsCache) entryPath(contentHash string, chunkIndex int) string {
	suffix := fmt.Sprintf("-chunk-%d-v%d.emb", chunkIndex, c.config.Version)
	return hashToPath(c.cacheDir(), contentHash, suffix)
}

// embHeader is the fixed-size prefix of each binary entry.
type embHeader struct {
	Magic      uint32
	Version    uint16
	Dimensions uint16
	Timestamp  int64
}

// encodeEmbedding writes the header and vector in little-endian binary.
func encodeEmbedding(w io.Writer, result *providers.EmbeddingsResult) error {
	header := embHeader{
		Magic:      embMagic,
		Version:    uint16(result.Version),
		Dimensions: uint16(len(result.Embedding)),
		Timestamp:  result.GeneratedAt.Unix(),
	}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("writing embedding header; %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, result.Embedding); err != nil {
		return fmt.Errorf("writing embedding vector; %w", err)
	}

	return nil
}

// decodeEmbedding parses one binary entry.
func decodeEmbedding(data []byte) (*providers.EmbeddingsResult, error) {
	const headerSize = 4 + 2 + 2 + 8

	if len(data) < headerSize {
		return nil, ErrCorruptCache
	}

	header := embHeader{
		Magic:      binary.LittleEndian.Uint32(data[0:4]),
		Version:    binary.LittleEndian.Uint16(data[4:6]),
		Dimensions: binary.LittleEndian.Uint16(data[6:8]),
		Timestamp:  int64(binary.LittleEndian.Uint64(data[8:16])),
	}
	if header.Magic != embMagic {
		return nil, ErrCorruptCache
	}

	want := headerSize + int(header.Dimensions)*4
	if len(data) != want {
		return nil, ErrCorruptCache
	}

	embedding := make([]float32, header.Dimensions)
	if err := binary.Read(bytes.NewReader(data[headerSize:]), binary.LittleEndian, embedding); err != nil {
		return nil, ErrCorruptCache
	}

	return &providers.EmbeddingsResult{
		Embedding:   embedding,
		Dimensions:  int(header.Dimensions),
		GeneratedAt: time.Unix(header.Timestamp, 0),
		Version:     int(header.Version),
	}, nil
}
