package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/voxworks/voxsay/internal/logger"
)

// Cache is a thread-safe two-tier cache (memory + filesystem) for
// synthesized audio. Keys are sha256(voice + ":" + text), so prompts
// synthesized under different voice profiles never collide.
//
// The disk tier is always read when a directory is configured; writes to
// it are gated by diskWrite, which lets a run reuse earlier audio without
// growing the cache.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // key -> WAV bytes
	dir       string            // filesystem tier, empty = memory only
	diskWrite bool
	hits      int64
	misses    int64
	log       *logger.Logger
}

// NewCache creates a cache. An empty dir disables the disk tier.
func NewCache(dir string, diskWrite bool, log *logger.Logger) *Cache {
	c := &Cache{
		entries:   make(map[string][]byte),
		dir:       dir,
		diskWrite: diskWrite,
		log:       log.Named("cache"),
	}
	if dir != "" && diskWrite {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.log.Error("creating cache dir %s: %v", dir, err)
		}
	}
	return c
}

// Key derives the cache key for a voice/text pair. The voice component
// is the speaker name or reference wav path, or empty for the default
// voice.
func Key(voice, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + text))
	return hex.EncodeToString(h[:])
}

// Get returns cached audio and true, or nil and false. Disk hits are
// promoted to memory.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return data, true
	}

	if c.dir != "" {
		if data, err := os.ReadFile(c.path(key)); err == nil {
			c.mu.Lock()
			c.entries[key] = data
			c.hits++
			c.mu.Unlock()
			c.log.Debug("disk hit %s (%d bytes)", key[:12], len(data))
			return data, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio under the key. Always writes to memory; writes to
// disk only when enabled.
func (c *Cache) Put(key string, wav []byte) {
	c.mu.Lock()
	c.entries[key] = wav
	c.mu.Unlock()

	if c.dir != "" && c.diskWrite {
		if err := os.WriteFile(c.path(key), wav, 0o644); err != nil {
			c.log.Error("disk write %s: %v", key[:12], err)
		}
	}
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".wav")
}
