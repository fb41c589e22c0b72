package synth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxworks/voxsay/internal/logger"
)

func TestKeyDistinguishesVoices(t *testing.T) {
	if Key("alice", "hello") == Key("bob", "hello") {
		t.Error("same key for different voices")
	}
	if Key("", "hello") == Key("", "goodbye") {
		t.Error("same key for different text")
	}
	if Key("alice", "hello") != Key("alice", "hello") {
		t.Error("key is not deterministic")
	}
}

func TestCacheMemoryTier(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	c := NewCache("", false, log)

	key := Key("", "some prompt")
	if _, ok := c.Get(key); ok {
		t.Fatal("hit on empty cache")
	}

	c.Put(key, []byte("audio"))
	data, ok := c.Get(key)
	if !ok || string(data) != "audio" {
		t.Fatalf("Get = (%q, %v)", data, ok)
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestCacheDiskTier(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()
	key := Key("alice", "persisted prompt")

	writer := NewCache(dir, true, log)
	writer.Put(key, []byte("persisted audio"))

	if _, err := os.Stat(filepath.Join(dir, key+".wav")); err != nil {
		t.Fatalf("expected on-disk entry: %v", err)
	}

	// A fresh cache over the same dir warm-starts from disk.
	reader := NewCache(dir, false, log)
	data, ok := reader.Get(key)
	if !ok || string(data) != "persisted audio" {
		t.Fatalf("disk read = (%q, %v)", data, ok)
	}

	// Promotion: second Get must come from memory even if the file goes away.
	if err := os.Remove(filepath.Join(dir, key+".wav")); err != nil {
		t.Fatal(err)
	}
	if _, ok := reader.Get(key); !ok {
		t.Error("promoted entry lost")
	}
}

func TestCacheDiskWriteDisabled(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()
	key := Key("", "ephemeral")

	c := NewCache(dir, false, log)
	c.Put(key, []byte("x"))

	if _, err := os.Stat(filepath.Join(dir, key+".wav")); !os.IsNotExist(err) {
		t.Error("entry written to disk despite diskWrite=false")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}
