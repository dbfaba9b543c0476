package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"kestrel/internal/layout"
	"kestrel/internal/module"
	"kestrel/internal/version"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest identifies a cached module.
type Digest [32]byte

// String renders the digest as hex.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// DiskCache stores encoded modules keyed by the digest of their source
// document. A nil *DiskCache is a valid, always-missing cache.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the on-disk record of one compiled document.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema  uint16
	Path    string
	Module  []byte
	Created int64 // unix seconds
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/app, falling back to
// ~/.cache/app.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

// Open opens a cache rooted at dir, creating it if needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key hashes the compiler identity, the target and the document.
func (c *DiskCache) Key(target layout.Target, doc []byte) Digest {
	if c == nil {
		return Digest{}
	}
	h := sha256.New()
	h.Write([]byte(version.CacheKey()))
	h.Write([]byte{0})
	h.Write([]byte(target.Name + "/" + strconv.Itoa(target.SlotSize)))
	h.Write([]byte{0})
	h.Write(doc)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "mods", key.String()+".mp")
}

// Lookup returns the cached module for key. Entries from another schema or
// entries that no longer decode are treated as misses.
func (c *DiskCache) Lookup(key Digest) (*module.Module, []byte, bool) {
	var p DiskPayload
	ok, err := c.Get(key, &p)
	if err != nil || !ok || p.Schema != diskCacheSchemaVersion {
		return nil, nil, false
	}
	m, err := module.Decode(p.Module)
	if err != nil {
		return nil, nil, false
	}
	return m, p.Module, true
}

// Store records the encoded module for key.
func (c *DiskCache) Store(key Digest, path string, data []byte) error {
	if c == nil {
		return nil
	}
	return c.Put(key, &DiskPayload{
		Schema:  diskCacheSchemaVersion,
		Path:    path,
		Module:  data,
		Created: time.Now().Unix(),
	})
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
