package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trakvc/trak/pkg/object"
	"github.com/zeebo/xxh3"
)

// statusCacheEntry memoizes the blob hash of a working-tree file. The
// entry is trusted while mtime and size are unchanged; after a stat
// mismatch the cheap xxh3 fingerprint decides whether the expensive
// SHA-256 blob hash must be recomputed.
type statusCacheEntry struct {
	ModTime     int64       `json:"mod_time"`
	Size        int64       `json:"size"`
	Fingerprint uint64      `json:"fingerprint"`
	BlobHash    object.Hash `json:"blob_hash"`
}

type statusCache struct {
	Entries map[string]*statusCacheEntry `json:"entries"`
	dirty   bool
}

func (r *Repo) statusCachePath() string {
	return filepath.Join(r.TrakDir, "status-cache")
}

// loadStatusCache reads the cache, degrading to an empty cache on any
// problem. The cache is purely an optimization; it is never authoritative.
func (r *Repo) loadStatusCache() *statusCache {
	c := &statusCache{Entries: make(map[string]*statusCacheEntry)}
	data, err := os.ReadFile(r.statusCachePath())
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, c); err != nil || c.Entries == nil {
		c.Entries = make(map[string]*statusCacheEntry)
	}
	return c
}

// save writes the cache back when it changed. Failures are ignored.
func (c *statusCache) save(r *Repo) {
	if !c.dirty {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	tmp, err := os.CreateTemp(r.TrakDir, ".status-cache-tmp-*")
	if err != nil {
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return
	}
	if err := os.Rename(tmpName, r.statusCachePath()); err != nil {
		os.Remove(tmpName)
	}
}

// blobHash returns the blob hash the file at path would get if staged now.
func (c *statusCache) blobHash(r *Repo, path string) (object.Hash, error) {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}

	if e, ok := c.Entries[path]; ok &&
		e.ModTime == info.ModTime().UnixNano() && e.Size == info.Size() {
		return e.BlobHash, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	fingerprint := xxh3.Hash(content)

	if e, ok := c.Entries[path]; ok && e.Fingerprint == fingerprint {
		// Content unchanged, only metadata drifted (touch, copy).
		e.ModTime = info.ModTime().UnixNano()
		e.Size = info.Size()
		c.dirty = true
		return e.BlobHash, nil
	}

	blobHash := object.HashObject(object.TypeBlob, content)
	c.Entries[path] = &statusCacheEntry{
		ModTime:     info.ModTime().UnixNano(),
		Size:        info.Size(),
		Fingerprint: fingerprint,
		BlobHash:    blobHash,
	}
	c.dirty = true
	return blobHash, nil
}
