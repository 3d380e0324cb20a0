// Package templatecache is an on-disk, SHA-256-keyed cache for fetched
// template bytes, reworked from the original Rust cache.rs (bincode +
// chrono) into Go idioms: encoding/gob for the on-disk envelope and
// time.Time for the timestamp.
package templatecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/benedoc-inc/fillpdf/internal/fetch"
)

// Entry is one cached template's bytes plus the response headers needed to
// revalidate it later.
type Entry struct {
	Bytes        []byte
	CachedAt     time.Time
	ETag         string
	LastModified string
}

// Cache stores Entry values as gob-encoded files under dir.
type Cache struct {
	dir string
}

// New creates a Cache rooted at dir, creating it if necessary.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Key derives a cache key from a fetch request: the SHA-256 of the
// canonical JSON serialization of (url, headers, body), per spec.
func Key(cfg fetch.RequestConfig) string {
	canonical := struct {
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers,omitempty"`
		Body    []byte            `json:"body,omitempty"`
	}{URL: cfg.URL, Headers: cfg.Headers, Body: cfg.Body}

	b, _ := json.Marshal(canonical)
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".cache")
}

func (c *Cache) lockPath(key string) string {
	return filepath.Join(c.dir, key+"."+uuid.NewString()+".lock")
}

// Get returns the cached entry for key if present and younger than ttl.
func (c *Cache) Get(key string, ttl time.Duration) (*Entry, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}

	if time.Since(entry.CachedAt) > ttl {
		return nil, false
	}
	return &entry, true
}

// Set writes entry under key via a temp-file-then-rename, so concurrent
// fill invocations sharing this cache directory never observe a torn
// write. Each call creates its own uuid-named lock file and writes to a
// temp file named after it, so concurrent writers never share a temp file;
// the lock does not exclude other writers (the last rename wins), and reads
// never block on it.
func (c *Cache) Set(key string, entry Entry) error {
	lock := c.lockPath(key)
	lockFile, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to acquire cache write lock: %w", err)
	}
	defer func() {
		lockFile.Close()
		os.Remove(lock)
	}()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tmpPath := lock + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path(key)); err != nil {
		return fmt.Errorf("failed to finalize cache file: %w", err)
	}
	return nil
}

// Revalidate issues a conditional request for key's cached entry and, on a
// 304 response, refreshes only its CachedAt timestamp (the bytes are
// unchanged, so there's nothing else to update). A network failure during
// revalidation is non-fatal: the caller should keep using the stale entry
// (spec §7), so this returns the error for the caller to log as a warning
// rather than discarding the cache entry itself.
func (c *Cache) Revalidate(ctx context.Context, key string, cfg fetch.RequestConfig, entry *Entry) error {
	fresh, err := fetch.Revalidate(ctx, cfg, entry.ETag, entry.LastModified)
	if err != nil {
		return err
	}
	if fresh {
		entry.CachedAt = time.Now()
		return c.Set(key, *entry)
	}
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove cache entry %s: %w", e.Name(), err)
		}
	}
	return nil
}
