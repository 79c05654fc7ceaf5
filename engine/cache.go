package engine

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gnolang/tlex/lexer"
)

const resultCacheFile = "scan_cache.gob"

type fileMetadata struct {
	Hash         string
	LastModified int64
}

type cacheEntry struct {
	Metadata    fileMetadata
	Fingerprint string
	Tokens      []lexer.Token
	LexErr      *lexer.LexicalError
	CreatedAt   time.Time
}

// ResultCache keeps scan results on disk, one entry per input file. An
// entry is valid while the file content, its modification time and the
// lexer fingerprint are unchanged and the entry is younger than the
// maximum age.
type ResultCache struct {
	CacheDir string
	entries  map[string]cacheEntry
	mutex    sync.Mutex
	maxAge   time.Duration
	dirty    bool
}

// OpenResultCache loads the cache stored in dir, creating dir if needed.
// A maxAge of zero or less keeps entries until the file or lexer changes.
func OpenResultCache(dir string, maxAge time.Duration) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &ResultCache{
		CacheDir: dir,
		entries:  make(map[string]cacheEntry),
		maxAge:   maxAge,
	}
	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return cache, nil
}

func (c *ResultCache) load() error {
	file, err := os.Open(filepath.Join(c.CacheDir, resultCacheFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

func (c *ResultCache) save() error {
	file, err := os.Create(filepath.Join(c.CacheDir, resultCacheFile))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	c.dirty = false
	return nil
}

// Get returns the cached result of scanning filename with the lexer
// identified by fingerprint. Stale entries are dropped.
func (c *ResultCache) Get(filename, fingerprint string) (Result, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return Result{}, false
	}
	if c.isEntryInvalid(filename, fingerprint, entry) {
		delete(c.entries, filename)
		c.dirty = true
		return Result{}, false
	}

	res := Result{Path: filename, Tokens: entry.Tokens, Cached: true}
	if entry.LexErr != nil {
		res.Err = entry.LexErr
	}
	return res, true
}

// Set records res for filename. Only successful scans and lexical errors
// are cached; other failures are ignored.
func (c *ResultCache) Set(filename, fingerprint string, res Result) error {
	entry := cacheEntry{
		Fingerprint: fingerprint,
		Tokens:      res.Tokens,
		CreatedAt:   time.Now(),
	}
	if res.Err != nil {
		var lexErr *lexer.LexicalError
		if !errors.As(res.Err, &lexErr) {
			return nil
		}
		entry.LexErr = lexErr
	}

	metadata, err := getFileMetadata(filename)
	if err != nil {
		return fmt.Errorf("failed to get file metadata: %w", err)
	}
	entry.Metadata = metadata

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[filename] = entry
	c.dirty = true
	return nil
}

// Flush writes pending changes to disk.
func (c *ResultCache) Flush() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.dirty {
		return nil
	}
	return c.save()
}

func (c *ResultCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

func (c *ResultCache) SetMaxAge(duration time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.maxAge = duration
}

func (c *ResultCache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]cacheEntry)
	return c.save()
}

func (c *ResultCache) isEntryInvalid(filename, fingerprint string, entry cacheEntry) bool {
	if entry.Fingerprint != fingerprint {
		return true
	}
	// too old
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}

	currentMetadata, err := getFileMetadata(filename)
	return err != nil || currentMetadata != entry.Metadata
}

func getFileMetadata(filename string) (fileMetadata, error) {
	file, err := os.Open(filename)
	if err != nil {
		return fileMetadata{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fileMetadata{}, fmt.Errorf("failed to calculate hash: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return fileMetadata{}, fmt.Errorf("failed to get file info: %w", err)
	}

	return fileMetadata{
		Hash:         hex.EncodeToString(hash.Sum(nil)),
		LastModified: info.ModTime().UnixNano(),
	}, nil
}
