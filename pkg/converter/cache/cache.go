// Package cache remembers line-ending measurements between runs so unchanged
// files do not have to be read again.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

const (
	// DefaultCacheFormat specifies the default serialization format.
	DefaultCacheFormat = "gob"
	CacheFormatGob     = "gob"
	CacheFormatJSON    = "json"
)

// devVersion matches any tool version.
const devVersion = "dev"

// ErrCacheLoad indicates the cache index file exists but could not be opened.
// Corrupt or outdated files are not errors; they load as an empty index.
var ErrCacheLoad = errors.New("failed to load cache index")

// ErrCachePersist indicates an error occurred while persisting the cache index file.
var ErrCachePersist = errors.New("failed to persist cache index")

// CacheEntry is the stored measurement of a single file.
// A hit requires size, modification time and config hash to match.
type CacheEntry struct {
	Size          int64     `json:"size"`
	ModTime       time.Time `json:"modTime"`
	ConfigHash    string    `json:"configHash"`
	CRLF          uint64    `json:"crlf"`
	LF            uint64    `json:"lf"`
	SchemaVersion string    `json:"schemaVersion"`
	ToolVersion   string    `json:"toolVersion"`
}

// CacheFileHeader is written at the start of every cache file and checked on Load.
type CacheFileHeader struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonCacheFile struct {
	Header CacheFileHeader       `json:"header"`
	Index  map[string]CacheEntry `json:"index"`
}

// FileCacheManager keeps the index in memory and persists it to a single file.
// Check and Update are safe for concurrent use by workers.
type FileCacheManager struct {
	index         map[string]CacheEntry
	mu            sync.RWMutex
	logger        *slog.Logger
	schemaVersion string
	toolVersion   string
	format        string
}

// NewFileCacheManager creates a file-based cache manager. Unknown formats fall back to gob.
func NewFileCacheManager(loggerHandler slog.Handler, schemaVersion, toolVersion, cacheFormat string) *FileCacheManager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format := strings.ToLower(cacheFormat)
	if format != CacheFormatJSON && format != CacheFormatGob {
		format = DefaultCacheFormat
	}
	logger := slog.New(loggerHandler).With(
		slog.String("component", "cacheManager"),
		slog.String("format", format),
	)
	if toolVersion == "" {
		toolVersion = devVersion
	}
	return &FileCacheManager{
		index:         make(map[string]CacheEntry),
		logger:        logger,
		schemaVersion: schemaVersion,
		toolVersion:   toolVersion,
		format:        format,
	}
}

// Format returns the serialization format in use.
func (c *FileCacheManager) Format() string { return c.format }

// Len returns the number of entries in the in-memory index.
func (c *FileCacheManager) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

func (c *FileCacheManager) versionsCompatible(schema, tool string) bool {
	if schema != c.schemaVersion {
		return false
	}
	return c.toolVersion == devVersion || tool == devVersion || tool == c.toolVersion
}

// Load replaces the in-memory index with the contents of cachePath.
// A missing, empty, corrupt or version-mismatched file yields an empty index and no error.
func (c *FileCacheManager) Load(cachePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]CacheEntry)

	file, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("Cache file not found, starting with empty index", "path", cachePath)
			return nil
		}
		c.logger.Error("Critical cache load error", "path", cachePath, "error", err.Error())
		return fmt.Errorf("%w: failed to open cache file '%s': %w", ErrCacheLoad, cachePath, err)
	}
	defer file.Close()

	var header CacheFileHeader
	var loaded map[string]CacheEntry
	var decodeErr error
	if c.format == CacheFormatJSON {
		var data jsonCacheFile
		if decodeErr = json.NewDecoder(file).Decode(&data); decodeErr == nil {
			header, loaded = data.Header, data.Index
		}
	} else {
		dec := gob.NewDecoder(file)
		if decodeErr = dec.Decode(&header); decodeErr == nil {
			decodeErr = dec.Decode(&loaded)
		}
	}
	if decodeErr != nil {
		c.logger.Warn("Failed to decode cache file, treating as miss", "path", cachePath, "error", decodeErr.Error())
		return nil
	}
	if !c.versionsCompatible(header.SchemaVersion, header.ToolVersion) {
		c.logger.Warn("Cache file version mismatch, invalidating cache",
			"path", cachePath,
			"file_schema", header.SchemaVersion, "expected_schema", c.schemaVersion,
			"file_tool", header.ToolVersion, "expected_tool", c.toolVersion)
		return nil
	}
	if loaded != nil {
		c.index = loaded
	}
	c.logger.Debug("Cache loaded", "path", cachePath, "entries", len(c.index))
	return nil
}

// Check returns the stored measurement for filePath when the entry is still fresh.
func (c *FileCacheManager) Check(filePath string, size int64, modTime time.Time, configHash string) (lineending.Stats, bool) {
	c.mu.RLock()
	entry, found := c.index[filePath]
	c.mu.RUnlock()

	switch {
	case !found:
		c.logger.Debug("Cache check: miss (not found)", slog.String("path", filePath))
		return lineending.Stats{}, false
	case !c.versionsCompatible(entry.SchemaVersion, entry.ToolVersion):
		c.logger.Debug("Cache check: miss (version)", slog.String("path", filePath))
		return lineending.Stats{}, false
	case entry.Size != size || !entry.ModTime.Equal(modTime):
		c.logger.Debug("Cache check: miss (file changed)", slog.String("path", filePath),
			slog.Int64("size", size), slog.Int64("entry_size", entry.Size),
			slog.Time("modTime", modTime), slog.Time("entry_modTime", entry.ModTime))
		return lineending.Stats{}, false
	case entry.ConfigHash != configHash:
		c.logger.Debug("Cache check: miss (config changed)", slog.String("path", filePath))
		return lineending.Stats{}, false
	}
	c.logger.Debug("Cache check: hit", slog.String("path", filePath))
	return lineending.Stats{CRLF: entry.CRLF, LF: entry.LF}, true
}

// Update adds or replaces the entry for filePath.
func (c *FileCacheManager) Update(filePath string, size int64, modTime time.Time, configHash string, stats lineending.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[filePath] = CacheEntry{
		Size:          size,
		ModTime:       modTime,
		ConfigHash:    configHash,
		CRLF:          stats.CRLF,
		LF:            stats.LF,
		SchemaVersion: c.schemaVersion,
		ToolVersion:   c.toolVersion,
	}
	return nil
}

// Persist writes the index to cachePath atomically through a temp file and rename.
// An empty index removes the file instead.
func (c *FileCacheManager) Persist(cachePath string) error {
	c.mu.RLock()
	indexCopy := make(map[string]CacheEntry, len(c.index))
	for k, v := range c.index {
		indexCopy[k] = v
	}
	c.mu.RUnlock()

	if len(indexCopy) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", "path", cachePath, "error", err.Error())
		}
		return nil
	}

	cacheDir := filepath.Dir(cachePath)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to ensure cache directory exists '%s': %w", ErrCachePersist, cacheDir, err)
	}
	tempFile, err := os.CreateTemp(cacheDir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary cache file in '%s': %w", ErrCachePersist, cacheDir, err)
	}
	tempFilePath := tempFile.Name()
	closed, renamed := false, false
	defer func() {
		if !closed {
			_ = tempFile.Close()
		}
		if !renamed {
			_ = os.Remove(tempFilePath)
		}
	}()

	header := CacheFileHeader{SchemaVersion: c.schemaVersion, ToolVersion: c.toolVersion}
	var encodeErr error
	if c.format == CacheFormatJSON {
		enc := json.NewEncoder(tempFile)
		enc.SetIndent("", "  ")
		encodeErr = enc.Encode(jsonCacheFile{Header: header, Index: indexCopy})
	} else {
		enc := gob.NewEncoder(tempFile)
		if encodeErr = enc.Encode(header); encodeErr == nil {
			encodeErr = enc.Encode(indexCopy)
		}
	}
	if encodeErr != nil {
		return fmt.Errorf("%w: failed to encode cache (%s): %w", ErrCachePersist, c.format, encodeErr)
	}

	closed = true
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary cache file '%s': %w", ErrCachePersist, tempFilePath, err)
	}
	if err := os.Rename(tempFilePath, cachePath); err != nil {
		return fmt.Errorf("%w: failed to rename temporary cache file to '%s': %w", ErrCachePersist, cachePath, err)
	}
	renamed = true

	c.logger.Debug("Cache persisted", "path", cachePath, "entries", len(indexCopy))
	return nil
}
