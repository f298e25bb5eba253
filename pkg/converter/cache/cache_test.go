package cache_test

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter/cache"
	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newManager(t *testing.T, format, version string) *cache.FileCacheManager {
	t.Helper()
	return cache.NewFileCacheManager(nil, "1.0", version, format)
}

func TestNewFileCacheManager_FormatFallback(t *testing.T) {
	assert.Equal(t, cache.CacheFormatGob, newManager(t, "xml", "v1").Format())
	assert.Equal(t, cache.CacheFormatJSON, newManager(t, "JSON", "v1").Format())
	assert.Equal(t, cache.CacheFormatGob, newManager(t, "", "v1").Format())
}

func TestFileCacheManager_CheckAndUpdate(t *testing.T) {
	m := newManager(t, cache.CacheFormatGob, "v1")
	stats := lineending.Stats{CRLF: 3, LF: 1}

	_, hit := m.Check("a.txt", 10, modTime, "cfg")
	assert.False(t, hit)

	require.NoError(t, m.Update("a.txt", 10, modTime, "cfg", stats))

	got, hit := m.Check("a.txt", 10, modTime, "cfg")
	assert.True(t, hit)
	assert.Equal(t, stats, got)

	_, hit = m.Check("a.txt", 11, modTime, "cfg")
	assert.False(t, hit, "size change must miss")
	_, hit = m.Check("a.txt", 10, modTime.Add(time.Second), "cfg")
	assert.False(t, hit, "modtime change must miss")
	_, hit = m.Check("a.txt", 10, modTime, "other")
	assert.False(t, hit, "config change must miss")
}

func TestFileCacheManager_PersistAndLoad(t *testing.T) {
	for _, format := range []string{cache.CacheFormatGob, cache.CacheFormatJSON} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".crlf.cache")
			stats := lineending.Stats{CRLF: 2, LF: 5}

			writer := newManager(t, format, "v1")
			require.NoError(t, writer.Update("dir/b.txt", 42, modTime, "cfg", stats))
			require.NoError(t, writer.Persist(path))
			assert.FileExists(t, path)

			reader := newManager(t, format, "v1")
			require.NoError(t, reader.Load(path))
			assert.Equal(t, 1, reader.Len())
			got, hit := reader.Check("dir/b.txt", 42, modTime, "cfg")
			assert.True(t, hit)
			assert.Equal(t, stats, got)

			matches, err := filepath.Glob(path + ".tmp-*")
			require.NoError(t, err)
			assert.Empty(t, matches, "temp files must not be left behind")
		})
	}
}

func TestFileCacheManager_LoadMissingFile(t *testing.T) {
	m := newManager(t, cache.CacheFormatGob, "v1")
	require.NoError(t, m.Load(filepath.Join(t.TempDir(), "nope")))
	assert.Zero(t, m.Len())
}

func TestFileCacheManager_LoadCorruptFileIsMiss(t *testing.T) {
	for _, format := range []string{cache.CacheFormatGob, cache.CacheFormatJSON} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache")
			require.NoError(t, os.WriteFile(path, []byte("definitely not a cache"), 0o644))

			m := newManager(t, format, "v1")
			require.NoError(t, m.Load(path))
			assert.Zero(t, m.Len())
		})
	}
}

func TestFileCacheManager_LoadFormatMismatchIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")
	w := newManager(t, cache.CacheFormatJSON, "v1")
	require.NoError(t, w.Update("a", 1, modTime, "c", lineending.Stats{LF: 1}))
	require.NoError(t, w.Persist(path))

	r := newManager(t, cache.CacheFormatGob, "v1")
	require.NoError(t, r.Load(path))
	assert.Zero(t, r.Len())
}

func TestFileCacheManager_VersionCompatibility(t *testing.T) {
	tests := []struct {
		name        string
		wroteWith   string
		readWith    string
		schemaRead  string
		expectEntry bool
	}{
		{name: "same version", wroteWith: "v1", readWith: "v1", schemaRead: "1.0", expectEntry: true},
		{name: "different version", wroteWith: "v1", readWith: "v2", schemaRead: "1.0", expectEntry: false},
		{name: "dev reader", wroteWith: "v1", readWith: "dev", schemaRead: "1.0", expectEntry: true},
		{name: "dev writer", wroteWith: "dev", readWith: "v2", schemaRead: "1.0", expectEntry: true},
		{name: "schema mismatch", wroteWith: "v1", readWith: "v1", schemaRead: "2.0", expectEntry: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache")
			w := cache.NewFileCacheManager(nil, "1.0", tt.wroteWith, cache.CacheFormatGob)
			require.NoError(t, w.Update("a", 1, modTime, "c", lineending.Stats{LF: 1}))
			require.NoError(t, w.Persist(path))

			r := cache.NewFileCacheManager(nil, tt.schemaRead, tt.readWith, cache.CacheFormatGob)
			require.NoError(t, r.Load(path))
			_, hit := r.Check("a", 1, modTime, "c")
			assert.Equal(t, tt.expectEntry, hit)
		})
	}
}

func TestFileCacheManager_PersistEmptyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	m := newManager(t, cache.CacheFormatGob, "v1")
	require.NoError(t, m.Persist(path))
	assert.NoFileExists(t, path)
}

func TestFileCacheManager_PersistCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache")
	m := newManager(t, cache.CacheFormatJSON, "v1")
	require.NoError(t, m.Update("a", 1, modTime, "c", lineending.Stats{}))
	require.NoError(t, m.Persist(path))
	assert.FileExists(t, path)
}

func TestFileCacheManager_ConcurrentUpdates(t *testing.T) {
	m := newManager(t, cache.CacheFormatGob, "v1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "file" + strconv.Itoa(i)
			_ = m.Update(name, int64(i), modTime, "c", lineending.Stats{LF: uint64(i)})
			_, _ = m.Check(name, int64(i), modTime, "c")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, m.Len())
}
