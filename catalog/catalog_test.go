package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	c := New(DefaultPath(t.TempDir()))
	entries, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, ok, err := c.Get("/etc/app.conf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAndMatches(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "nested")
	c := New(DefaultPath(dir))

	require.NoError(t, c.Set("/etc/app.conf", Entry{ETag: "abc", LocalMD5: "def"}))
	require.NoError(t, c.Set("/etc/other.conf", Entry{ETag: "123", LocalMD5: "456"}))
	require.NoError(t, c.Set("/etc/app.conf", Entry{ETag: "abc2", LocalMD5: "def2"}))

	e, ok, err := c.Get("/etc/app.conf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Entry{ETag: "abc2", LocalMD5: "def2"}, e)

	match, err := c.Matches("/etc/app.conf", `"abc2"`, "DEF2")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = c.Matches("/etc/app.conf", "abc", "def2")
	require.NoError(t, err)
	assert.False(t, match)

	match, err = c.Matches("/etc/missing", "abc", "def")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFileSchema(t *testing.T) {
	c := New(DefaultPath(t.TempDir()))
	require.NoError(t, c.Set("/srv/file", Entry{ETag: "e", LocalMD5: "m"}))

	data, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	var raw map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, map[string]map[string]string{"/srv/file": {"etag": "e", "local_md5": "m"}}, raw)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(c.Path()), ".*temp*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCorruptCatalogIsEmpty(t *testing.T) {
	path := DefaultPath(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	c := New(path)

	entries, err := c.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, c.Set("/a", Entry{ETag: "1", LocalMD5: "2"}))
	e, ok, err := c.Get("/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", e.ETag)
}

func TestConcurrentSetSameCatalog(t *testing.T) {
	c := New(DefaultPath(t.TempDir()))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Set(fmt.Sprintf("/file/%d", i), Entry{ETag: "e", LocalMD5: "m"}))
		}(i)
	}
	wg.Wait()

	entries, err := c.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestRelativePathsShareEntry(t *testing.T) {
	c := New(DefaultPath(t.TempDir()))
	require.NoError(t, c.Set("conf/app", Entry{ETag: "e", LocalMD5: "m"}))

	abs, err := filepath.Abs("conf/app")
	require.NoError(t, err)
	for _, p := range []string{"./conf/app", "conf//app", "conf/../conf/app", abs} {
		_, ok, err := c.Get(p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	entries, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]Entry{abs: {ETag: "e", LocalMD5: "m"}}, entries)
	assert.Equal(t, abs, Key("./conf/app"))
}
