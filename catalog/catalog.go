// Package catalog persists the last known good transfer of every managed file
// (remote ETag and local md5) as a single JSON object.
//
// The file is rewritten completely on every update and is not locked: two processes
// updating different entries at the same time race, and the last writer wins the whole
// file. Updates made through one Catalog value are serialized.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/fs"
)

// FileName of the catalog inside the cache directory.
const FileName = "s3_file_catalog.json"

const (
	dirPerm  = 0755
	filePerm = 0644
)

// Entry of a managed file.
type Entry struct {
	ETag     string `json:"etag"`
	LocalMD5 string `json:"local_md5"`
}

// Catalog maps local file path to its Entry.
type Catalog struct {
	path string
	mu   sync.Mutex
}

// DefaultPath return catalog path inside cacheDir.
func DefaultPath(cacheDir string) string {
	return filepath.Join(cacheDir, FileName)
}

// New return catalog stored at path.
func New(path string) *Catalog {
	return &Catalog{path: path}
}

// Path of the catalog file.
func (c *Catalog) Path() string {
	return c.path
}

// Load read all entries. Missing file is an empty catalog, so is a corrupt one.
func (c *Catalog) Load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	} else if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		storage.Log.Errorf("%s: %s: %s, treating as empty", storage.ErrCatalogCorrupt, c.path, err)
		return make(map[string]Entry), nil
	}
	return entries, nil
}

// Key return the catalog key of local path: absolute and cleaned, so "conf/app" and
// "./conf/app" share one entry.
func Key(localPath string) string {
	if abs, err := filepath.Abs(localPath); err == nil {
		return abs
	}
	return filepath.Clean(localPath)
}

// Get return entry for local path.
func (c *Catalog) Get(localPath string) (Entry, bool, error) {
	entries, err := c.Load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[Key(localPath)]
	return e, ok, nil
}

// Matches report whether the entry of local path has both given etag and local md5.
func (c *Catalog) Matches(localPath, etag, localMD5 string) (bool, error) {
	e, ok, err := c.Get(localPath)
	if err != nil || !ok {
		return false, err
	}
	storage.Log.Debugf("Catalog entry of %s: etag %s, local md5 %s", localPath, e.ETag, e.LocalMD5)
	return storage.CleanEtag(e.ETag) == storage.CleanEtag(etag) && strings.EqualFold(e.LocalMD5, localMD5), nil
}

// Set create or overwrite entry of local path and rewrite the catalog file.
func (c *Catalog) Set(localPath string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.Load()
	if err != nil {
		return err
	}
	entries[Key(localPath)] = e
	return c.save(entries)
}

func (c *Catalog) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	f, err := fs.CreateTemp(dir, FileName)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	if err := fs.Replace(f.Name(), c.path, filePerm); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return nil
}
