// Package fs implements the local filesystem side of a transfer: temp files next to the
// target, atomic replace preserving ownership and mode, and optional xattr metadata.
package fs

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"github.com/larrabee/s3file/storage"
	"github.com/pkg/xattr"
)

const (
	tempFileSuffixLen = 8
	tempFilePerm      = 0600
	metaXattrName     = "user.s3file.meta"
)

// TempPrefix return name prefix of temp files created for target name.
func TempPrefix(name string) string {
	if name == "" {
		name = "s3file"
	}
	return "." + filepath.Base(name) + ".temp."
}

// CreateTemp create new temp file in dir, named after the target file name.
// Empty dir mean default temp directory.
func CreateTemp(dir, name string) (*os.File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:tempFileSuffixLen]
	path := filepath.Join(dir, TempPrefix(name)+suffix)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, tempFilePerm)
}

// SweepTemp remove temp files of target name left in dir by interrupted runs.
// Returns number of removed files.
func SweepTemp(dir, name string) (int, error) {
	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	prefix := TempPrefix(name)
	removed := 0
	for _, n := range names {
		if !isTempOf(n, prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, n)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		storage.Log.Debugf("Removed stale temp file: %s", filepath.Join(dir, n))
		removed++
	}
	return removed, nil
}

// isTempOf report whether n is prefix followed by exactly the random hex suffix of CreateTemp.
// Temp files of a target named "a.temp.x" must not match the prefix of target "a".
func isTempOf(n, prefix string) bool {
	if !strings.HasPrefix(n, prefix) {
		return false
	}
	suffix := n[len(prefix):]
	return len(suffix) == tempFileSuffixLen && strings.Trim(suffix, "0123456789abcdef") == ""
}

// Replace atomically move tmpPath to dest.
// When dest exists its owner, group and mode are copied to the new file first,
// otherwise the new file gets perm.
func Replace(tmpPath, dest string, perm os.FileMode) error {
	info, err := os.Stat(dest)
	switch {
	case err == nil:
		if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
			return err
		}
		if err := copyOwner(tmpPath, info); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		if err := os.Chmod(tmpPath, perm); err != nil {
			return err
		}
	default:
		return err
	}

	return os.Rename(tmpPath, dest)
}

// WriteMeta store v as JSON in extended attribute of the file.
func WriteMeta(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return xattr.Set(path, metaXattrName, data)
}

// ReadMeta load JSON metadata written by WriteMeta into v.
// Returns false if file has no metadata.
func ReadMeta(path string, v interface{}) (bool, error) {
	data, err := xattr.Get(path, metaXattrName)
	if err != nil {
		var xErr *xattr.Error
		if errors.As(err, &xErr) && isNoXattrData(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// XattrSupported report whether extended attributes can be used on this platform.
func XattrSupported() bool {
	return isXattrSupported()
}
