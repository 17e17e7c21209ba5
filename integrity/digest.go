// Package integrity computes file digests in bounded memory, validates downloaded objects
// against remote digests and decrypts AES-256-CBC payloads.
package integrity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/larrabee/s3file/storage"
)

// BlockSize is the size of blocks files are read with.
const BlockSize = 1024 * 1000

// FileMD5 return hex md5 of file content.
func FileMD5(path string) (string, error) {
	d, err := FileDigests(path, storage.DigestMD5)
	if err != nil {
		return "", err
	}
	return d.MD5(), nil
}

// FileDigests compute requested digests (md5, sha256) in a single pass over the file.
func FileDigests(path string, names ...string) (storage.Digests, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hashes := make(map[string]hash.Hash, len(names))
	writers := make([]io.Writer, 0, len(names))
	for _, name := range names {
		var h hash.Hash
		switch name {
		case storage.DigestMD5:
			h = md5.New()
		case storage.DigestSHA256:
			h = sha256.New()
		default:
			continue
		}
		hashes[name] = h
		writers = append(writers, h)
	}

	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), readerOnly{f}, buf); err != nil {
		return nil, err
	}

	digests := make(storage.Digests, len(hashes))
	for name, h := range hashes {
		digests[name] = hex.EncodeToString(h.Sum(nil))
	}
	return digests, nil
}

// VerifyMD5 check file md5 against checksum, *storage.ChecksumMismatchError if they differ.
func VerifyMD5(checksum, path string) error {
	return verify(storage.DigestMD5, checksum, path)
}

// VerifySHA256 check file sha256 against checksum, *storage.ChecksumMismatchError if they differ.
func VerifySHA256(checksum, path string) error {
	return verify(storage.DigestSHA256, checksum, path)
}

func verify(name, checksum, path string) error {
	d, err := FileDigests(path, name)
	if err != nil {
		return err
	}
	expected := strings.TrimSpace(checksum)
	storage.Log.Debugf("%s provided %s", name, expected)
	storage.Log.Debugf("%s of local file %s is %s", name, path, d[name])
	if expected == "" || !strings.EqualFold(d[name], expected) {
		return &storage.ChecksumMismatchError{Algorithm: name, Expected: expected, Actual: d[name]}
	}
	return nil
}

// readerOnly hides WriterTo of *os.File so CopyBuffer uses the fixed size buffer.
type readerOnly struct {
	io.Reader
}
