package integrity

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/fs"
)

const keySize = 32

var (
	errMalformedCiphertext = errors.New("ciphertext is not a multiple of the block size")
	errBadPadding          = errors.New("bad padding")
)

// DeriveKey return AES-256 key. Surrounding whitespace is stripped, keys that are not
// exactly 32 bytes long are replaced by their sha256.
func DeriveKey(key string) []byte {
	key = strings.TrimSpace(key)
	if len(key) == keySize {
		return []byte(key)
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// DecryptFile decrypt AES-256-CBC (zero IV, PKCS#7 padding) file at path into a new temp file
// in dir, named after target name, and return its path. Ciphertext is processed in blocks of BlockSize.
// On failure no temp file is left behind.
func DecryptFile(key, path, dir, name string) (string, error) {
	storage.Log.Debugf("Decrypting file: %s", path)
	block, err := aes.NewCipher(DeriveKey(key))
	if err != nil {
		return "", &storage.DecryptionError{Err: err}
	}
	mode := cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize))

	in, err := os.Open(path)
	if err != nil {
		return "", &storage.DecryptionError{Err: err}
	}
	defer in.Close()

	if name == "" {
		name = "decrypt"
	}
	out, err := fs.CreateTemp(dir, name)
	if err != nil {
		return "", &storage.DecryptionError{Err: err}
	}

	if err := decryptStream(mode, in, out); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", &storage.DecryptionError{Err: err}
	}
	return out.Name(), nil
}

func decryptStream(mode cipher.BlockMode, in io.Reader, out io.Writer) error {
	buf := make([]byte, BlockSize)
	var held []byte

	for {
		n, rErr := io.ReadFull(in, buf)
		if n%aes.BlockSize != 0 {
			return &storage.DecryptionError{Err: errMalformedCiphertext}
		}
		if n > 0 {
			chunk := buf[:n]
			mode.CryptBlocks(chunk, chunk)
			if held != nil {
				if _, err := out.Write(held); err != nil {
					return &storage.DecryptionError{Err: err}
				}
			}
			if _, err := out.Write(chunk[:n-aes.BlockSize]); err != nil {
				return &storage.DecryptionError{Err: err}
			}
			held = append(held[:0], chunk[n-aes.BlockSize:]...)
		}
		if rErr == io.EOF || rErr == io.ErrUnexpectedEOF {
			break
		}
		if rErr != nil {
			return &storage.DecryptionError{Err: rErr}
		}
	}

	if held == nil {
		return &storage.DecryptionError{Err: errMalformedCiphertext}
	}
	plain, err := unpad(held)
	if err != nil {
		return &storage.DecryptionError{WrongKey: true, Err: err}
	}
	if _, err := out.Write(plain); err != nil {
		return &storage.DecryptionError{Err: err}
	}
	return nil
}

// EncryptFile encrypt file at path into a new temp file in dir, the inverse of DecryptFile.
func EncryptFile(key, path, dir, name string) (string, error) {
	block, err := aes.NewCipher(DeriveKey(key))
	if err != nil {
		return "", err
	}
	mode := cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize))

	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	if name == "" {
		name = "encrypt"
	}
	out, err := fs.CreateTemp(dir, name)
	if err != nil {
		return "", err
	}

	if err := encryptStream(mode, in, out); err != nil {
		_ = out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}

func encryptStream(mode cipher.BlockMode, in io.Reader, out io.Writer) error {
	buf := make([]byte, BlockSize+aes.BlockSize)
	for {
		n, rErr := io.ReadFull(in, buf[:BlockSize])
		switch {
		case rErr == nil:
			mode.CryptBlocks(buf[:n], buf[:n])
			if _, err := out.Write(buf[:n]); err != nil {
				return err
			}
		case rErr == io.EOF || rErr == io.ErrUnexpectedEOF:
			chunk := pad(buf[:n])
			mode.CryptBlocks(chunk, chunk)
			_, err := out.Write(chunk)
			return err
		default:
			return rErr
		}
	}
}

// pad append PKCS#7 padding, data must have spare capacity for one block.
func pad(data []byte) []byte {
	p := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(p)}, p)...)
}

func unpad(block []byte) ([]byte, error) {
	if len(block) != aes.BlockSize {
		return nil, errBadPadding
	}
	p := int(block[len(block)-1])
	if p == 0 || p > aes.BlockSize {
		return nil, fmt.Errorf("%w: invalid length %d", errBadPadding, p)
	}
	for _, b := range block[len(block)-p:] {
		if int(b) != p {
			return nil, errBadPadding
		}
	}
	return block[:len(block)-p], nil
}
