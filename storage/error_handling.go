package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// Error taxonomy of the transfer engine.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrNoCredentialsAvailable = errors.New("no credentials available")
	ErrRegionMismatch         = errors.New("bucket region mismatch")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrSizeMismatch           = errors.New("size mismatch")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
	ErrDecryptionFailed       = errors.New("decryption failed")
	ErrCatalogCorrupt         = errors.New("catalog corrupt")
)

// ObjectError add bucket and object path to an error.
type ObjectError struct {
	Op     string
	Bucket string
	Path   string
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s s3://%s%s: %s", e.Op, e.Bucket, e.Path, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// ResponseError is returned for non successful S3 responses.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
	// Region from x-amz-bucket-region header, if any.
	Region string
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("s3 responded with status %d (%s)", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Code != "" {
		msg += ", code: " + e.Code
	}
	if e.Message != "" {
		msg += ", message: " + e.Message
	}
	return msg
}

// RegionMismatchError is returned when the bucket lives in another region than the request was signed for.
type RegionMismatchError struct {
	Region   string
	Expected string
	Err      error
}

func (e *RegionMismatchError) Error() string {
	return fmt.Sprintf("bucket region mismatch: request region %q, bucket region %q: %s", e.Region, e.Expected, e.Err)
}

func (e *RegionMismatchError) Is(target error) bool {
	return target == ErrRegionMismatch
}

func (e *RegionMismatchError) Unwrap() error {
	return e.Err
}

// TransferError is returned when all transfer attempts failed.
type TransferError struct {
	Attempts uint
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed after %d attempts: %s", e.Attempts, e.Err)
}

func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// SizeMismatchError is returned when received bytes count differ from Content-Length.
type SizeMismatchError struct {
	Expected int64
	Received int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: Content-Length %d, received %d bytes", e.Expected, e.Received)
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// ChecksumMismatchError is returned when local digest differ from the expected one.
type ChecksumMismatchError struct {
	Algorithm string
	Expected  string
	Actual    string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s checksum mismatch: expected %s, got %s", e.Algorithm, e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// DecryptionError is returned when ciphertext can not be decrypted.
// WrongKey is set when the ciphertext is well formed but padding check failed,
// which almost always mean the key is wrong.
type DecryptionError struct {
	WrongKey bool
	Err      error
}

func (e *DecryptionError) Error() string {
	if e.WrongKey {
		return fmt.Sprintf("decryption failed (wrong key?): %s", e.Err)
	}
	return fmt.Sprintf("decryption failed: %s", e.Err)
}

func (e *DecryptionError) Is(target error) bool {
	return target == ErrDecryptionFailed
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// IsErrNotExist report whether err mean that object or file not found.
func IsErrNotExist(err error) bool {
	var rErr *ResponseError
	if errors.As(err, &rErr) {
		if rErr.StatusCode == http.StatusNotFound || rErr.Code == "NoSuchKey" || rErr.Code == "NoSuchBucket" {
			return true
		}
	}

	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	return false
}

// IsErrPermission report whether err mean that access was denied.
func IsErrPermission(err error) bool {
	var rErr *ResponseError
	if errors.As(err, &rErr) {
		if rErr.StatusCode == http.StatusForbidden || rErr.Code == "AccessDenied" {
			return true
		}
	}

	if errors.Is(err, os.ErrPermission) {
		return true
	}
	return false
}

// IsContextCanceled report whether err caused by canceled or expired context.
func IsContextCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsIntegrityErr report whether err is an integrity failure which must never be retried.
func IsIntegrityErr(err error) bool {
	return errors.Is(err, ErrSizeMismatch) || errors.Is(err, ErrChecksumMismatch) || errors.Is(err, ErrDecryptionFailed)
}
