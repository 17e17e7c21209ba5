// Package storage provides the types shared by the S3 transfer engine: object locations,
// digest sets, the error taxonomy and the package logger.
package storage

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log implement Logrus logger for debug logging.
var Log = logrus.New()

// Well known S3 response headers.
const (
	HeaderETag             = "ETag"
	HeaderContentLength    = "Content-Length"
	HeaderLocation         = "Location"
	HeaderBucketRegion     = "X-Amz-Bucket-Region"
	HeaderDigest           = "X-Amz-Meta-Digest"
	HeaderSSE              = "X-Amz-Server-Side-Encryption"
	HeaderSSECustomerAlgo  = "X-Amz-Server-Side-Encryption-Customer-Algorithm"
	HeaderSecurityToken    = "X-Amz-Security-Token"
	HeaderAmzDate          = "X-Amz-Date"
	HeaderAmzContentSha256 = "X-Amz-Content-Sha256"
	HeaderErrorCode        = "X-Amz-Error-Code"
	SSEAlgorithmKMS        = "aws:kms"
	DigestMD5              = "md5"
	DigestSHA256           = "sha256"
)

// Location points to a single object in a bucket.
//
// Path is the escaped object path, always starting with "/" (see NormalizePath).
// When URL is empty the endpoint is resolved from Bucket and Region.
// RegionExplicit marks a Region set by the caller, it is never corrected from responses.
// A discovered or empty Region may be switched once to the region S3 reports for the bucket.
type Location struct {
	Bucket         string
	Region         string
	RegionExplicit bool
	URL            string
	Path           string
}

// Digests maps a digest name (md5, sha256, ...) to its lower-case hex value.
type Digests map[string]string

// MD5 return md5 digest or empty string.
func (d Digests) MD5() string {
	return d[DigestMD5]
}

// SHA256 return sha256 digest or empty string.
func (d Digests) SHA256() string {
	return d[DigestSHA256]
}

// Object contain metadata of remote S3 object received with HEAD or GET request.
type Object struct {
	Location      Location
	ETag          string
	Digests       Digests
	ContentLength int64
	Header        http.Header
}

// HasDigestHeader report whether the response carried the custom digest metadata header.
func (o *Object) HasDigestHeader() bool {
	return o.Header != nil && o.Header.Get(HeaderDigest) != ""
}

// Encrypted report whether the object uses SSE-C or SSE-KMS, in which case ETag is not an md5.
func (o *Object) Encrypted() bool {
	if o.Header == nil {
		return false
	}
	if o.Header.Get(HeaderSSECustomerAlgo) != "" {
		return true
	}
	return strings.EqualFold(o.Header.Get(HeaderSSE), SSEAlgorithmKMS)
}

// NewObject build object metadata from response headers.
func NewObject(loc Location, header http.Header, contentLength int64) *Object {
	etag := CleanEtag(header.Get(HeaderETag))
	return &Object{
		Location:      loc,
		ETag:          etag,
		Digests:       ParseDigests(etag, header.Get(HeaderDigest)),
		ContentLength: contentLength,
		Header:        header,
	}
}
