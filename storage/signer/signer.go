// Package signer implements authentication of S3 REST requests.
//
// Two schemes are supported: the legacy header based scheme (V2) and the scoped,
// region bound scheme (V4). New picks the scheme from the region: requests
// without a region are signed with V2, requests with a region with V4.
package signer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/larrabee/s3file/storage"
)

// Credentials used to sign requests.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Anonymous disables signing, used for public buckets.
	Anonymous bool
}

// Signer adds authentication headers to request.
//
// bucket and path are the bucket name and the escaped object path, they are
// used to build the canonical resource for schemes that do not sign the URL.
type Signer interface {
	Sign(req *http.Request, bucket, path string, now time.Time) error
}

// New return Signer for given credentials and region.
func New(creds Credentials, region string) (Signer, error) {
	if creds.Anonymous {
		return Anonymous{}, nil
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: access key id and secret access key must be set", storage.ErrInvalidCredentials)
	}
	if region == "" {
		return &V2{Credentials: creds}, nil
	}
	return &V4{Credentials: creds, Region: region}, nil
}

// Anonymous signer leaves request untouched.
type Anonymous struct{}

// Sign implements Signer.
func (Anonymous) Sign(*http.Request, string, string, time.Time) error {
	return nil
}
