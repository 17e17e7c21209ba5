package signer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/larrabee/s3file/storage"
)

const serviceName = "s3"

// V4 implements scoped, region bound S3 signing on top of the aws-sdk-go v4 signer.
type V4 struct {
	Credentials Credentials
	Region      string
}

// Sign implements Signer. bucket and path are not used, V4 signs the request URL.
func (s *V4) Sign(req *http.Request, _, _ string, now time.Time) error {
	bodyDigest, err := payloadDigest(req)
	if err != nil {
		return err
	}
	// a request that already carries Authorization is re-signed with the current time
	req.Header.Del("Authorization")
	req.Header.Set(storage.HeaderAmzContentSha256, bodyDigest)

	signer := v4.NewSigner(
		credentials.NewStaticCredentials(s.Credentials.AccessKeyID, s.Credentials.SecretAccessKey, s.Credentials.SessionToken),
		func(v *v4.Signer) {
			// path is escaped by storage.NormalizePath already
			v.DisableURIPathEscaping = true
			v.DisableRequestBodyOverwrite = true
		},
	)
	_, err = signer.Sign(req, nil, serviceName, s.Region, now.UTC())
	return err
}

func payloadDigest(req *http.Request) (string, error) {
	if v := req.Header.Get(storage.HeaderAmzContentSha256); v != "" {
		return v, nil
	}
	if req.Body == nil || req.Body == http.NoBody {
		return hexSHA256(nil), nil
	}
	if req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		req.Body = io.NopCloser(bytes.NewReader(data))
		return hexSHA256(data), nil
	}
	body, err := req.GetBody()
	if err != nil {
		return "", err
	}
	defer body.Close()
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
