package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/larrabee/s3file/storage"
)

// V2 implements legacy header based S3 signing.
//
// String to sign: METHOD\n\n\n<date>\n[x-amz-security-token:<token>\n]/<bucket><path>
type V2 struct {
	Credentials Credentials
}

// Sign implements Signer.
func (s *V2) Sign(req *http.Request, bucket, path string, now time.Time) error {
	date := req.Header.Get("Date")
	if date == "" {
		date = now.UTC().Format(http.TimeFormat)
		req.Header.Set("Date", date)
	}
	if s.Credentials.SessionToken != "" {
		req.Header.Set(storage.HeaderSecurityToken, s.Credentials.SessionToken)
	}

	signature := s.signature(s.StringToSign(req.Method, date, bucket, path))
	req.Header.Set("Authorization", "AWS "+s.Credentials.AccessKeyID+":"+signature)
	return nil
}

// StringToSign build canonical string for the request.
func (s *V2) StringToSign(method, date, bucket, path string) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteString("\n\n\n")
	b.WriteString(date)
	b.WriteString("\n")
	if s.Credentials.SessionToken != "" {
		b.WriteString("x-amz-security-token:")
		b.WriteString(s.Credentials.SessionToken)
		b.WriteString("\n")
	}
	b.WriteString("/")
	b.WriteString(bucket)
	b.WriteString(path)
	return b.String()
}

func (s *V2) signature(stringToSign string) string {
	mac := hmac.New(sha1.New, []byte(s.Credentials.SecretAccessKey))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
