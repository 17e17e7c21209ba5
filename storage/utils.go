package storage

import (
	"strings"
)

// StrongEtag remove "W/" prefix from ETag.
// In some cases S3 return ETag with "W/" prefix which mean that it not strong ETag.
// For easier compare we remove this prefix.
func StrongEtag(s *string) *string {
	etag := strings.TrimPrefix(*s, "W/")
	return &etag
}

// CleanEtag return strong ETag without surrounding quotes.
func CleanEtag(s string) string {
	return strings.ReplaceAll(*StrongEtag(&s), `"`, "")
}

// IsMultipartEtag report whether etag was produced by multipart upload ("<hex>-<parts>").
// Such ETags are not md5 digests of the object content.
func IsMultipartEtag(etag string) bool {
	return strings.Contains(etag, "-")
}

// ParseDigests merge the md5 taken from ETag with digests from the custom metadata header.
// Header format is comma-separated name=value pairs, e.g. "md5=abc,sha256=def".
// Malformed pairs are ignored.
func ParseDigests(etag, header string) Digests {
	digests := Digests{DigestMD5: etag}
	if header == "" {
		return digests
	}
	for _, pair := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(value))
		if !ok || name == "" || value == "" {
			continue
		}
		digests[name] = value
	}
	return digests
}

// NormalizePath return object key as escaped path with leading slash.
// Every path segment is percent-encoded as required by S3 canonical requests.
func NormalizePath(key string) string {
	key = strings.TrimPrefix(key, "/")
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = URIEncode(seg)
	}
	return "/" + strings.Join(segments, "/")
}

// URIEncode percent-encode every byte except RFC 3986 unreserved characters.
func URIEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
