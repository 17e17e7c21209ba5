package s3

import (
	"net/http"
)

type requestOption func(r *http.Request)

// withAcceptEncoding disable transparent decompression, the object must be stored byte for byte.
func withAcceptEncoding(e string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Accept-Encoding", e)
	}
}

func withHeader(name, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(name, value)
	}
}
