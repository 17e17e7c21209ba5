// Package s3 implements HEAD and GET of S3 objects over plain REST: endpoint resolution,
// request signing, redirects, region correction, retries and download validation.
package s3

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/larrabee/ratelimit"
	"github.com/larrabee/s3file/integrity"
	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/fs"
	"github.com/larrabee/s3file/storage/signer"
)

const (
	defaultRetryCnt       = 5
	defaultRetryDelay     = 5 * time.Second
	defaultBlockSize      = 1024 * 1000
	defaultTimeout        = 15 * time.Minute
	defaultConnectTimeout = 30 * time.Second
	defaultMaxRedirects   = 10
	maxErrorBodySize      = 64 * 1024
)

var errTooManyRedirects = errors.New("too many redirects")

// Config of the transfer client.
type Config struct {
	RetryCnt       uint
	RetryDelay     time.Duration
	BlockSize      int
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxRedirects   int
	UserAgent      string
	// Proxy selects proxy for outgoing requests, http.ProxyFromEnvironment if nil.
	Proxy func(*http.Request) (*url.URL, error)
	// HTTPClient overrides the client built from the fields above.
	// Redirects are always handled by Client, CheckRedirect of the copy is replaced.
	HTTPClient *http.Client
	// Progress is called after every block written to the temp file.
	Progress func(received, total int64)
}

// DefaultConfig return config with default retry policy and timeouts.
func DefaultConfig() Config {
	return Config{
		RetryCnt:       defaultRetryCnt,
		RetryDelay:     defaultRetryDelay,
		BlockSize:      defaultBlockSize,
		Timeout:        defaultTimeout,
		ConnectTimeout: defaultConnectTimeout,
		MaxRedirects:   defaultMaxRedirects,
	}
}

// Client performs signed HEAD and GET requests.
type Client struct {
	httpClient   *http.Client
	retryer      Retryer
	blockSize    int
	maxRedirects int
	userAgent    string
	progress     func(received, total int64)
	rlBucket     ratelimit.Bucket
	now          func() time.Time
}

// GetOptions configure download.
type GetOptions struct {
	// Dir where temp file is created, should be on the same filesystem as the target.
	Dir string
	// Name is used as temp file name base.
	Name string
	// VerifyMD5 validate downloaded content against remote digests.
	VerifyMD5 bool
}

// Result of a successful GET. Path is a temp file owned by the caller.
type Result struct {
	Object     *storage.Object
	StatusCode int
	Path       string
	Size       int64
}

// NewClient return new configured transfer client.
//
// You should always create new client with this constructor.
func NewClient(cfg Config) *Client {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = defaultBlockSize
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}

	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	} else {
		proxy := cfg.Proxy
		if proxy == nil {
			proxy = http.ProxyFromEnvironment
		}
		connectTimeout := cfg.ConnectTimeout
		if connectTimeout <= 0 {
			connectTimeout = defaultConnectTimeout
		}
		httpClient = http.Client{
			Transport: &http.Transport{
				Proxy:                 proxy,
				DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   connectTimeout,
				ResponseHeaderTimeout: connectTimeout,
				IdleConnTimeout:       90 * time.Second,
				DisableCompression:    true,
			},
			Timeout: cfg.Timeout,
		}
	}
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		httpClient:   &httpClient,
		retryer:      Retryer{RetryCnt: cfg.RetryCnt, RetryDelay: cfg.RetryDelay},
		blockSize:    cfg.BlockSize,
		maxRedirects: cfg.MaxRedirects,
		userAgent:    cfg.UserAgent,
		progress:     cfg.Progress,
		rlBucket:     ratelimit.NewFakeBucket(),
		now:          time.Now,
	}
}

// WithRateLimit set rate limit (bytes/sec) for downloads.
func (c *Client) WithRateLimit(limit int) error {
	bucket, err := ratelimit.NewBucketWithRate(float64(limit), int64(limit))
	if err != nil {
		return err
	}
	c.rlBucket = bucket
	return nil
}

// Head fetch object metadata and digests.
func (c *Client) Head(ctx context.Context, loc storage.Location, creds signer.Credentials) (*storage.Object, error) {
	obj, err := c.do(ctx, http.MethodHead, loc, creds, nil)
	if err != nil {
		return nil, &storage.ObjectError{Op: http.MethodHead, Bucket: loc.Bucket, Path: loc.Path, Err: err}
	}
	storage.Log.Debugf("HEAD s3://%s%s: etag %s, digests %v", loc.Bucket, loc.Path, obj.ETag, obj.Digests)
	return obj, nil
}

// Get download object to a temp file. On any error the temp file is removed.
func (c *Client) Get(ctx context.Context, loc storage.Location, creds signer.Credentials, opts GetOptions) (*Result, error) {
	res := &Result{}
	obj, err := c.do(ctx, http.MethodGet, loc, creds, func(resp *http.Response, _ *storage.Object) error {
		path, size, err := c.download(resp, opts)
		if err != nil {
			return err
		}
		res.Path, res.Size, res.StatusCode = path, size, resp.StatusCode
		return nil
	})
	if err != nil {
		return nil, &storage.ObjectError{Op: http.MethodGet, Bucket: loc.Bucket, Path: loc.Path, Err: err}
	}
	res.Object = obj

	if opts.VerifyMD5 {
		if err := integrity.VerifyDownload(res.Path, obj); err != nil {
			_ = os.Remove(res.Path)
			return nil, &storage.ObjectError{Op: http.MethodGet, Bucket: loc.Bucket, Path: loc.Path, Err: err}
		}
	}

	storage.Log.Debugf("GET s3://%s%s: downloaded %s", loc.Bucket, loc.Path, humanize.Bytes(uint64(res.Size)))
	return res, nil
}

type responseHandler func(resp *http.Response, obj *storage.Object) error

// redirectError signals that the request must be repeated against another location.
type redirectError struct {
	base string
	path string
}

func (e *redirectError) Error() string {
	return "redirect to " + e.base + e.path
}

// do execute request with redirects, single region correction and bounded retries.
// Redirects and region correction do not consume attempts.
func (c *Client) do(ctx context.Context, method string, loc storage.Location, creds signer.Credentials, handle responseHandler) (*storage.Object, error) {
	base, path := baseURL(loc), loc.Path
	regionRetried := false
	redirects := 0

	for attempt := uint(1); ; {
		obj, err := c.roundTrip(ctx, method, loc, base, path, creds, handle)
		if err == nil {
			return obj, nil
		}

		var redirect *redirectError
		if errors.As(err, &redirect) {
			redirects++
			if redirects > c.maxRedirects {
				return nil, fmt.Errorf("%w: more than %d", errTooManyRedirects, c.maxRedirects)
			}
			storage.Log.Debugf("%s s3://%s%s: redirected to %s%s", method, loc.Bucket, loc.Path, redirect.base, redirect.path)
			base, path = redirect.base, redirect.path
			continue
		}

		var regionErr *storage.RegionMismatchError
		if errors.As(err, &regionErr) && !loc.RegionExplicit && !regionRetried {
			regionRetried = true
			loc.Region = regionErr.Expected
			if loc.URL == "" {
				base, path = ResolveEndpoint(loc.Bucket, loc.Region), loc.Path
			}
			storage.Log.Debugf("%s s3://%s%s: bucket is in region %s, retrying", method, loc.Bucket, loc.Path, loc.Region)
			continue
		}

		if !c.retryer.ShouldRetry(ctx, err) {
			return nil, err
		}
		if attempt >= c.retryer.MaxAttempts() {
			storage.Log.Errorf("%s s3://%s%s failed after %d attempts: %s", method, loc.Bucket, loc.Path, attempt, err)
			return nil, &storage.TransferError{Attempts: attempt, Err: err}
		}
		storage.Log.Warnf("%s s3://%s%s attempt %d failed: %s, retrying in %s", method, loc.Bucket, loc.Path, attempt, err, c.retryer.RetryDelay)
		if sErr := c.retryer.Sleep(ctx); sErr != nil {
			return nil, sErr
		}
		attempt++
	}
}

func (c *Client) roundTrip(ctx context.Context, method string, loc storage.Location, base, path string, creds signer.Credentials, handle responseHandler) (*storage.Object, error) {
	sign, err := signer.New(creds, loc.Region)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, nil)
	if err != nil {
		return nil, err
	}
	opts := []requestOption{withAcceptEncoding("identity")}
	if c.userAgent != "" {
		opts = append(opts, withHeader("User-Agent", c.userAgent))
	}
	for _, opt := range opts {
		opt(req)
	}
	if err := sign.Sign(req, loc.Bucket, path, c.now()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, c.responseErr(req, resp, loc)
	}

	obj := storage.NewObject(storage.Location{Bucket: loc.Bucket, Region: loc.Region, RegionExplicit: loc.RegionExplicit, URL: base, Path: path}, resp.Header, resp.ContentLength)
	if handle != nil {
		if err := handle(resp, obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

type errorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
	Region  string   `xml:"Region"`
}

// responseErr turn non successful response into redirect, region mismatch or response error.
func (c *Client) responseErr(req *http.Request, resp *http.Response, loc storage.Location) error {
	if isRedirect(resp.StatusCode) {
		if location := resp.Header.Get(storage.HeaderLocation); location != "" {
			target, err := req.URL.Parse(location)
			if err != nil {
				return fmt.Errorf("invalid redirect location %q: %w", location, err)
			}
			base, path := splitRedirect(target, loc.Bucket)
			return &redirectError{base: base, path: path}
		}
	}

	rErr := &storage.ResponseError{
		StatusCode: resp.StatusCode,
		Code:       resp.Header.Get(storage.HeaderErrorCode),
		Region:     resp.Header.Get(storage.HeaderBucketRegion),
	}
	if req.Method != http.MethodHead {
		var body errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if len(data) > 0 && xml.Unmarshal(data, &body) == nil {
			rErr.Code, rErr.Message = body.Code, body.Message
			if rErr.Region == "" {
				rErr.Region = body.Region
			}
		}
	}

	if rErr.Region != "" && rErr.Region != effectiveRegion(loc.Region) {
		return &storage.RegionMismatchError{Region: effectiveRegion(loc.Region), Expected: rErr.Region, Err: rErr}
	}
	return rErr
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func (c *Client) download(resp *http.Response, opts GetOptions) (string, int64, error) {
	f, err := fs.CreateTemp(opts.Dir, opts.Name)
	if err != nil {
		return "", 0, err
	}

	size, err := c.copyBody(f, resp.Body, resp.ContentLength)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", 0, err
	}
	return f.Name(), size, nil
}

// copyBody stream body to dst in fixed size blocks and validate received size against Content-Length.
func (c *Client) copyBody(dst io.Writer, body io.Reader, expected int64) (int64, error) {
	buf := make([]byte, c.blockSize)
	dst = ratelimit.NewWriter(dst, c.rlBucket)
	var received int64

	for {
		nr, rErr := body.Read(buf)
		if nr > 0 {
			nw, wErr := dst.Write(buf[:nr])
			received += int64(nw)
			if wErr != nil {
				return received, wErr
			}
			if c.progress != nil {
				c.progress(received, expected)
			}
		}
		if rErr == io.EOF {
			break
		}
		if rErr != nil {
			if errors.Is(rErr, io.ErrUnexpectedEOF) && expected >= 0 {
				return received, &storage.SizeMismatchError{Expected: expected, Received: received}
			}
			return received, rErr
		}
	}

	if expected >= 0 && received != expected {
		return received, &storage.SizeMismatchError{Expected: expected, Received: received}
	}
	return received, nil
}
