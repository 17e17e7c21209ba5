package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/mattn/go-isatty"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type argsParsed struct {
	args
	Source       remote
	S3RetryDelay time.Duration
	S3Timeout    time.Duration
	IMDSTimeout  time.Duration
	FSFilePerm   os.FileMode
	Mode         *os.FileMode
}

type remote struct {
	Bucket string
	Path   string
}

type args struct {
	// Source and target
	Source string `arg:"positional,required" help:"Remote object, s3://bucket/key"`
	Target string `arg:"positional,required" help:"Local file path"`
	Config string `arg:"--config,-c" help:"YAML config file, command line flags take precedence"`
	// S3 config
	Key                string `arg:"--sk" help:"AWS key"`
	Secret             string `arg:"--ss" help:"AWS secret"`
	Token              string `arg:"--st" help:"AWS session token"`
	Region             string `arg:"--sr" help:"AWS Region, selects the scoped signature scheme"`
	Endpoint           string `arg:"--se" help:"Explicit bucket URL, e.g. https://minio.local:9000/bucket"`
	Public             bool   `arg:"--public" help:"Bucket is public, do not sign requests"`
	S3Retry            uint   `arg:"--s3-retry" help:"Max numbers of attempts to transfer the object"`
	S3RetrySleep       uint   `arg:"--s3-retry-sleep" help:"Sleep interval (sec) between attempts"`
	S3Timeout          uint   `arg:"--s3-timeout" help:"Timeout (sec) of a single request including body transfer"`
	RateLimitBandwidth int    `arg:"--ratelimit-bandwidth" help:"Set bandwidth limit (bytes/sec) for the download"`
	IMDSEndpoint       string `arg:"--imds-endpoint" help:"Instance metadata service endpoint"`
	IMDSTimeout        uint   `arg:"--imds-timeout" help:"Timeout (sec) of instance metadata requests"`
	// Integrity
	VerifyMD5         bool   `arg:"--verify-md5" help:"Verify md5 of the downloaded object"`
	DecryptionKey     string `arg:"--decryption-key" help:"Decrypt the object with AES-256-CBC using this key"`
	DecryptedChecksum string `arg:"--decrypted-checksum" help:"Expected sha256 of the decrypted content"`
	UseCatalog        bool   `arg:"--catalog" help:"Skip downloads confirmed by the local catalog"`
	CatalogPath       string `arg:"--catalog-path" help:"Catalog file path"`
	// FS config
	Owner      string `arg:"--owner" help:"Owner of the file"`
	Group      string `arg:"--group" help:"Group of the file"`
	FileMode   string `arg:"--mode" help:"Mode of the file, e.g. 0640"`
	FSFilePerm string `arg:"--fs-file-perm" help:"Permissions of a newly created file"`
	FSXattr    bool   `arg:"--fs-xattr" help:"Store catalog entry in file xattrs"`
	// Misc
	Debug        bool   `arg:"-d" help:"Show debug logging"`
	ShowProgress bool   `arg:"--progress,-p" help:"Show download progress"`
	MetricsFile  string `arg:"--metrics-file" help:"Write Prometheus metrics to this file"`
	OTLPEndpoint string `arg:"--otlp-endpoint" help:"Export traces to OTLP/HTTP collector"`
}

//Version return program version string on human format
func (args) Version() string {
	return fmt.Sprintf("VersionId: %v, commit: %v, built at: %v", version, commit, date)
}

//Description return program description string
func (args) Description() string {
	return "Keep a local file in sync with an S3 object"
}

// defaultArgs return args with default values assigned.
func defaultArgs() args {
	return args{
		S3Retry:      5,
		S3RetrySleep: 5,
		S3Timeout:    900,
		IMDSTimeout:  5,
		FSFilePerm:   "0644",
	}
}

//GetCliArgs return cli args structure and error
func GetCliArgs() (cli argsParsed, err error) {
	rawCli := defaultArgs()
	p := arg.MustParse(&rawCli)

	if rawCli.Config != "" {
		fc, err := loadConfig(rawCli.Config)
		if err != nil {
			p.Fail(fmt.Sprintf("Failed to load config: %s", err))
		}
		fc.apply(&rawCli, defaultArgs())
	}

	if rawCli.ShowProgress && !isatty.IsTerminal(os.Stdout.Fd()) {
		p.Fail("Progress (--progress) require tty")
	}

	cli, err = parseArgs(rawCli)
	if err != nil {
		p.Fail(err.Error())
	}
	return cli, nil
}

func parseArgs(raw args) (cli argsParsed, err error) {
	cli.args = raw
	if cli.Source, err = parseSource(raw.Source); err != nil {
		return cli, err
	}

	filePerm, err := strconv.ParseUint(raw.FSFilePerm, 8, 32)
	if err != nil {
		return cli, fmt.Errorf("failed to parse arg --fs-file-perm: %w", err)
	}
	cli.FSFilePerm = os.FileMode(filePerm)

	if raw.FileMode != "" {
		mode, err := strconv.ParseUint(raw.FileMode, 8, 32)
		if err != nil {
			return cli, fmt.Errorf("failed to parse arg --mode: %w", err)
		}
		m := os.FileMode(mode)
		cli.Mode = &m
	}

	if raw.DecryptedChecksum != "" && raw.DecryptionKey == "" {
		return cli, fmt.Errorf("--decrypted-checksum requires --decryption-key")
	}

	cli.S3RetryDelay = time.Duration(raw.S3RetrySleep) * time.Second
	cli.S3Timeout = time.Duration(raw.S3Timeout) * time.Second
	cli.IMDSTimeout = time.Duration(raw.IMDSTimeout) * time.Second
	return cli, nil
}

func parseSource(s string) (r remote, err error) {
	u, err := url.Parse(s)
	if err != nil {
		return r, err
	}
	if u.Scheme != "s3" {
		return r, fmt.Errorf("source must be s3://bucket/key, got %q", s)
	}
	r.Bucket = u.Host
	r.Path = strings.TrimPrefix(u.Path, "/")
	if r.Bucket == "" || r.Path == "" {
		return r, fmt.Errorf("source must be s3://bucket/key, got %q", s)
	}
	return r, nil
}
