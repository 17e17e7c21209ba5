// Package pipeline implements the sync of a single managed file with its remote S3 object:
// CHECK -> (SKIP | DOWNLOAD) -> [DECRYPT] -> FINALIZE -> CATALOG_UPDATE -> DONE.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/larrabee/s3file/catalog"
	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/auth"
	"github.com/larrabee/s3file/storage/fs"
	"github.com/larrabee/s3file/storage/s3"
	"github.com/larrabee/s3file/storage/signer"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var Log = logrus.New()

func init() {
	storage.Log = Log
}

const (
	defaultFilePerm = 0644
	tracerName      = "github.com/larrabee/s3file/pipeline"
)

// Transfer is the remote side of a sync.
type Transfer interface {
	Head(ctx context.Context, loc storage.Location, creds signer.Credentials) (*storage.Object, error)
	Get(ctx context.Context, loc storage.Location, creds signer.Credentials, opts s3.GetOptions) (*s3.Result, error)
}

// CredentialResolver resolves credentials and region for a request.
type CredentialResolver interface {
	Resolve(ctx context.Context, in auth.Input) (auth.Resolved, error)
}

// Config of the Syncer.
type Config struct {
	// CatalogPath is used by requests with UseCatalog, catalog.DefaultPath of the user cache dir if empty.
	CatalogPath string
	// FilePerm of newly created files when request has no mode.
	FilePerm os.FileMode
	// Xattr mirror the catalog entry into extended attributes of the managed file.
	Xattr bool
	// Permissions applies requested owner, group and mode, fs.SysPermissions if nil.
	Permissions fs.Permissions
	Metrics     *Metrics
}

// Request describe desired state of a managed file.
type Request struct {
	Path            string
	Bucket          string
	RemotePath      string
	URL             string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PublicBucket    bool
	// DecryptionKey enables DECRYPT of the downloaded object.
	DecryptionKey string
	// DecryptedChecksum is the expected sha256 of the decrypted content.
	DecryptedChecksum string
	VerifyMD5         bool
	UseCatalog        bool
	Owner             string
	Group             string
	Mode              *os.FileMode
}

// Validate check that request has all mandatory fields.
func (r Request) Validate() error {
	switch {
	case r.Path == "":
		return &ConfigurationError{Field: "path", Reason: "is required"}
	case strings.HasSuffix(r.Path, string(os.PathSeparator)):
		return &ConfigurationError{Field: "path", Reason: "must be a file"}
	case r.Bucket == "":
		return &ConfigurationError{Field: "bucket", Reason: "is required"}
	case strings.Trim(r.RemotePath, "/") == "":
		return &ConfigurationError{Field: "remote path", Reason: "is required"}
	case r.DecryptedChecksum != "" && r.DecryptionKey == "":
		return &ConfigurationError{Field: "decrypted checksum", Reason: "requires decryption key"}
	}
	return nil
}

// Result of a sync.
type Result struct {
	// Changed is true when the managed file was replaced.
	Changed  bool
	ETag     string
	LocalMD5 string
	Steps    []StepInfo
}

// Syncer runs sync requests. It is safe for concurrent use with different target paths.
type Syncer struct {
	transfer Transfer
	creds    CredentialResolver
	catalog  *catalog.Catalog
	perms    fs.Permissions
	filePerm os.FileMode
	xattr    bool
	metrics  *Metrics
}

// NewSyncer return new configured Syncer.
//
// You should always create new Syncer with this constructor.
func NewSyncer(transfer Transfer, creds CredentialResolver, cfg Config) *Syncer {
	if cfg.CatalogPath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = os.TempDir()
		}
		cfg.CatalogPath = catalog.DefaultPath(filepath.Join(cacheDir, "s3file"))
	}
	if cfg.FilePerm == 0 {
		cfg.FilePerm = defaultFilePerm
	}
	if cfg.Permissions == nil {
		cfg.Permissions = fs.SysPermissions{}
	}

	return &Syncer{
		transfer: transfer,
		creds:    creds,
		catalog:  catalog.New(cfg.CatalogPath),
		perms:    cfg.Permissions,
		filePerm: cfg.FilePerm,
		xattr:    cfg.Xattr,
		metrics:  cfg.Metrics,
	}
}

// Catalog used by the Syncer.
func (s *Syncer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Sync bring the managed file in line with its remote object.
// On error no temp file is left and neither the file nor the catalog is changed,
// unless the error happened after FINALIZE. Result.Changed reports a replaced file
// in that case too.
func (s *Syncer) Sync(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "s3file.Sync")
	span.SetAttributes(
		attribute.String("s3file.path", req.Path),
		attribute.String("s3file.bucket", req.Bucket),
		attribute.String("s3file.remote_path", req.RemotePath),
	)
	defer span.End()

	j := newJob(req)
	defer j.cleanup()

	res, err := s.run(ctx, j)
	s.metrics.observeSync(res, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Bool("s3file.changed", res.Changed))
	return res, nil
}

func (s *Syncer) run(ctx context.Context, j *job) (Result, error) {
	res := Result{}
	tracer := otel.Tracer(tracerName)

	for name, num := StepCheck, 1; name != StepDone; num++ {
		fn := stepByName(name)
		if fn == nil {
			return res, &StepError{Step: name, Num: num, Err: &ConfigurationError{Field: "step", Reason: "is unknown"}}
		}

		stepCtx, span := tracer.Start(ctx, "s3file."+string(name))
		start := time.Now()
		next, err := fn(s, stepCtx, j)
		elapsed := time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		res.Steps = append(res.Steps, StepInfo{Name: name, Num: num, Duration: elapsed})
		s.metrics.observeStep(name, elapsed)
		if err != nil {
			Log.Debugf("Sync step %s of %s failed: %s", name, j.req.Path, err)
			j.fill(&res)
			return res, &StepError{Step: name, Num: num, Err: err}
		}
		Log.Debugf("Sync step %s of %s finished in %s, next %s", name, j.req.Path, elapsed, next)
		name = next
	}

	j.fill(&res)
	return res, nil
}

func stepByName(name StepName) stepFn {
	for _, st := range steps {
		if st.Name == name {
			return st.Fn
		}
	}
	return nil
}
