package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/larrabee/s3file/storage"
	"github.com/larrabee/s3file/storage/auth"
	"github.com/larrabee/s3file/storage/signer"
)

// job is the state of a single sync.
type job struct {
	req      Request
	loc      storage.Location
	resolved *auth.Resolved
	remote   *storage.Object
	// temp is the temp file owned by the job, removed by cleanup unless finalized.
	temp     string
	localMD5 string
	changed  bool
}

func newJob(req Request) *job {
	return &job{
		req: req,
		loc: storage.Location{
			Bucket:         req.Bucket,
			Region:         req.Region,
			RegionExplicit: req.Region != "",
			URL:            req.URL,
			Path:           storage.NormalizePath(req.RemotePath),
		},
	}
}

func (j *job) dir() string {
	return filepath.Dir(j.req.Path)
}

func (j *job) name() string {
	return filepath.Base(j.req.Path)
}

// fill copy the outcome of the job into res.
func (j *job) fill(res *Result) {
	res.Changed = j.changed
	res.ETag = j.etag()
	res.LocalMD5 = j.localMD5
}

func (j *job) etag() string {
	if j.remote == nil {
		return ""
	}
	return j.remote.ETag
}

// replaceTemp make path the job temp file, removing the previous one.
func (j *job) replaceTemp(path string) {
	j.cleanup()
	j.temp = path
}

func (j *job) cleanup() {
	if j.temp == "" {
		return
	}
	if err := os.Remove(j.temp); err != nil && !os.IsNotExist(err) {
		Log.Warnf("Failed to remove temp file %s: %s", j.temp, err)
	} else {
		Log.Debugf("Removed temp file %s", j.temp)
	}
	j.temp = ""
}

// credentials resolve credentials once per job. Discovered region is used for the location.
func (s *Syncer) credentials(ctx context.Context, j *job) (signer.Credentials, error) {
	if j.resolved == nil {
		resolved, err := s.creds.Resolve(ctx, auth.Input{
			AccessKeyID:     j.req.AccessKeyID,
			SecretAccessKey: j.req.SecretAccessKey,
			SessionToken:    j.req.SessionToken,
			PublicBucket:    j.req.PublicBucket,
			Region:          j.req.Region,
		})
		if err != nil {
			return signer.Credentials{}, err
		}
		Log.Debugf("Using %s credentials for s3://%s%s", resolved.Source, j.loc.Bucket, j.loc.Path)
		j.resolved = &resolved
		j.loc.Region = resolved.Region
	}
	return j.resolved.Credentials, nil
}
