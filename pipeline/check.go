package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/larrabee/s3file/integrity"
	"github.com/larrabee/s3file/storage"
)

// check decide whether the managed file must be downloaded.
var check stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	info, err := os.Stat(j.req.Path)
	if errors.Is(err, os.ErrNotExist) {
		Log.Debugf("%s does not exist, downloading", j.req.Path)
		return StepDownload, nil
	} else if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", j.req.Path)
	}

	creds, err := s.credentials(ctx, j)
	if err != nil {
		return "", err
	}
	remote, err := s.transfer.Head(ctx, j.loc, creds)
	if err != nil {
		return "", err
	}
	j.remote = remote
	if !j.loc.RegionExplicit && remote.Location.Region != "" {
		j.loc.Region = remote.Location.Region
	}

	local, err := integrity.FileDigests(j.req.Path, storage.DigestMD5, storage.DigestSHA256)
	if err != nil {
		return "", err
	}
	j.localMD5 = local.MD5()

	if !contentMatches(j, local) {
		return StepDownload, nil
	}
	if j.req.UseCatalog {
		ok, err := s.catalog.Matches(j.req.Path, remote.ETag, local.MD5())
		if err != nil {
			return "", err
		}
		if !ok {
			Log.Debugf("Catalog entry of %s does not match, downloading", j.req.Path)
			return StepDownload, nil
		}
	}
	return StepSkip, nil
}

// contentMatches compare local digests with the expected decrypted checksum or the remote digests.
func contentMatches(j *job, local storage.Digests) bool {
	if j.req.DecryptionKey != "" {
		if j.req.DecryptedChecksum == "" {
			Log.Debugf("No checksum of decrypted content given for %s, downloading", j.req.Path)
			return false
		}
		Log.Debugf("sha256 of decrypted content should be %s", j.req.DecryptedChecksum)
		Log.Debugf("sha256 of local object is %s", local.SHA256())
		return equalDigest(j.req.DecryptedChecksum, local.SHA256())
	}

	if remote := j.remote.Digests.SHA256(); remote != "" {
		Log.Debugf("sha256 of S3 object is %s", remote)
		Log.Debugf("sha256 of local object is %s", local.SHA256())
		return equalDigest(remote, local.SHA256())
	}
	Log.Debugf("md5 of S3 object is %s", j.remote.Digests.MD5())
	Log.Debugf("md5 of local object is %s", local.MD5())
	return equalDigest(j.remote.Digests.MD5(), local.MD5())
}

func equalDigest(expected, actual string) bool {
	expected = strings.TrimSpace(expected)
	return expected != "" && strings.EqualFold(expected, actual)
}

var skip stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	Log.Debugf("Skipping download, %s matches s3://%s%s", j.req.Path, j.loc.Bucket, j.loc.Path)
	return StepDone, nil
}
