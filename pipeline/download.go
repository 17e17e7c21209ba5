package pipeline

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/larrabee/s3file/integrity"
	"github.com/larrabee/s3file/storage/fs"
	"github.com/larrabee/s3file/storage/s3"
)

// download fetch the object into a temp file next to the managed file.
var download stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	creds, err := s.credentials(ctx, j)
	if err != nil {
		return "", err
	}

	if n, err := fs.SweepTemp(j.dir(), j.name()); err != nil {
		Log.Warnf("Failed to remove stale temp files of %s: %s", j.req.Path, err)
	} else if n > 0 {
		Log.Debugf("Removed %d stale temp files of %s", n, j.req.Path)
	}

	res, err := s.transfer.Get(ctx, j.loc, creds, s3.GetOptions{Dir: j.dir(), Name: j.name(), VerifyMD5: j.req.VerifyMD5})
	if err != nil {
		return "", err
	}
	j.replaceTemp(res.Path)
	j.remote = res.Object
	s.metrics.observeDownload(res.Size)
	Log.Debugf("Downloaded s3://%s%s (%s)", j.loc.Bucket, j.loc.Path, humanize.Bytes(uint64(res.Size)))

	if j.req.DecryptionKey != "" {
		return StepDecrypt, nil
	}
	return StepFinalize, nil
}

// decrypt replace downloaded ciphertext with plaintext. Failure is fatal.
var decrypt stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	plain, err := integrity.DecryptFile(j.req.DecryptionKey, j.temp, j.dir(), j.name())
	if err != nil {
		return "", err
	}
	j.replaceTemp(plain)

	if j.req.DecryptedChecksum != "" {
		if err := integrity.VerifySHA256(j.req.DecryptedChecksum, plain); err != nil {
			return "", err
		}
	}
	return StepFinalize, nil
}
