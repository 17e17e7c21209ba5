package pipeline

import (
	"context"

	"github.com/larrabee/s3file/catalog"
	"github.com/larrabee/s3file/integrity"
	"github.com/larrabee/s3file/storage/fs"
)

// finalize atomically replace the managed file, keeping owner, group and mode of the previous one.
var finalize stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	if err := fs.Replace(j.temp, j.req.Path, s.filePerm); err != nil {
		return "", err
	}
	j.temp = ""
	j.changed = true
	Log.Debugf("Replaced %s", j.req.Path)

	if j.req.Owner != "" || j.req.Group != "" || j.req.Mode != nil {
		if err := s.perms.Apply(j.req.Path, j.req.Owner, j.req.Group, j.req.Mode); err != nil {
			return "", err
		}
	}

	if j.req.UseCatalog || s.xattr {
		return StepCatalogUpdate, nil
	}
	return StepDone, nil
}

// catalogUpdate record the finalized file in the catalog and its xattr mirror.
var catalogUpdate stepFn = func(s *Syncer, ctx context.Context, j *job) (StepName, error) {
	md5, err := integrity.FileMD5(j.req.Path)
	if err != nil {
		return "", err
	}
	j.localMD5 = md5
	entry := catalog.Entry{ETag: j.etag(), LocalMD5: md5}

	if j.req.UseCatalog {
		if err := s.catalog.Set(j.req.Path, entry); err != nil {
			return "", err
		}
		Log.Debugf("Catalog entry of %s: etag %s, local md5 %s", j.req.Path, entry.ETag, entry.LocalMD5)
	}
	if s.xattr {
		if err := fs.WriteMeta(j.req.Path, entry); err != nil {
			Log.Warnf("Failed to write metadata xattr of %s: %s", j.req.Path, err)
		}
	}
	return StepDone, nil
}
