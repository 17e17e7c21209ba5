package main

import (
	"errors"

	"github.com/larrabee/s3file/pipeline"
	"github.com/larrabee/s3file/storage"
)

// statusOf map sync error to process exit status.
func statusOf(err error) syncStatus {
	if err == nil {
		return syncStatusOk
	}

	var confErr *pipeline.ConfigurationError
	switch {
	case errors.As(err, &confErr):
		return syncStatusConfError
	case errors.Is(err, storage.ErrInvalidCredentials), errors.Is(err, storage.ErrNoCredentialsAvailable):
		return syncStatusConfError
	case storage.IsContextCanceled(err):
		return syncStatusAborted
	}
	return syncStatusFailed
}

func logHint(err error) {
	switch {
	case storage.IsErrNotExist(err):
		log.Warnf("Remote object or local directory does not exist")
	case storage.IsErrPermission(err):
		log.Warnf("Access denied, check credentials and bucket policy")
	case errors.Is(err, storage.ErrRegionMismatch):
		log.Warnf("Bucket is in another region, check --sr")
	case storage.IsIntegrityErr(err):
		log.Warnf("Downloaded content failed integrity check, the local file was not changed")
	}
}
