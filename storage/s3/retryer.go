package s3

import (
	"context"
	"errors"
	"time"

	"github.com/larrabee/s3file/storage"
)

// Retryer implements basic retry logic of the transfer client.
type Retryer struct {
	// RetryCnt is the max number of attempts that will be performed.
	// Zero means single attempt.
	RetryCnt uint

	// RetryDelay is the fixed delay between attempts.
	RetryDelay time.Duration
}

// MaxAttempts returns the number of attempts for a single request.
func (d Retryer) MaxAttempts() uint {
	if d.RetryCnt == 0 {
		return 1
	}
	return d.RetryCnt
}

// ShouldRetry returns true if the request should be retried.
// Integrity, credential and region errors are final, as is a done context.
func (d Retryer) ShouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case storage.IsIntegrityErr(err):
		return false
	case errors.Is(err, storage.ErrInvalidCredentials):
		return false
	case errors.Is(err, storage.ErrRegionMismatch):
		return false
	case errors.Is(err, errTooManyRedirects):
		return false
	}
	return true
}

// Sleep wait RetryDelay or until ctx is done.
func (d Retryer) Sleep(ctx context.Context) error {
	if d.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
