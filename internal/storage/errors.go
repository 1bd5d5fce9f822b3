package storage

import (
	"context"
	"errors"
	"net"

	"github.com/minio/minio-go/v7"
)

// Error classification for upload retry decisions. Transient errors
// (throttling, timeouts, connection resets) are worth retrying; fatal
// errors (permissions, missing bucket) never succeed on retry.

var fatalCodes = map[string]struct{}{
	"NoSuchBucket":          {},
	"AccessDenied":          {},
	"InvalidBucketName":     {},
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"AccountProblem":        {},
}

var transientCodes = map[string]struct{}{
	"SlowDown":            {},
	"RequestTimeout":      {},
	"InternalError":       {},
	"ServiceUnavailable":  {},
	"Throttling":          {},
	"ThrottlingException": {},
}

// IsFatal reports whether err is a permission/not-found-class storage
// error that must not be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		_, ok := fatalCodes[resp.Code]
		return ok
	}
	return false
}

// IsTransient reports whether err looks like a network or throttling
// class failure. Unknown errors are treated as transient so that a new
// failure mode degrades to "retry a bounded number of times" rather than
// "give up immediately".
func IsTransient(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		if _, ok := transientCodes[resp.Code]; ok {
			return true
		}
		// 5xx without a recognized code is a service-side hiccup.
		return resp.StatusCode >= 500
	}
	return true
}
