package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "missing bucket", err: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, want: true},
		{name: "access denied", err: minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, want: true},
		{name: "invalid bucket name", err: minio.ErrorResponse{Code: "InvalidBucketName", StatusCode: 400}, want: true},
		{name: "bad credentials", err: minio.ErrorResponse{Code: "InvalidAccessKeyId", StatusCode: 403}, want: true},
		{name: "throttling is not fatal", err: minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, want: false},
		{name: "wrapped fatal", err: fmt.Errorf("put: %w", minio.ErrorResponse{Code: "AccessDenied"}), want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "throttling", err: minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}, want: true},
		{name: "request timeout", err: minio.ErrorResponse{Code: "RequestTimeout", StatusCode: 400}, want: true},
		{name: "unrecognized 5xx", err: minio.ErrorResponse{Code: "SomethingNew", StatusCode: 500}, want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "fatal is never transient", err: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}, want: false},
		{name: "unknown errors default to transient", err: errors.New("connection reset by peer"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
