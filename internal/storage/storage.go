package storage

import (
	"context"
	"time"
)

// ObjectInfo describes a single stored object, as returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Storage defines the interface for coverage artifact persistence.
// Implementations include S3 (via the MinIO client) for production and
// GCS as an alternate backend.
type Storage interface {
	// Put stores data under key. contentType and metadata are attached
	// to the object where the backend supports them.
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error

	// Get retrieves the object under key.
	// Returns nil data if the object does not exist.
	// Returns an error if the retrieval operation fails (excluding not-found).
	Get(ctx context.Context, key string) ([]byte, error)

	// List enumerates objects under prefix in lexicographic key order.
	// Given the date-partitioned key scheme this is also chronological order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Bucket returns the bucket this client writes to.
	Bucket() string

	// Close releases any resources held by the storage client.
	Close() error
}
