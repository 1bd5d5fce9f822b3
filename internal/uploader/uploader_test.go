package uploader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/storage"
)

// fakeStorage records Put calls and fails a configurable number of times.
type fakeStorage struct {
	mu       sync.Mutex
	puts     []putCall
	failures int
	err      error
}

type putCall struct {
	key  string
	data []byte
}

func (f *fakeStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{key: key, data: data})
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return f.err
	}
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (f *fakeStorage) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}
func (f *fakeStorage) Bucket() string { return "test-bucket" }
func (f *fakeStorage) Close() error   { return nil }

func (f *fakeStorage) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func testConfig() *config.CoverageConfig {
	return &config.CoverageConfig{
		Bucket:        "test-bucket",
		KeyPrefix:     "coverage/",
		UploadTimeout: 5 * time.Second,
	}
}

func transientErr() error {
	return minio.ErrorResponse{Code: "SlowDown", StatusCode: 503}
}

func fatalErr() error {
	return minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
}

func TestNew_Validation(t *testing.T) {
	store := &fakeStorage{}

	_, err := New(nil, testConfig())
	assert.Error(t, err)

	_, err = New(store, nil)
	assert.Error(t, err)

	_, err = New(store, &config.CoverageConfig{})
	assert.Error(t, err)

	up, err := New(store, testConfig())
	require.NoError(t, err)
	assert.NotNil(t, up)
}

func TestUpload_Success(t *testing.T) {
	store := &fakeStorage{}
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	up, err := New(store, testConfig(), WithClock(func() time.Time { return ts }))
	require.NoError(t, err)

	result := up.Upload(context.Background(), []byte("mode: set\n"), "f", "abc")

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "coverage/2024/01/15/f-abc.coverage", result.Key)
	assert.Equal(t, "test-bucket", result.Bucket)
	assert.Equal(t, int64(len("mode: set\n")), result.SizeBytes)
	assert.Equal(t, 1, store.putCount())
}

func TestUpload_RetriesThenSucceeds(t *testing.T) {
	store := &fakeStorage{failures: 2, err: transientErr()}

	up, err := New(store, testConfig(), WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	result := up.Upload(context.Background(), []byte("mode: set\n"), "f", "abc")

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, store.putCount())
}

func TestUpload_TransientFailure_ExactlyThreeAttempts(t *testing.T) {
	store := &fakeStorage{failures: -1, err: transientErr()}

	up, err := New(store, testConfig(), WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	var delays []time.Duration
	up.notify = func(err error, delay time.Duration) {
		delays = append(delays, delay)
	}

	result := up.Upload(context.Background(), []byte("mode: set\n"), "f", "abc")

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, store.putCount())

	// Two retries with exponentially increasing delays.
	require.Len(t, delays, 2)
	assert.Equal(t, time.Millisecond, delays[0])
	assert.Equal(t, 2*time.Millisecond, delays[1])
}

func TestUpload_FatalErrorNotRetried(t *testing.T) {
	store := &fakeStorage{failures: -1, err: fatalErr()}

	up, err := New(store, testConfig(), WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	result := up.Upload(context.Background(), []byte("mode: set\n"), "f", "abc")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, store.putCount())
}

func TestUpload_TightDeadlineSingleAttempt(t *testing.T) {
	store := &fakeStorage{failures: -1, err: transientErr()}

	up, err := New(store, testConfig(), WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	// Deadline shorter than one upload timeout plus a retry delay: the
	// uploader must not start a retry cycle it cannot finish.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := up.Upload(ctx, []byte("mode: set\n"), "f", "abc")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestUploadTo_ExplicitKey(t *testing.T) {
	store := &fakeStorage{}

	up, err := New(store, testConfig())
	require.NoError(t, err)

	result := up.UploadTo(context.Background(), "coverage/combined/report.json", []byte("{}"), "application/json", map[string]string{"files-processed": "3"})

	assert.True(t, result.Success)
	assert.Equal(t, "coverage/combined/report.json", result.Key)
	require.Equal(t, 1, store.putCount())
	assert.Equal(t, "coverage/combined/report.json", store.puts[0].key)
}
