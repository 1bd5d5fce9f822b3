package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		functionName string
		executionID  string
		prefix       string
		want         string
	}{
		{
			name:         "date partitioned under prefix",
			functionName: "f",
			executionID:  "abc",
			prefix:       "coverage/",
			want:         "coverage/2024/01/15/f-abc.coverage",
		},
		{
			name:         "prefix without trailing slash is normalized",
			functionName: "orders",
			executionID:  "req-1",
			prefix:       "cov",
			want:         "cov/2024/01/15/orders-req-1.coverage",
		},
		{
			name:         "empty prefix keeps keys at bucket root",
			functionName: "orders",
			executionID:  "req-1",
			prefix:       "",
			want:         "2024/01/15/orders-req-1.coverage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ObjectKey(tt.functionName, tt.executionID, tt.prefix, ts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectKey_Deterministic(t *testing.T) {
	ts := time.Date(2025, 12, 3, 23, 59, 59, 0, time.UTC)

	first := ObjectKey("fn", "id", "coverage/", ts)
	second := ObjectKey("fn", "id", "coverage/", ts)
	assert.Equal(t, first, second)
}

func TestObjectKey_UsesUTC(t *testing.T) {
	// 23:30 in UTC+2 is 21:30 UTC the same day; 01:30 in UTC+2 on the 16th
	// is still the 15th in UTC.
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 1, 16, 1, 30, 0, 0, loc)

	got := ObjectKey("f", "x", "coverage/", ts)
	assert.Equal(t, "coverage/2024/01/15/f-x.coverage", got)
}

func TestObjectKey_UniquePerExecution(t *testing.T) {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	a := ObjectKey("f", "exec-1", "coverage/", ts)
	b := ObjectKey("f", "exec-2", "coverage/", ts)
	assert.NotEqual(t, a, b)
}

func TestCombinedKey(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)

	got := CombinedKey("coverage/", ts)
	assert.Equal(t, "coverage/combined/coverage-20240115-103045.json", got)

	got = CombinedKey("", ts)
	assert.Equal(t, "combined/coverage-20240115-103045.json", got)
}
