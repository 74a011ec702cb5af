package eventlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: -1, want: 5 * time.Minute},
		{retry: 0, want: 5 * time.Minute},
		{retry: 1, want: 15 * time.Minute},
		{retry: 2, want: 45 * time.Minute},
		{retry: 3, want: 135 * time.Minute},
		{retry: 4, want: 405 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.retry), "retry %d", tt.retry)
	}
}

func TestEntry_Exhausted(t *testing.T) {
	assert.False(t, Entry{RetryCount: 2, MaxRetries: 3}.Exhausted())
	assert.True(t, Entry{RetryCount: 3, MaxRetries: 3}.Exhausted())
	assert.True(t, Entry{RetryCount: 0, MaxRetries: 0}.Exhausted())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusProcessed.IsTerminal())
	assert.True(t, StatusMaxRetriesExceeded.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
}
