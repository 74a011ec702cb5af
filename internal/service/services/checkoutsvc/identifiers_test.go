package checkoutsvc

import (
	"crypto/rand"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderNumberPattern   = regexp.MustCompile(`^FX-[0-9A-Z]+-[0-9A-Z]{3}$`)
	trackingTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	number, err := newOrderNumber(now, rand.Reader)
	require.NoError(t, err)

	assert.Regexp(t, orderNumberPattern, number)
	parts := strings.Split(number, "-")
	ms, err := strconv.ParseInt(strings.ToLower(parts[1]), 36, 64)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), ms)
}

func TestNewTrackingToken_Distinct(t *testing.T) {
	const n = 10000

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		token, err := newTrackingToken(rand.Reader)
		require.NoError(t, err)
		require.Regexp(t, trackingTokenPattern, token)
		seen[token] = struct{}{}
	}

	assert.Len(t, seen, n)
}

func TestNewTrackingToken_ShortReader(t *testing.T) {
	_, err := newTrackingToken(strings.NewReader("short"))
	assert.Error(t, err)
}
