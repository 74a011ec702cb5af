package jaeger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExporter(t *testing.T) {
	_, err := NewExporter("")
	assert.ErrorIs(t, err, ErrNoEndpoint)

	exp, err := NewExporter("http://localhost:14268/api/traces")
	require.NoError(t, err)
	assert.NotNil(t, exp)
}
