package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(Options{Addr: " "})
	assert.Error(t, err)
}
