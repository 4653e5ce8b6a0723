package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitting-room-server/modules/common/config"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()}
	rdb, err := Connect(cfg)
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := Connect(&config.Config{RedisHost: host, RedisPort: port})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.NotNil(t, errors.Unwrap(err), "ping error is wrapped")
}
