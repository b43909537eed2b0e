package redis

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/sentinel-iam/pkg/options/redis"
)

func newOptions(t *testing.T, mr *miniredis.Miniredis) *options.Options {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	opts := options.NewOptions()
	opts.Enabled = true
	opts.Host = mr.Host()
	opts.Port = port
	return opts
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), newOptions(t, mr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, "redis", client.Name())
	require.NoError(t, client.Health()())

	ctx := context.Background()
	require.NoError(t, client.Client().Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)

	opts := options.NewOptions()
	opts.Enabled = true
	opts.Port = -1
	_, err = New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis options")

	mr := miniredis.RunT(t)
	opts = newOptions(t, mr)
	mr.Close()
	_, err = New(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}
