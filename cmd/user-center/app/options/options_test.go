package options

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimitopts "github.com/kart-io/sentinel-iam/pkg/options/ratelimit"
)

func validOptions(t *testing.T) *ServerOptions {
	t.Helper()
	o := NewServerOptions()
	o.JWTOptions.Key = strings.Repeat("k", 64)
	require.NoError(t, o.Complete())
	return o
}

func TestServerOptions_Flags(t *testing.T) {
	fss := NewServerOptions().Flags()

	for _, name := range []string{"http", "log", "jwt", "db", "redis", "rate-limit", "tracing", "seed", "misc"} {
		assert.Contains(t, fss.Order, name)
	}
	assert.NotNil(t, fss.FlagSet("seed").Lookup("seed.enabled"))
	assert.NotNil(t, fss.FlagSet("misc").Lookup("shutdown-timeout"))
}

func TestServerOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *ServerOptions)
		wantErr string
	}{
		{name: "defaults with key", mutate: func(*ServerOptions) {}},
		{name: "missing jwt key", mutate: func(o *ServerOptions) { o.JWTOptions.Key = "" }, wantErr: "jwt key is required"},
		{name: "bad driver", mutate: func(o *ServerOptions) { o.DBOptions.Driver = "oracle" }, wantErr: "db.driver"},
		{
			name: "redis limiter without redis",
			mutate: func(o *ServerOptions) {
				o.RateLimitOptions.Backend = ratelimitopts.BackendRedis
			},
			wantErr: "requires redis.enabled",
		},
		{
			name: "tracing without endpoint",
			mutate: func(o *ServerOptions) {
				o.TracingOptions.Enabled = true
				o.TracingOptions.Endpoint = ""
			},
			wantErr: "tracing.endpoint",
		},
		{name: "no shutdown timeout", mutate: func(o *ServerOptions) { o.ShutdownTimeout = 0 }, wantErr: "shutdown-timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions(t)
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestServerOptions_Config(t *testing.T) {
	o := validOptions(t)
	o.SeedOptions.Enabled = false

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.DBOptions, cfg.DBOptions)
	assert.Same(t, o.TracingOptions, cfg.TracingOptions)
	assert.False(t, cfg.SeedDefaults)
	assert.Equal(t, o.ShutdownTimeout, cfg.ShutdownTimeout)
}
