package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr int
	}{
		{name: "defaults", mutate: func(*Options) {}},
		{name: "disabled skips checks", mutate: func(o *Options) { o.Enabled = false; o.Limit = 0 }},
		{name: "zero limit", mutate: func(o *Options) { o.Limit = 0 }, wantErr: 1},
		{name: "unknown backend", mutate: func(o *Options) { o.Backend = "etcd" }, wantErr: 1},
		{name: "cidr proxy", mutate: func(o *Options) { o.TrustedProxies = []string{"10.0.0.0/8", "127.0.0.1"} }},
		{name: "bad proxy", mutate: func(o *Options) { o.TrustedProxies = []string{"proxy.local"} }, wantErr: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)
			assert.Len(t, o.Validate(), tt.wantErr)
		})
	}
}
