package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_RedactsPassword(t *testing.T) {
	o := NewOptions()
	o.Password = "hunter2"

	data, err := o.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), redactedPassword)
	assert.NotContains(t, o.String(), "hunter2")
}

func TestOptions_Validate(t *testing.T) {
	o := NewOptions()
	o.Port = 0
	assert.Empty(t, o.Validate(), "disabled redis is not validated")

	o.Enabled = true
	assert.Len(t, o.Validate(), 1)

	o.Port = 6379
	assert.Empty(t, o.Validate())
}

func TestOptions_Complete(t *testing.T) {
	t.Setenv(EnvPassword, "from-env")

	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "from-env", o.Password)
	assert.Equal(t, "127.0.0.1:6379", o.Addr())
}
