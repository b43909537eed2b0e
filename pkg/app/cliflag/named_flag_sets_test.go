package cliflag

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedFlagSets_Order(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("http").String("http.addr", ":8080", "listen address")
	fss.FlagSet("db").String("db.driver", "sqlite", "driver")
	fss.FlagSet("http").Duration("http.read-timeout", 0, "read timeout")

	assert.Equal(t, []string{"http", "db"}, fss.Order)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fss.AddTo(fs)
	require.NoError(t, fs.Parse([]string{"--http.addr=:9090", "--db.driver=postgres"}))

	addr, err := fs.GetString("http.addr")
	require.NoError(t, err)
	assert.Equal(t, ":9090", addr)
}

func TestPrintSections(t *testing.T) {
	var fss NamedFlagSets
	fss.FlagSet("log").String("log.level", "info", "log level")
	fss.FlagSet("empty")

	var buf bytes.Buffer
	PrintSections(&buf, fss, 0)

	out := buf.String()
	assert.Contains(t, out, "Log flags:")
	assert.Contains(t, out, "--log.level")
	assert.NotContains(t, out, "Empty flags:")
}
