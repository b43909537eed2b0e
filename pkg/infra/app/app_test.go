package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-iam/pkg/app/cliflag"
)

type demoOptions struct {
	Port  int    `mapstructure:"port"`
	Name  string `mapstructure:"name"`
	Level string `mapstructure:"level"`
	DSN   string `mapstructure:"dsn"`

	completed bool
}

func (o *demoOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("demo")
	fs.IntVar(&o.Port, "port", o.Port, "Listen port.")
	fs.StringVar(&o.Name, "name", o.Name, "Instance name.")
	fs.StringVar(&o.Level, "level", o.Level, "Log level.")
	fs.StringVar(&o.DSN, "dsn", o.DSN, "Database DSN.")
	return fss
}

func (o *demoOptions) Complete() error {
	o.completed = true
	return nil
}

func (o *demoOptions) Validate() error {
	if o.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func newDemoApp(t *testing.T, opts *demoOptions, ran *bool, args ...string) (*App, *bytes.Buffer) {
	t.Helper()
	a := NewApp(
		WithName("demo-app"),
		WithShortDescription("demo"),
		WithOptions(opts),
		WithArgs(cobra.NoArgs),
		WithSilence(),
		WithRunFunc(func() error {
			*ran = true
			return nil
		}),
	)
	var out bytes.Buffer
	a.Command().SetOut(&out)
	a.Command().SetErr(&out)
	a.Command().SetArgs(append([]string{}, args...))
	return a, &out
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo-app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApp_ConfigLayering(t *testing.T) {
	path := writeConfig(t, "port: 1000\nname: file\nlevel: debug\ndsn: ${DEMO_DSN}\n")
	t.Setenv("DEMO_APP_NAME", "env")
	t.Setenv("DEMO_DSN", "sqlite://demo.db")

	opts := &demoOptions{Port: 80, Level: "info"}
	var ran bool
	a, _ := newDemoApp(t, opts, &ran, "-c", path, "--port=3000")

	require.NoError(t, a.Command().Execute())
	assert.True(t, ran)
	assert.True(t, opts.completed)
	assert.Equal(t, 3000, opts.Port, "flag wins over file")
	assert.Equal(t, "env", opts.Name, "env wins over file")
	assert.Equal(t, "debug", opts.Level, "file wins over default")
	assert.Equal(t, "sqlite://demo.db", opts.DSN)
}

func TestApp_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts *demoOptions
		args []string
		want string
	}{
		{name: "positional args", opts: &demoOptions{Port: 80}, args: []string{"extra"}, want: "unknown command"},
		{name: "missing config file", opts: &demoOptions{Port: 80}, args: []string{"-c", filepath.Join(t.TempDir(), "none.yaml")}, want: "failed to read config file"},
		{name: "validation", opts: &demoOptions{}, want: "port must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran bool
			a, out := newDemoApp(t, tt.opts, &ran, tt.args...)

			err := a.Command().Execute()
			assert.ErrorContains(t, err, tt.want)
			assert.False(t, ran)
			assert.NotContains(t, out.String(), "Error:")
		})
	}
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "USER_CENTER", envPrefix("user-center"))
}
