// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
//
// Configuration is layered: defaults from the options struct, then the YAML
// config file, then environment variables prefixed with the upper-cased
// application name, then explicitly set command line flags.
//
// Usage:
//
//	a := app.NewApp(
//	    app.WithName("user-center"),
//	    app.WithDescription("IAM user center"),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	)
//	a.Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kart-io/sentinel-iam/pkg/app/cliflag"
)

// CliOptions abstracts configuration options for reading parameters from the
// command line.
type CliOptions interface {
	// Flags returns flags for a specific server by section name.
	Flags() cliflag.NamedFlagSets
	// Complete fills in derived values after flags and config are loaded.
	Complete() error
	// Validate validates all the required options.
	Validate() error
}

// App is the main application structure.
type App struct {
	name        string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	cmd         *cobra.Command
	v           *viper.Viper
	args        cobra.PositionalArgs
	silence     bool
}

// RunFunc is the application's run function.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the application name.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) {
		a.shortDesc = desc
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithArgs sets the positional args validation.
func WithArgs(args cobra.PositionalArgs) Option {
	return func(a *App) {
		a.args = args
	}
}

// WithSilence stops cobra from printing errors; Run reports them once.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name: filepath.Base(os.Args[0]),
		v:    viper.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:          a.name,
		Short:        a.shortDesc,
		Long:         a.description,
		RunE:         a.runCommand,
		Args:         a.args,
		SilenceUsage: true,
	}

	if a.silence {
		cmd.SilenceErrors = true
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	a.addGlobalFlags(cmd)

	if a.options != nil {
		fss := a.options.Flags()
		fss.AddTo(cmd.Flags())

		cmd.SetUsageFunc(func(c *cobra.Command) error {
			fmt.Fprintf(c.OutOrStderr(), "Usage:\n  %s\n", c.UseLine())
			cliflag.PrintSections(c.OutOrStderr(), fss, 0)
			fmt.Fprintf(c.OutOrStderr(), "\nGlobal flags:\n\n%s", c.PersistentFlags().FlagUsages())
			return nil
		})
	}

	a.cmd = cmd
}

func (a *App) addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	version.AddFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	version.PrintAndExitIfRequested()

	if err := a.loadConfig(cmd); err != nil {
		return err
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}

	return nil
}

// loadConfig loads configuration from file, environment, and flags.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.v
	configFile, _ := cmd.Flags().GetString("config")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
		v.AddConfigPath("/etc/" + a.name)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(envPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Flags set on the command line win over file and env values.
	changedFlags := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changedFlags[f.Name] = f.Value.String()
		}
	})

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, val := range changedFlags {
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}

	return nil
}

// envPrefix returns the environment variable prefix for an application name.
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR references in string config values.
// Unknown variables are left as written.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			var varName string
			if strings.HasPrefix(match, "${") {
				varName = match[2 : len(match)-1]
			} else {
				varName = match[1:]
			}
			if envVal := os.Getenv(varName); envVal != "" {
				return envVal
			}
			return match
		})
		if expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// Run executes the application.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
