package options

import "github.com/spf13/pflag"

// SeedOptions controls creation of the default roles and permissions.
type SeedOptions struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// NewSeedOptions creates a new SeedOptions with seeding on.
func NewSeedOptions() *SeedOptions {
	return &SeedOptions{Enabled: true}
}

// Complete implements component.ConfigOptions.
func (o *SeedOptions) Complete() error { return nil }

// Validate implements component.ConfigOptions.
func (o *SeedOptions) Validate() []error { return nil }

// AddFlags adds flags for seeding to the specified FlagSet.
func (o *SeedOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "seed.enabled", o.Enabled, "Create the default roles and permissions on start")
}
