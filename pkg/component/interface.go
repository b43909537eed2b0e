// Package component holds the clients of external systems the service
// depends on and the contract shared by their options.
package component

import "github.com/spf13/pflag"

// ConfigOptions is implemented by every options group loaded from flags and
// the config file.
//
// Callers run Complete before Validate:
//
//	for _, o := range []component.ConfigOptions{dbOpts, redisOpts} {
//	    if err := o.Complete(); err != nil {
//	        return err
//	    }
//	}
type ConfigOptions interface {
	// Complete fills in defaults and values derived from the environment.
	Complete() error

	// Validate returns every problem found, or nil.
	Validate() []error

	// AddFlags registers the group's flags on fs. Flag names carry the
	// group prefix, e.g. "db.driver".
	AddFlags(fs *pflag.FlagSet)
}
