package jwt

import (
	"fmt"
	"os"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/pflag"
)

const (
	// DefaultSigningMethod is the default JWT signing algorithm.
	DefaultSigningMethod = "HS256"

	// DefaultExpired is the default token expiration time.
	DefaultExpired = 2 * time.Hour

	// DefaultMaxRefresh is the default maximum refresh duration.
	DefaultMaxRefresh = 24 * time.Hour

	// DefaultIssuer is the default token issuer.
	DefaultIssuer = "sentinel-iam"

	// MinKeyLength is the minimum key length for HMAC algorithms (512 bits).
	MinKeyLength = 64

	// RecommendedKeyLength is the recommended key length for HMAC algorithms.
	RecommendedKeyLength = 128

	// MaxKeyLength is the maximum allowed key length.
	MaxKeyLength = 512

	// EnvKey is the environment variable consulted when no key is configured.
	EnvKey = "JWT_KEY"
)

// SupportedSigningMethods contains all supported JWT signing algorithms.
var SupportedSigningMethods = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
	"RS256": true,
	"RS384": true,
	"RS512": true,
	"ES256": true,
	"ES384": true,
	"ES512": true,
}

// Options contains JWT configuration.
type Options struct {
	// Key is the HMAC secret or the PEM encoded private key for RS/ES algorithms.
	Key string `json:"key" mapstructure:"key"`

	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Expired is the access token lifetime.
	Expired time.Duration `json:"expired" mapstructure:"expired"`

	// MaxRefresh bounds how long after issuance a token may still be refreshed.
	MaxRefresh time.Duration `json:"max-refresh" mapstructure:"max-refresh"`

	Issuer   string   `json:"issuer" mapstructure:"issuer"`
	Audience []string `json:"audience" mapstructure:"audience"`

	// PublicKey is the PEM encoded public key for RS/ES algorithms.
	PublicKey string `json:"public-key" mapstructure:"public-key"`

	// KeyID is written to the kid header when set.
	KeyID string `json:"key-id" mapstructure:"key-id"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		SigningMethod: DefaultSigningMethod,
		Expired:       DefaultExpired,
		MaxRefresh:    DefaultMaxRefresh,
		Issuer:        DefaultIssuer,
		Audience:      []string{},
	}
}

// Validate validates the JWT options.
func (o *Options) Validate() []error {
	var errs []error

	if !SupportedSigningMethods[o.SigningMethod] {
		errs = append(errs, fmt.Errorf("unsupported signing method: %s", o.SigningMethod))
	}

	if err := o.validateKey(); err != nil {
		errs = append(errs, err)
	}

	if o.Expired <= 0 {
		errs = append(errs, fmt.Errorf("jwt.expired must be positive, got: %v", o.Expired))
	}

	if o.MaxRefresh <= 0 {
		errs = append(errs, fmt.Errorf("jwt.max-refresh must be positive, got: %v", o.MaxRefresh))
	} else if o.MaxRefresh < o.Expired {
		errs = append(errs, fmt.Errorf("jwt.max-refresh (%v) must be >= jwt.expired (%v)", o.MaxRefresh, o.Expired))
	}

	return errs
}

func (o *Options) validateKey() error {
	if o.Key == "" {
		return fmt.Errorf("jwt key is required (set --jwt.key or %s)", EnvKey)
	}

	if !o.isHMAC() {
		return nil
	}

	if len(o.Key) < MinKeyLength {
		return fmt.Errorf("jwt key must be at least %d characters for HMAC algorithms, got: %d",
			MinKeyLength, len(o.Key))
	}
	if len(o.Key) > MaxKeyLength {
		return fmt.Errorf("jwt key must be at most %d characters, got: %d",
			MaxKeyLength, len(o.Key))
	}
	if len(o.Key) < RecommendedKeyLength {
		logger.Warnw("jwt key is shorter than recommended",
			"length", len(o.Key),
			"recommended", RecommendedKeyLength)
	}
	return nil
}

func (o *Options) isHMAC() bool {
	return o.SigningMethod == "HS256" || o.SigningMethod == "HS384" || o.SigningMethod == "HS512"
}

// Complete fills in default values for unset fields and reads the key from
// the environment when none was configured.
func (o *Options) Complete() error {
	if o.Key == "" {
		o.Key = os.Getenv(EnvKey)
	}
	if o.SigningMethod == "" {
		o.SigningMethod = DefaultSigningMethod
	}
	if o.Expired == 0 {
		o.Expired = DefaultExpired
	}
	if o.MaxRefresh == 0 {
		o.MaxRefresh = DefaultMaxRefresh
	}
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	return nil
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Key, "jwt.key", o.Key,
		"JWT signing key (min 64 chars for HMAC algorithms). Falls back to $"+EnvKey+".")
	fs.StringVar(&o.SigningMethod, "jwt.signing-method", o.SigningMethod,
		"JWT signing algorithm (HS256, HS384, HS512, RS256, RS384, RS512, ES256, ES384, ES512)")
	fs.DurationVar(&o.Expired, "jwt.expired", o.Expired,
		"JWT token expiration duration")
	fs.DurationVar(&o.MaxRefresh, "jwt.max-refresh", o.MaxRefresh,
		"Maximum duration after issuance a token can be refreshed")
	fs.StringVar(&o.Issuer, "jwt.issuer", o.Issuer,
		"JWT token issuer (iss claim)")
	fs.StringSliceVar(&o.Audience, "jwt.audience", o.Audience,
		"JWT token audience (aud claim)")
	fs.StringVar(&o.PublicKey, "jwt.public-key", o.PublicKey,
		"JWT public key for RSA/ECDSA algorithms")
	fs.StringVar(&o.KeyID, "jwt.key-id", o.KeyID,
		"JWT key identifier (kid header)")
}
