// Package tracing provides OpenTelemetry tracing options.
package tracing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// SamplerType defines the type of sampler to use.
type SamplerType string

const (
	// SamplerAlwaysOn samples all traces.
	SamplerAlwaysOn SamplerType = "always_on"
	// SamplerAlwaysOff never samples traces.
	SamplerAlwaysOff SamplerType = "always_off"
	// SamplerRatio samples traces based on a ratio.
	SamplerRatio SamplerType = "ratio"
	// SamplerParentBased follows the parent span and samples roots by ratio.
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType defines the type of exporter to use.
type ExporterType string

const (
	// ExporterOTLPGRPC exports spans via OTLP over gRPC.
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	// ExporterOTLPHTTP exports spans via OTLP over HTTP.
	ExporterOTLPHTTP ExporterType = "otlp_http"
	// ExporterStdout exports spans to stdout (for development).
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop does not export spans.
	ExporterNoop ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	// Enabled enables or disables tracing.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName is the service.name resource attribute.
	ServiceName string `json:"service-name" mapstructure:"service-name"`

	// Environment is the deployment environment (e.g., production, staging, development).
	Environment string `json:"environment" mapstructure:"environment"`

	// ExporterType specifies which exporter to use.
	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`

	// Endpoint is the OTLP exporter endpoint, "localhost:4317" for gRPC
	// and "localhost:4318" for HTTP.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// Headers are additional headers to send with OTLP requests.
	Headers map[string]string `json:"headers" mapstructure:"headers"`

	// SamplerType specifies the sampling strategy.
	SamplerType SamplerType `json:"sampler-type" mapstructure:"sampler-type"`

	// SamplerRatio is the sampling ratio (0.0 to 1.0) for ratio and parent based sampling.
	SamplerRatio float64 `json:"sampler-ratio" mapstructure:"sampler-ratio"`

	// BatchTimeout is the maximum time to wait before exporting a batch.
	BatchTimeout time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`

	// ExportTimeout is the maximum time allowed for exporting spans.
	ExportTimeout time.Duration `json:"export-timeout" mapstructure:"export-timeout"`

	// SkipPaths are request paths that never start a server span.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:       false,
		ServiceName:   "sentinel-user-center",
		Environment:   "development",
		ExporterType:  ExporterOTLPGRPC,
		Endpoint:      "localhost:4317",
		Insecure:      true,
		Headers:       make(map[string]string),
		SamplerType:   SamplerParentBased,
		SamplerRatio:  1.0,
		BatchTimeout:  5 * time.Second,
		ExportTimeout: 30 * time.Second,
		SkipPaths:     []string{"/healthz"},
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "tracing.enabled", o.Enabled, "Enable OpenTelemetry tracing")
	fs.StringVar(&o.ServiceName, "tracing.service-name", o.ServiceName, "Service name for tracing")
	fs.StringVar(&o.Environment, "tracing.environment", o.Environment, "Deployment environment")
	fs.StringVar((*string)(&o.ExporterType), "tracing.exporter-type", string(o.ExporterType), "Exporter type (otlp_grpc, otlp_http, stdout, noop)")
	fs.StringVar(&o.Endpoint, "tracing.endpoint", o.Endpoint, "OTLP exporter endpoint")
	fs.BoolVar(&o.Insecure, "tracing.insecure", o.Insecure, "Disable TLS for OTLP connection")
	fs.StringToStringVar(&o.Headers, "tracing.headers", o.Headers, "Additional OTLP request headers")
	fs.StringVar((*string)(&o.SamplerType), "tracing.sampler-type", string(o.SamplerType), "Sampler type (always_on, always_off, ratio, parent_based)")
	fs.Float64Var(&o.SamplerRatio, "tracing.sampler-ratio", o.SamplerRatio, "Sampling ratio (0.0 to 1.0)")
	fs.DurationVar(&o.BatchTimeout, "tracing.batch-timeout", o.BatchTimeout, "Maximum time to wait before exporting a batch")
	fs.DurationVar(&o.ExportTimeout, "tracing.export-timeout", o.ExportTimeout, "Maximum time allowed for exporting spans")
	fs.StringSliceVar(&o.SkipPaths, "tracing.skip-paths", o.SkipPaths, "Paths that are never traced")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}

	var errs []error
	if o.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing.service-name is required when tracing is enabled"))
	}

	switch o.ExporterType {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for exporter type %s", o.ExporterType))
		}
	case ExporterStdout, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter-type: invalid exporter type %q", o.ExporterType))
	}

	switch o.SamplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		errs = append(errs, fmt.Errorf("tracing.sampler-type: invalid sampler type %q", o.SamplerType))
	}

	if o.SamplerRatio < 0.0 || o.SamplerRatio > 1.0 {
		errs = append(errs, fmt.Errorf("tracing.sampler-ratio must be between 0.0 and 1.0, got %f", o.SamplerRatio))
	}
	if o.BatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracing.batch-timeout must be positive"))
	}
	if o.ExportTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracing.export-timeout must be positive"))
	}
	return errs
}

// Complete fills in any missing values with defaults.
func (o *Options) Complete() error {
	if o.Headers == nil {
		o.Headers = make(map[string]string)
	}
	if o.SamplerType == "" {
		o.SamplerType = SamplerParentBased
	}
	return nil
}
