// Package factory provides factories for creating configured application
// components. It centralizes component creation so the CLI layer stays a
// thin flag-to-config mapping, and gives tests a single place to inject
// mock implementations.
package factory

import (
	"context"
	"io"

	"github.com/protera/launchsync/internal/aws"
	"github.com/protera/launchsync/internal/desiredstate"
	"github.com/protera/launchsync/internal/reconcile"
	"github.com/protera/launchsync/internal/reporter"
	"github.com/protera/launchsync/internal/reporter/formatter"
	"github.com/protera/launchsync/internal/retry"
)

// Config holds all configuration for the application.
type Config struct {
	// AWSRegion is the AWS region for DRS and EC2 API calls.
	AWSRegion string

	// DesiredStatePath is the path to the desired-state HCL file.
	DesiredStatePath string

	// OutputFormat is the format for run reports (text, json, table).
	OutputFormat string

	// Concurrency is the maximum number of servers reconciled in parallel.
	Concurrency int

	// DryRun computes patch plans without applying them.
	DryRun bool

	// RetryConfig configures retry behavior for AWS API calls.
	RetryConfig retry.Config
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AWSRegion:    "us-east-1",
		OutputFormat: "text",
		Concurrency:  reconcile.DefaultConcurrency,
		RetryConfig:  retry.AWSConfig,
	}
}

// Factory creates application components with configured dependencies.
type Factory struct {
	config Config

	// Cached components for reuse
	awsClient  *aws.Client
	store      *desiredstate.Store
	formatters *formatter.Registry
}

// New creates a new Factory with the given configuration.
func New(config Config) *Factory {
	return &Factory{
		config:     config,
		formatters: formatter.NewRegistry(),
	}
}

// Config returns the factory's configuration.
func (f *Factory) Config() Config {
	return f.config
}

// CreateAWSClient creates a configured AWS client. The client is cached and
// reused for subsequent calls.
func (f *Factory) CreateAWSClient(ctx context.Context) (*aws.Client, error) {
	if f.awsClient != nil {
		return f.awsClient, nil
	}

	client, err := aws.NewClient(ctx, f.config.AWSRegion,
		aws.WithRetryConfig(f.config.RetryConfig))
	if err != nil {
		return nil, err
	}

	f.awsClient = client
	return client, nil
}

// CreateDesiredStore loads the desired-state file. The store is cached and
// reused for subsequent calls.
func (f *Factory) CreateDesiredStore() (*desiredstate.Store, error) {
	if f.store != nil {
		return f.store, nil
	}

	store, err := desiredstate.Load(f.config.DesiredStatePath)
	if err != nil {
		return nil, err
	}

	f.store = store
	return store, nil
}

// CreateReconciler creates a fully wired reconciler: desired state from the
// HCL store, actual state and apply through the AWS client.
func (f *Factory) CreateReconciler(ctx context.Context) (*reconcile.Reconciler, error) {
	store, err := f.CreateDesiredStore()
	if err != nil {
		return nil, err
	}
	client, err := f.CreateAWSClient(ctx)
	if err != nil {
		return nil, err
	}

	return reconcile.New(store, client, client,
		reconcile.WithConcurrency(f.config.Concurrency),
		reconcile.WithDryRun(f.config.DryRun)), nil
}

// CreateReporter creates a configured reporter.
func (f *Factory) CreateReporter(w io.Writer) (reporter.RunReporter, error) {
	return reporter.New(w, f.config.OutputFormat)
}

// CreateFormatter returns a formatter for the configured output format.
func (f *Factory) CreateFormatter() (formatter.Formatter, bool) {
	return f.formatters.Get(f.config.OutputFormat)
}

// FormattersRegistry returns the formatters registry for custom formatter
// registration.
func (f *Factory) FormattersRegistry() *formatter.Registry {
	return f.formatters
}
