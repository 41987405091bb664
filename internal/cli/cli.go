// Package cli provides the command-line interface for the launch-profile
// reconciler.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/protera/launchsync/internal/aws"
	"github.com/protera/launchsync/internal/config"
	"github.com/protera/launchsync/internal/factory"
	"github.com/protera/launchsync/internal/logger"
	"github.com/protera/launchsync/internal/reconcile"
	"github.com/protera/launchsync/internal/reporter"
	"github.com/protera/launchsync/internal/retry"
)

// AWSClient bundles the AWS-backed collaborators: actual-state snapshots,
// patch application, and the profile export.
type AWSClient interface {
	reconcile.SnapshotSource
	reconcile.Applier
	Snapshot(ctx context.Context, serverIDs []string) ([]aws.ServerSnapshot, error)
}

// App holds the CLI application dependencies. Zero fields fall back to the
// real implementations; tests inject mocks.
type App struct {
	Desired      reconcile.DesiredSource
	Reporter     reporter.RunReporter
	AWSClient    AWSClient
	Output       io.Writer
	NewAWSClient func(ctx context.Context, f *factory.Factory) (AWSClient, error)
}

var (
	desiredPath string
	region      string
	serverIDs   []string
	outputFmt   string
	logLevel    string
	timeout     time.Duration
	concurrency int
	dryRun      bool
	snapshotOut string
)

var (
	setupOnce  sync.Once
	defaultApp *App
	appCfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "launchsync",
		Short: "Reconcile DRS launch configurations and templates with desired state",
		Long: `A tool to keep the launch profiles of AWS DRS source servers in line
with an operator-maintained desired-state file.

For each server it compares the desired launch profile against the DRS
launch configuration and the default EC2 launch template version, then
applies the minimal set of changes: template changes become a new version
which is promoted to default, and configuration changes are patched in
place. Servers already in the desired state are left untouched.`,
		RunE: runReconcile,
	}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Show the changes a reconciliation would apply, without applying them",
		RunE:  runPlan,
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Export the current launch profiles as JSON",
		RunE:  runSnapshot,
	}
)

func newDefaultApp() *App {
	return &App{
		Output: os.Stdout,
		NewAWSClient: func(ctx context.Context, f *factory.Factory) (AWSClient, error) {
			client, err := f.CreateAWSClient(ctx)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

func setup(cfg *config.Config) {
	appCfg = cfg
	defaultApp = newDefaultApp()

	for _, cmd := range []*cobra.Command{rootCmd, planCmd} {
		cmd.Flags().StringVarP(&desiredPath, "desired-state", "d", cfg.DesiredStatePath,
			"Path to the desired-state HCL file (required)")
		cmd.Flags().StringVarP(&region, "region", "r", cfg.AWSRegion, "AWS region")
		cmd.Flags().StringSliceVarP(&serverIDs, "servers", "s", nil,
			"Source server IDs to reconcile (comma-separated, or all in the desired-state file)")
		cmd.Flags().StringVarP(&outputFmt, "output", "o", cfg.OutputFormat,
			"Output format: text, table, json")
		cmd.Flags().StringVar(&logLevel, "log-level", cfg.LogLevel,
			"Log level: debug, info, warn, error")
		cmd.Flags().DurationVar(&timeout, "timeout", cfg.Timeout, "Timeout for the whole run")
		cmd.Flags().IntVar(&concurrency, "concurrency", cfg.Concurrency,
			"Maximum servers reconciled in parallel")
		if cfg.DesiredStatePath == "" {
			must(cmd.MarkFlagRequired("desired-state"))
		}
	}
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only, apply nothing")
	rootCmd.Flags().StringVar(&snapshotOut, "snapshot-out", "",
		"Write a refreshed profile snapshot to this file after changes are applied")

	snapshotCmd.Flags().StringVarP(&region, "region", "r", cfg.AWSRegion, "AWS region")
	snapshotCmd.Flags().StringSliceVarP(&serverIDs, "servers", "s", nil,
		"Source server IDs to export (comma-separated, or all in the region)")
	snapshotCmd.Flags().StringVar(&logLevel, "log-level", cfg.LogLevel,
		"Log level: debug, info, warn, error")
	snapshotCmd.Flags().DurationVar(&timeout, "timeout", cfg.Timeout, "Timeout for the whole run")
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "Output file (defaults to stdout)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// newFactory maps the flag values onto a component factory for one command
// run.
func newFactory(dry bool) *factory.Factory {
	return factory.New(factory.Config{
		AWSRegion:        region,
		DesiredStatePath: desiredPath,
		OutputFormat:     outputFmt,
		Concurrency:      concurrency,
		DryRun:           dry,
		RetryConfig:      retryConfig(),
	})
}

// retryConfig carries the MAX_RETRIES and RETRY_DELAY_SECONDS settings into
// the AWS retry policy.
func retryConfig() retry.Config {
	cfg := retry.AWSConfig.WithShouldRetry(aws.IsRetryableError)
	if appCfg == nil {
		return cfg
	}
	if appCfg.MaxRetries > 0 {
		cfg = cfg.WithMaxAttempts(appCfg.MaxRetries)
	}
	if appCfg.RetryDelay > 0 {
		cfg = cfg.WithInitialDelay(appCfg.RetryDelay)
	}
	return cfg
}

// Run executes the CLI.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupOnce.Do(func() { setup(cfg) })
	return rootCmd.Execute()
}

func runReconcile(cmd *cobra.Command, args []string) error {
	return reconcileWith(dryRun)
}

func runPlan(cmd *cobra.Command, args []string) error {
	return reconcileWith(true)
}

func reconcileWith(dry bool) error {
	logger.SetDefault(logger.New(os.Stderr, logger.ParseLevel(logLevel)))
	logger.Info("starting launch-profile reconciliation",
		"desired_state", desiredPath, "region", region, "dry_run", dry)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	f := newFactory(dry)

	desired, err := getDesired(f)
	if err != nil {
		logger.Error("failed to load desired state", "path", desiredPath, "error", err)
		return fmt.Errorf("failed to load desired state: %w", err)
	}
	if len(desired.ServerIDs()) == 0 {
		return fmt.Errorf("no server records found in %s", desiredPath)
	}

	client, err := getAWSClient(ctx, f)
	if err != nil {
		logger.Error("failed to create AWS client", "region", region, "error", err)
		return fmt.Errorf("failed to create AWS client: %w", err)
	}

	reconciler := reconcile.New(desired, client, client,
		reconcile.WithConcurrency(concurrency),
		reconcile.WithDryRun(dry))
	report := reconciler.Run(ctx, serverIDs)

	rep, err := getReporter(f)
	if err != nil {
		return err
	}
	if err := rep.Report(report); err != nil {
		return err
	}

	// The exported snapshot reflects the post-change state, so it is only
	// refreshed when something was actually applied.
	if report.AnyChanges && snapshotOut != "" {
		if err := exportSnapshot(ctx, client, serverIDs, snapshotOut); err != nil {
			logger.Error("failed to refresh profile snapshot", "error", err)
			return err
		}
		logger.Info("profile snapshot refreshed", "path", snapshotOut)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d servers failed", report.Failed, report.Total)
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger.SetDefault(logger.New(os.Stderr, logger.ParseLevel(logLevel)))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := getAWSClient(ctx, newFactory(false))
	if err != nil {
		logger.Error("failed to create AWS client", "region", region, "error", err)
		return fmt.Errorf("failed to create AWS client: %w", err)
	}

	if snapshotOut != "" {
		return exportSnapshot(ctx, client, serverIDs, snapshotOut)
	}

	snapshots, err := client.Snapshot(ctx, serverIDs)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(defaultApp.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshots)
}

func exportSnapshot(ctx context.Context, client AWSClient, serverIDs []string, path string) error {
	snapshots, err := client.Snapshot(ctx, serverIDs)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func getDesired(f *factory.Factory) (reconcile.DesiredSource, error) {
	if defaultApp.Desired != nil {
		return defaultApp.Desired, nil
	}
	return f.CreateDesiredStore()
}

func getReporter(f *factory.Factory) (reporter.RunReporter, error) {
	if defaultApp.Reporter != nil {
		return defaultApp.Reporter, nil
	}
	return f.CreateReporter(defaultApp.Output)
}

func getAWSClient(ctx context.Context, f *factory.Factory) (AWSClient, error) {
	if defaultApp.AWSClient != nil {
		return defaultApp.AWSClient, nil
	}
	return defaultApp.NewAWSClient(ctx, f)
}
