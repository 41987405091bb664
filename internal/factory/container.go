package factory

import (
	"context"
	"os"

	"github.com/protera/launchsync/internal/reconcile"
	"github.com/protera/launchsync/internal/reporter"
)

// Container holds application dependencies for dependency injection. It is
// useful for testing when you need to inject mock implementations.
type Container struct {
	Desired    reconcile.DesiredSource
	Snapshots  reconcile.SnapshotSource
	Applier    reconcile.Applier
	Reconciler *reconcile.Reconciler
	Reporter   reporter.RunReporter
}

// Builder creates containers with optional overrides for testing.
type Builder struct {
	factory   *Factory
	overrides map[string]any
}

// NewBuilder creates a new container builder.
func NewBuilder(factory *Factory) *Builder {
	return &Builder{
		factory:   factory,
		overrides: make(map[string]any),
	}
}

// WithDesiredSource sets a custom desired-state source.
func (b *Builder) WithDesiredSource(s reconcile.DesiredSource) *Builder {
	b.overrides["desired"] = s
	return b
}

// WithSnapshotSource sets a custom actual-state source.
func (b *Builder) WithSnapshotSource(s reconcile.SnapshotSource) *Builder {
	b.overrides["snapshots"] = s
	return b
}

// WithApplier sets a custom applier.
func (b *Builder) WithApplier(a reconcile.Applier) *Builder {
	b.overrides["applier"] = a
	return b
}

// WithReporter sets a custom reporter.
func (b *Builder) WithReporter(r reporter.RunReporter) *Builder {
	b.overrides["reporter"] = r
	return b
}

// Build creates a container with the configured components. Components with
// overrides use the provided implementations; others are created using the
// factory.
func (b *Builder) Build(ctx context.Context) (*Container, error) {
	c := &Container{}

	if s, ok := b.overrides["desired"].(reconcile.DesiredSource); ok {
		c.Desired = s
	} else {
		store, err := b.factory.CreateDesiredStore()
		if err != nil {
			return nil, err
		}
		c.Desired = store
	}

	needsClient := false
	if s, ok := b.overrides["snapshots"].(reconcile.SnapshotSource); ok {
		c.Snapshots = s
	} else {
		needsClient = true
	}
	if a, ok := b.overrides["applier"].(reconcile.Applier); ok {
		c.Applier = a
	} else {
		needsClient = true
	}
	if needsClient {
		client, err := b.factory.CreateAWSClient(ctx)
		if err != nil {
			return nil, err
		}
		if c.Snapshots == nil {
			c.Snapshots = client
		}
		if c.Applier == nil {
			c.Applier = client
		}
	}

	if r, ok := b.overrides["reporter"].(reporter.RunReporter); ok {
		c.Reporter = r
	} else {
		rep, err := b.factory.CreateReporter(os.Stdout)
		if err != nil {
			return nil, err
		}
		c.Reporter = rep
	}

	cfg := b.factory.Config()
	c.Reconciler = reconcile.New(c.Desired, c.Snapshots, c.Applier,
		reconcile.WithConcurrency(cfg.Concurrency),
		reconcile.WithDryRun(cfg.DryRun))

	return c, nil
}
