package reconcile

import (
	"context"
	"sort"

	"github.com/protera/launchsync/internal/logger"
	"github.com/protera/launchsync/internal/models"
	"github.com/protera/launchsync/internal/worker"
)

// DefaultConcurrency bounds the per-server fan-out when no limit is given.
const DefaultConcurrency = 10

// DesiredSource provides desired-state records. Loaders must preserve
// field absence: a field the operator left blank arrives as nil, never as a
// loader-substituted default.
type DesiredSource interface {
	// Get returns the record for a server, and whether one exists.
	Get(serverID string) (*models.DesiredStateRecord, bool)
	// ServerIDs lists all servers with a desired-state record.
	ServerIDs() []string
}

// SnapshotSource loads the actual state of one server: its launch
// configuration and the launch template version it points at.
type SnapshotSource interface {
	ActualState(ctx context.Context, serverID string) (*models.ActualConfigurationState, *models.ActualTemplateState, error)
}

// Applier executes a patch plan against the resource manager. Calls are
// atomic from the reconciler's perspective; retry policy belongs to the
// implementation, never to the reconciler.
type Applier interface {
	// CreateTemplateVersion creates a new template version from the patch's
	// source version plus its changed sections, returning the new version
	// number. The existing version is never mutated.
	CreateTemplateVersion(ctx context.Context, patch models.TemplatePatch) (int64, error)
	// PromoteDefaultVersion repoints the template's default-version alias.
	PromoteDefaultVersion(ctx context.Context, templateID string, version int64) error
	// UpdateConfiguration patches the launch configuration in place.
	UpdateConfiguration(ctx context.Context, serverID string, patch models.ConfigurationPatch) error
}

// Reconciler drives planning and application across source servers.
type Reconciler struct {
	desired   DesiredSource
	snapshots SnapshotSource
	applier   Applier
	pool      *worker.Pool
	dryRun    bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithConcurrency bounds the number of servers reconciled in parallel.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		r.pool = worker.NewPool(n)
	}
}

// WithDryRun computes patch plans without applying them.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// New creates a Reconciler. All collaborators are explicit dependencies;
// there are no ambient clients.
func New(desired DesiredSource, snapshots SnapshotSource, applier Applier, opts ...Option) *Reconciler {
	r := &Reconciler{
		desired:   desired,
		snapshots: snapshots,
		applier:   applier,
		pool:      worker.NewPool(DefaultConcurrency),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles the given servers, or every server with a desired-state
// record when serverIDs is empty. Failures are scoped to their server;
// processing always continues and every server produces exactly one result.
func (r *Reconciler) Run(ctx context.Context, serverIDs []string) *models.RunReport {
	ids := serverIDs
	if len(ids) == 0 {
		ids = r.desired.ServerIDs()
		sort.Strings(ids)
	}

	logger.Info("starting reconciliation",
		"servers", len(ids),
		"concurrency", r.pool.Concurrency(),
		"dry_run", r.dryRun)

	results := worker.RunFunc(ctx, r.pool, ids, r.reconcileOne)

	report := &models.RunReport{
		Total:   len(ids),
		DryRun:  r.dryRun,
		Results: make([]models.ReconcileResult, 0, len(ids)),
	}

	for i, res := range results {
		result := res.Value
		if res.Err != nil {
			// Pool-level failure (context canceled before the server ran).
			result = models.ReconcileResult{
				SourceServerID: ids[i],
				Outcome:        models.OutcomeFailed,
				Error:          res.Err.Error(),
			}
		}
		report.Results = append(report.Results, result)

		switch result.Outcome {
		case models.OutcomeFailed:
			report.Failed++
		case models.OutcomeConfigUpdated, models.OutcomeTemplateUpdated, models.OutcomeBothUpdated:
			report.Updated++
			if !r.dryRun {
				report.AnyChanges = true
			}
		}
	}

	logger.Info("reconciliation finished",
		"total", report.Total,
		"updated", report.Updated,
		"failed", report.Failed,
		"any_changes", report.AnyChanges)

	return report
}

// reconcileOne runs the per-server state machine: load desired and actual
// state, build the patch plan, then apply it (template version before
// default-version promotion before configuration).
func (r *Reconciler) reconcileOne(ctx context.Context, serverID string) (models.ReconcileResult, error) {
	log := logger.Default().With("source_server_id", serverID)
	result := models.ReconcileResult{
		SourceServerID: serverID,
		Outcome:        models.OutcomeNoOp,
	}

	desired, ok := r.desired.Get(serverID)
	if !ok {
		err := newMissingRecordError(serverID)
		log.Error("desired-state record missing")
		return failed(result, err), nil
	}
	result.Hostname = desired.Hostname

	cfg, tmpl, err := r.snapshots.ActualState(ctx, serverID)
	if err != nil {
		log.Error("failed to load actual state", "error", err)
		return failed(result, err), nil
	}
	if cfg == nil || tmpl == nil {
		// An absent snapshot is an explicit failure, never an all-empty
		// comparison baseline.
		err := newMissingSnapshotError(serverID)
		log.Error("actual state unavailable")
		return failed(result, err), nil
	}

	plan, err := BuildPlan(desired, cfg, tmpl)
	if err != nil {
		log.Error("patch planning failed", "error", err)
		return failed(result, err), nil
	}

	result.ConfigPlanned = plan.ConfigurationChanged
	result.TemplatePlanned = plan.TemplateChanged
	result.Outcome = outcomeFor(plan)

	if result.Outcome == models.OutcomeNoOp {
		log.Debug("no changes required")
		return result, nil
	}

	if r.dryRun {
		log.Info("dry run, skipping apply",
			"config_dirty", plan.ConfigurationChanged,
			"template_dirty", plan.TemplateChanged)
		return result, nil
	}

	// Template version creation must precede any reference to it; the
	// configuration patch goes last.
	if plan.TemplateChanged {
		version, err := r.applier.CreateTemplateVersion(ctx, plan.Template)
		if err != nil {
			log.Error("failed to create template version", "error", err)
			return failed(result, err), nil
		}
		result.NewVersion = version

		if err := r.applier.PromoteDefaultVersion(ctx, plan.Template.TemplateID, version); err != nil {
			log.Error("failed to promote template version",
				"version", version, "error", err)
			return failed(result, err), nil
		}
		log.Info("launch template updated",
			"template_id", plan.Template.TemplateID,
			"version", version)
	}

	if plan.ConfigurationChanged {
		if err := r.applier.UpdateConfiguration(ctx, serverID, plan.Configuration); err != nil {
			log.Error("failed to update launch configuration", "error", err)
			return failed(result, err), nil
		}
		log.Info("launch configuration updated")
	}

	return result, nil
}

func outcomeFor(plan *models.PatchPlan) models.Outcome {
	switch {
	case plan.ConfigurationChanged && plan.TemplateChanged:
		return models.OutcomeBothUpdated
	case plan.ConfigurationChanged:
		return models.OutcomeConfigUpdated
	case plan.TemplateChanged:
		return models.OutcomeTemplateUpdated
	default:
		return models.OutcomeNoOp
	}
}

func failed(result models.ReconcileResult, err error) models.ReconcileResult {
	result.Outcome = models.OutcomeFailed
	result.Error = err.Error()
	return result
}
