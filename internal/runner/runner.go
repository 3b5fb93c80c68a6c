// Copyright Contributors to the TaskBench project

// Package runner sequences the lifecycle of one benchmark task:
// Setup materializes scenario state, an external agent acts, Verify
// checks the resulting cluster state, Cleanup erases everything. Each
// run is a single logical thread of sequential phases; concurrency
// safety across runs comes from namespace-per-task isolation, not
// locking.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/assertion"
	"github.com/kubetask/taskbench/internal/cluster"
	"github.com/kubetask/taskbench/internal/poller"
	"github.com/kubetask/taskbench/internal/report"
)

// State is the run's position in the lifecycle state machine.
type State string

const (
	StatePending        State = "Pending"
	StateSetupRunning   State = "SetupRunning"
	StateAwaitingAction State = "AwaitingAction"
	StateVerifyRunning  State = "VerifyRunning"
	StateCleanupRunning State = "CleanupRunning"
	StateDone           State = "Done"
	// StateAborted is terminal and reachable from any non-Done state on
	// unrecoverable error.
	StateAborted State = "Aborted"
)

// ErrWrongState is returned when a phase is invoked out of order.
var ErrWrongState = errors.New("run is not in a state that allows this phase")

// Runner executes task definitions against a cluster through an Accessor.
type Runner struct {
	accessor cluster.Accessor
	log      logr.Logger

	setupTimeout   time.Duration
	cleanupTimeout time.Duration
	pollInterval   time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(log logr.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithSetupTimeout bounds the setup readiness wait.
func WithSetupTimeout(d time.Duration) Option {
	return func(r *Runner) { r.setupTimeout = d }
}

// WithCleanupTimeout bounds the per-target disappearance wait in cleanup.
func WithCleanupTimeout(d time.Duration) Option {
	return func(r *Runner) { r.cleanupTimeout = d }
}

// WithPollInterval sets the fixed polling interval for readiness and
// cleanup waits.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) { r.pollInterval = d }
}

// New builds a Runner.
func New(accessor cluster.Accessor, opts ...Option) *Runner {
	r := &Runner{
		accessor:       accessor,
		log:            logr.Discard(),
		setupTimeout:   poller.DefaultSetupTimeout,
		cleanupTimeout: 30 * time.Second,
		pollInterval:   poller.DefaultInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunHandle is the live record of one run. It is owned by the Runner that
// created it and must not be shared across concurrent runs.
type RunHandle struct {
	def    *taskbenchv1alpha1.TaskDefinition
	state  State
	result *report.TaskRunResult

	// applied tracks what Setup created, most recent last, so a failed
	// setup can roll back in reverse order.
	applied []taskbenchv1alpha1.ObjectRef

	// createdNamespace is true when the runner created the task namespace
	// and therefore owns its deletion.
	createdNamespace bool
}

// Resume returns a handle for a task whose setup ran in an earlier
// invocation, so verify and cleanup can run as standalone commands.
// The resumed run starts in AwaitingAction with Setup recorded as
// skipped. Cleanup on a resumed run leaves the task namespace in place
// because this process did not create it.
func Resume(def *taskbenchv1alpha1.TaskDefinition) (*RunHandle, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &RunHandle{
		def:   def,
		state: StateAwaitingAction,
		result: &report.TaskRunResult{
			TaskID:     def.ID(),
			Difficulty: def.Spec.Difficulty,
			Phases: []report.PhaseOutcome{{
				Phase:  report.PhaseSetup,
				Status: report.PhaseSkipped,
			}},
		},
	}, nil
}

// State returns the run's current lifecycle state.
func (h *RunHandle) State() State {
	return h.state
}

// Definition returns the task definition this run executes.
func (h *RunHandle) Definition() *taskbenchv1alpha1.TaskDefinition {
	return h.def
}

// Result returns the run record accumulated so far.
func (h *RunHandle) Result() *report.TaskRunResult {
	return h.result
}

// RunSetup validates the definition, materializes its setup resources in
// declared order, and waits for the readiness condition when one is set.
// Setup uses apply semantics, so re-running converges instead of erroring.
// A failure on any resource is fatal to the run; the runner rolls back
// whatever was already applied before aborting, to avoid leaking state.
func (r *Runner) RunSetup(ctx context.Context, def *taskbenchv1alpha1.TaskDefinition) (*RunHandle, error) {
	// Definitional errors are fatal before any cluster interaction.
	if err := def.Validate(); err != nil {
		return nil, err
	}

	handle := &RunHandle{
		def:   def,
		state: StatePending,
		result: &report.TaskRunResult{
			TaskID:     def.ID(),
			Difficulty: def.Spec.Difficulty,
		},
	}

	handle.state = StateSetupRunning
	start := time.Now()
	log := r.log.WithValues("task", def.ID())

	abort := func(err error) (*RunHandle, error) {
		log.Error(err, "setup aborted, rolling back applied resources")
		r.rollback(ctx, handle)
		handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
			Phase:    report.PhaseSetup,
			Status:   report.PhaseAborted,
			Duration: time.Since(start),
			Error:    err.Error(),
		})
		handle.state = StateAborted
		handle.result.Finalize()
		return handle, err
	}

	if err := r.ensureNamespace(ctx, handle); err != nil {
		return abort(err)
	}

	for i := range def.Spec.Setup.Resources {
		manifest := def.Spec.Setup.Resources[i].DeepCopy()
		if manifest.GetNamespace() == "" && !cluster.IsClusterScoped(manifest.GetKind()) {
			manifest.SetNamespace(def.Spec.Namespace)
		}
		// Each apply returns before the next is issued: later resources
		// may depend on earlier ones.
		applied, err := r.accessor.Apply(ctx, manifest)
		if err != nil {
			return abort(fmt.Errorf("setup resource %d (%s %s): %w", i, manifest.GetKind(), manifest.GetName(), err))
		}
		handle.applied = append(handle.applied, taskbenchv1alpha1.ObjectRef{
			APIVersion: applied.GetAPIVersion(),
			Kind:       applied.GetKind(),
			Namespace:  applied.GetNamespace(),
			Name:       applied.GetName(),
		})
		log.V(1).Info("applied setup resource", "kind", manifest.GetKind(), "name", manifest.GetName())
	}

	if readiness := def.Spec.Setup.Readiness; readiness != nil {
		if err := r.awaitCondition(ctx, def, readiness); err != nil {
			return abort(fmt.Errorf("setup readiness: %w", err))
		}
	}

	handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
		Phase:    report.PhaseSetup,
		Status:   report.PhaseSucceeded,
		Duration: time.Since(start),
	})
	// Control returns to the caller; the external agent acts now. The
	// runner imposes no timeout on the action phase.
	handle.state = StateAwaitingAction
	log.Info("setup complete, awaiting action", "resources", len(handle.applied))
	return handle, nil
}

// RunVerify evaluates every assertion in declared order. Assertions are
// independent: one failure never prevents evaluating the rest. Mismatches
// are results, not errors; RunVerify itself fails only on cancellation or
// an invalid handle state.
func (r *Runner) RunVerify(ctx context.Context, handle *RunHandle) (*report.TaskRunResult, error) {
	if handle.state != StateAwaitingAction {
		return nil, fmt.Errorf("%w: verify from %s", ErrWrongState, handle.state)
	}
	handle.state = StateVerifyRunning
	start := time.Now()
	log := r.log.WithValues("task", handle.def.ID())

	for _, a := range handle.def.Spec.Assertions {
		if ctx.Err() != nil {
			handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
				Phase:    report.PhaseVerify,
				Status:   report.PhaseAborted,
				Duration: time.Since(start),
				Error:    ctx.Err().Error(),
			})
			handle.state = StateAborted
			handle.result.Finalize()
			return handle.result, ctx.Err()
		}
		if a.Target.Namespace == "" && !cluster.IsClusterScoped(a.Target.Kind) {
			a.Target.Namespace = handle.def.Spec.Namespace
		}
		res := assertion.Evaluate(ctx, r.accessor, a)
		handle.result.Assertions = append(handle.result.Assertions, res)
		if res.Failed() {
			log.Info("assertion failed",
				"assertion", res.Name,
				"expected", res.Expected,
				"observed", res.Observed,
				"severity", res.Severity)
		}
	}

	handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
		Phase:    report.PhaseVerify,
		Status:   report.PhaseSucceeded,
		Duration: time.Since(start),
	})
	handle.result.Finalize()
	return handle.result, nil
}

// RunCleanup deletes the definition's cleanup targets in declared
// (reverse-dependency) order. "Already absent" is success; any other
// delete failure, and residue still present after the disappearance wait,
// becomes a cleanup warning on the run report rather than a crash, so
// cleanup problems are visible without blocking subsequent runs.
func (r *Runner) RunCleanup(ctx context.Context, handle *RunHandle) error {
	switch handle.state {
	case StateAwaitingAction, StateVerifyRunning, StateAborted:
	default:
		return fmt.Errorf("%w: cleanup from %s", ErrWrongState, handle.state)
	}
	handle.state = StateCleanupRunning
	start := time.Now()
	log := r.log.WithValues("task", handle.def.ID())

	for _, target := range handle.def.Spec.Cleanup.Targets {
		if ctx.Err() != nil {
			handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
				Phase:    report.PhaseCleanup,
				Status:   report.PhaseAborted,
				Duration: time.Since(start),
				Error:    ctx.Err().Error(),
			})
			handle.state = StateAborted
			handle.result.Finalize()
			return ctx.Err()
		}
		if target.Namespace == "" && !cluster.IsClusterScoped(target.Kind) {
			target.Namespace = handle.def.Spec.Namespace
		}
		r.deleteAndConfirm(ctx, handle, target)
	}

	if handle.createdNamespace {
		r.deleteAndConfirm(ctx, handle, taskbenchv1alpha1.ObjectRef{
			Kind: "Namespace",
			Name: handle.def.Spec.Namespace,
		})
	}

	handle.result.Phases = append(handle.result.Phases, report.PhaseOutcome{
		Phase:    report.PhaseCleanup,
		Status:   report.PhaseSucceeded,
		Duration: time.Since(start),
	})
	handle.state = StateDone
	handle.result.Finalize()
	log.Info("cleanup complete", "warnings", len(handle.result.CleanupWarnings))
	return nil
}

// deleteAndConfirm issues the delete and waits for the object to be gone.
// All failure modes are recorded as warnings, never returned.
func (r *Runner) deleteAndConfirm(ctx context.Context, handle *RunHandle, target taskbenchv1alpha1.ObjectRef) {
	warn := func(format string, args ...interface{}) {
		handle.result.CleanupWarnings = append(handle.result.CleanupWarnings, fmt.Sprintf(format, args...))
	}

	if err := r.accessor.Delete(ctx, target); err != nil {
		if cluster.IsNotFound(err) {
			return // already absent is success
		}
		warn("delete %s %s/%s: %v", target.Kind, target.Namespace, target.Name, err)
		return
	}

	_, err := poller.Await(ctx, poller.Config{
		Name:     fmt.Sprintf("%s %s/%s gone", target.Kind, target.Namespace, target.Name),
		Interval: r.pollInterval,
		Timeout:  r.cleanupTimeout,
	}, func(pollCtx context.Context) (poller.Snapshot, bool, error) {
		obj, getErr := r.accessor.Get(pollCtx, target)
		if getErr != nil {
			if cluster.IsNotFound(getErr) {
				return nil, true, nil
			}
			if cluster.IsTerminal(getErr) {
				return nil, false, getErr
			}
			return nil, false, nil
		}
		return obj, false, nil
	})
	if err != nil {
		warn("%s %s/%s still exists after cleanup: %v", target.Kind, target.Namespace, target.Name, err)
	}
}

// ensureNamespace creates the task namespace when it does not exist yet
// and records ownership so cleanup can remove it again.
func (r *Runner) ensureNamespace(ctx context.Context, handle *RunHandle) error {
	ns := handle.def.Spec.Namespace
	ref := taskbenchv1alpha1.ObjectRef{Kind: "Namespace", Name: ns}
	_, err := r.accessor.Get(ctx, ref)
	if err == nil {
		return nil
	}
	if !cluster.IsNotFound(err) {
		return fmt.Errorf("check namespace %s: %w", ns, err)
	}

	manifest := namespaceManifest(ns, handle.def.ID())
	if _, err := r.accessor.Apply(ctx, manifest); err != nil {
		return fmt.Errorf("create namespace %s: %w", ns, err)
	}
	handle.createdNamespace = true
	return nil
}

// awaitCondition polls the readiness condition until it holds or the
// setup timeout expires.
func (r *Runner) awaitCondition(ctx context.Context, def *taskbenchv1alpha1.TaskDefinition, cond *taskbenchv1alpha1.Condition) error {
	probe := taskbenchv1alpha1.Assertion{
		Target:     cond.Target,
		FieldPath:  cond.FieldPath,
		Comparator: cond.Comparator,
		Expected:   cond.Expected,
		Operator:   cond.Operator,
	}
	if probe.Target.Namespace == "" && !cluster.IsClusterScoped(probe.Target.Kind) {
		probe.Target.Namespace = def.Spec.Namespace
	}

	_, err := poller.Await(ctx, poller.Config{
		Name:     "setup readiness",
		Interval: r.pollInterval,
		Timeout:  r.setupTimeout,
	}, func(pollCtx context.Context) (poller.Snapshot, bool, error) {
		res := assertion.Evaluate(pollCtx, r.accessor, probe)
		if res.Err != nil {
			return nil, false, res.Err
		}
		return nil, res.Matched, nil
	})
	return err
}

// rollback deletes what a failed setup already applied, in reverse order,
// best effort.
func (r *Runner) rollback(ctx context.Context, handle *RunHandle) {
	for i := len(handle.applied) - 1; i >= 0; i-- {
		if err := r.accessor.Delete(ctx, handle.applied[i]); err != nil && !cluster.IsNotFound(err) {
			handle.result.CleanupWarnings = append(handle.result.CleanupWarnings,
				fmt.Sprintf("rollback %s %s/%s: %v",
					handle.applied[i].Kind, handle.applied[i].Namespace, handle.applied[i].Name, err))
		}
	}
	if handle.createdNamespace {
		ref := taskbenchv1alpha1.ObjectRef{Kind: "Namespace", Name: handle.def.Spec.Namespace}
		if err := r.accessor.Delete(ctx, ref); err != nil && !cluster.IsNotFound(err) {
			handle.result.CleanupWarnings = append(handle.result.CleanupWarnings,
				fmt.Sprintf("rollback namespace %s: %v", ref.Name, err))
		}
	}
}
