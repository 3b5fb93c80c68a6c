// Copyright Contributors to the TaskBench project

// Package report holds the run outcome model and the pure verdict reducer,
// plus the renderers automation and humans consume.
package report

import (
	"time"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/assertion"
)

// Verdict is the aggregate outcome of one task run.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictPassWithWarnings Verdict = "PASS_WITH_WARNINGS"
	VerdictFail             Verdict = "FAIL"
)

// Phase names the lifecycle phases recorded per run.
type Phase string

const (
	PhaseSetup   Phase = "Setup"
	PhaseVerify  Phase = "Verify"
	PhaseCleanup Phase = "Cleanup"
)

// PhaseStatus is the terminal state of one phase.
type PhaseStatus string

const (
	PhaseSucceeded PhaseStatus = "Succeeded"
	PhaseAborted   PhaseStatus = "Aborted"
	PhaseSkipped   PhaseStatus = "Skipped"
)

// PhaseOutcome records how one phase ended.
type PhaseOutcome struct {
	Phase    Phase         `json:"phase"`
	Status   PhaseStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// TaskRunResult is the mutable record of one execution, created at run
// start and finalized at run end. The runner owns it exclusively during
// the run; callers decide whether to persist it.
type TaskRunResult struct {
	TaskID     string                       `json:"taskId"`
	Difficulty taskbenchv1alpha1.Difficulty `json:"difficulty,omitempty"`

	Phases     []PhaseOutcome     `json:"phases"`
	Assertions []assertion.Result `json:"assertions"`

	// CleanupWarnings records deletes that failed or left residue. They
	// never crash a run; they downgrade Pass to PassWithWarnings.
	CleanupWarnings []string `json:"cleanupWarnings,omitempty"`

	Verdict Verdict `json:"verdict"`
}

// PhaseOutcomeFor returns the recorded outcome for a phase, if present.
func (r *TaskRunResult) PhaseOutcomeFor(phase Phase) (PhaseOutcome, bool) {
	for _, p := range r.Phases {
		if p.Phase == phase {
			return p, true
		}
	}
	return PhaseOutcome{}, false
}

// ComputeVerdict is the pure reducer over a run result. Any Strict
// assertion failure, or any aborted phase other than Verify, forces Fail.
// Advisory failures and cleanup warnings alone force at most
// PassWithWarnings. Verify itself never "aborts" the run: a mismatch is a
// result, not an error.
func ComputeVerdict(r *TaskRunResult) Verdict {
	for _, p := range r.Phases {
		if p.Status == PhaseAborted && p.Phase != PhaseVerify {
			return VerdictFail
		}
	}
	warnings := len(r.CleanupWarnings) > 0
	for _, a := range r.Assertions {
		if !a.Failed() {
			continue
		}
		if a.Severity == taskbenchv1alpha1.SeverityStrict {
			return VerdictFail
		}
		warnings = true
	}
	if warnings {
		return VerdictPassWithWarnings
	}
	return VerdictPass
}

// Finalize derives and stores the verdict.
func (r *TaskRunResult) Finalize() {
	r.Verdict = ComputeVerdict(r)
}

// ExitCode maps the verdict to the exit-code convention the original
// benchmark scripts established: 0 for PASS (warnings included), 1 for FAIL.
func ExitCode(v Verdict) int {
	if v == VerdictFail {
		return 1
	}
	return 0
}
