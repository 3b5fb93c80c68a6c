// Copyright Contributors to the TaskBench project

package runner

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubetask/taskbench/internal/report"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

// ActionFunc performs the external action between Setup and Verify. The
// engine does not interpret it; typically it invokes an agent with the
// task prompt. A nil ActionFunc skips straight to Verify.
type ActionFunc func(ctx context.Context, handle *RunHandle) error

// Execute sequences a full lifecycle: Setup, the action, Verify, Cleanup.
// Cleanup runs even when the action or Verify failed, to minimize state
// leakage; only a setup so broken that nothing was created skips it (and
// RunSetup already rolled back in that case). The returned result is
// always non-nil when setup produced a handle.
func (r *Runner) Execute(ctx context.Context, def *taskbenchv1alpha1.TaskDefinition, action ActionFunc) (*report.TaskRunResult, error) {
	handle, err := r.RunSetup(ctx, def)
	if err != nil {
		if handle != nil {
			return handle.Result(), err
		}
		return nil, err
	}

	if action != nil {
		if actionErr := action(ctx, handle); actionErr != nil {
			// The action failing is the agent's business; verification
			// still runs and judges the cluster state it left behind.
			r.log.Error(actionErr, "action failed, verifying anyway", "task", def.ID())
		}
	}

	result, verifyErr := r.RunVerify(ctx, handle)
	if verifyErr != nil {
		_ = r.RunCleanup(ctx, handle)
		return handle.Result(), verifyErr
	}

	if cleanupErr := r.RunCleanup(ctx, handle); cleanupErr != nil {
		return result, cleanupErr
	}
	return result, nil
}

// namespaceManifest builds the task-scoped isolation namespace, labeled
// with the owning task id so leaked namespaces are attributable.
func namespaceManifest(name, taskID string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata": map[string]interface{}{
			"name": name,
			"labels": map[string]interface{}{
				"taskbench.io/task": taskID,
			},
		},
	}}
}
