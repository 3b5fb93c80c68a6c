// Copyright Contributors to the TaskBench project

package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/assertion"
)

func strictMismatch(name, expected, observed string) assertion.Result {
	return assertion.Result{
		Name:      name,
		Target:    taskbenchv1alpha1.ObjectRef{Kind: "Deployment", Namespace: "t1", Name: "web-app"},
		FieldPath: name,
		Severity:  taskbenchv1alpha1.SeverityStrict,
		Matched:   false,
		Expected:  expected,
		Observed:  observed,
	}
}

func advisoryMismatch(name, expected, observed string) assertion.Result {
	r := strictMismatch(name, expected, observed)
	r.Severity = taskbenchv1alpha1.SeverityAdvisory
	return r
}

func matched(name, value string) assertion.Result {
	r := strictMismatch(name, value, value)
	r.Matched = true
	return r
}

func TestComputeVerdict(t *testing.T) {
	tests := []struct {
		name   string
		result TaskRunResult
		want   Verdict
	}{
		{
			name: "all assertions hold",
			result: TaskRunResult{
				Phases:     []PhaseOutcome{{Phase: PhaseSetup, Status: PhaseSucceeded}, {Phase: PhaseVerify, Status: PhaseSucceeded}},
				Assertions: []assertion.Result{matched("spec.replicas", "3")},
			},
			want: VerdictPass,
		},
		{
			name: "strict failure forces fail",
			result: TaskRunResult{
				Assertions: []assertion.Result{
					matched("metadata.name", "web-app"),
					strictMismatch("spec.replicas", "3", "2"),
				},
			},
			want: VerdictFail,
		},
		{
			name: "advisory failures alone warn",
			result: TaskRunResult{
				Assertions: []assertion.Result{
					matched("spec.replicas", "3"),
					advisoryMismatch("status.readyReplicas", "3", "2"),
				},
			},
			want: VerdictPassWithWarnings,
		},
		{
			name: "strict beats advisory",
			result: TaskRunResult{
				Assertions: []assertion.Result{
					advisoryMismatch("status.readyReplicas", "3", "2"),
					strictMismatch("spec.replicas", "3", "2"),
				},
			},
			want: VerdictFail,
		},
		{
			name: "aborted setup forces fail with no assertions",
			result: TaskRunResult{
				Phases: []PhaseOutcome{{Phase: PhaseSetup, Status: PhaseAborted, Error: "apply failed"}},
			},
			want: VerdictFail,
		},
		{
			name: "aborted cleanup forces fail",
			result: TaskRunResult{
				Phases: []PhaseOutcome{
					{Phase: PhaseSetup, Status: PhaseSucceeded},
					{Phase: PhaseVerify, Status: PhaseSucceeded},
					{Phase: PhaseCleanup, Status: PhaseAborted, Error: "cluster unreachable"},
				},
				Assertions: []assertion.Result{matched("spec.replicas", "3")},
			},
			want: VerdictFail,
		},
		{
			name: "cleanup warnings downgrade pass",
			result: TaskRunResult{
				Phases:          []PhaseOutcome{{Phase: PhaseCleanup, Status: PhaseSucceeded}},
				Assertions:      []assertion.Result{matched("spec.replicas", "3")},
				CleanupWarnings: []string{"ConfigMap t1/old-config still exists"},
			},
			want: VerdictPassWithWarnings,
		},
		{
			name:   "empty run passes",
			result: TaskRunResult{},
			want:   VerdictPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeVerdict(&tt.result); got != tt.want {
				t.Errorf("ComputeVerdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(VerdictPass); got != 0 {
		t.Errorf("ExitCode(PASS) = %d, want 0", got)
	}
	if got := ExitCode(VerdictPassWithWarnings); got != 0 {
		t.Errorf("ExitCode(PASS_WITH_WARNINGS) = %d, want 0", got)
	}
	if got := ExitCode(VerdictFail); got != 1 {
		t.Errorf("ExitCode(FAIL) = %d, want 1", got)
	}
}

func sampleResult() *TaskRunResult {
	r := &TaskRunResult{
		TaskID:     "scale-deployment",
		Difficulty: taskbenchv1alpha1.DifficultyMedium,
		Phases: []PhaseOutcome{
			{Phase: PhaseSetup, Status: PhaseSucceeded, Duration: 1200 * time.Millisecond},
			{Phase: PhaseVerify, Status: PhaseSucceeded, Duration: 300 * time.Millisecond},
			{Phase: PhaseCleanup, Status: PhaseSucceeded, Duration: 50 * time.Millisecond},
		},
		Assertions: []assertion.Result{
			strictMismatch("spec.replicas", "3", "2"),
			advisoryMismatch("status.readyReplicas", "3", "2"),
			matched("metadata.name", "web-app"),
		},
		CleanupWarnings: []string{"delete ConfigMap t1/old-config: still exists after cleanup"},
	}
	r.Finalize()
	return r
}

func TestRenderGolden(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleResult())

	g := goldie.New(t)
	g.Assert(t, "run_report", buf.Bytes())
}

func TestRenderSuiteMarkdownGolden(t *testing.T) {
	results := []*TaskRunResult{
		{TaskID: "scale-deployment", Difficulty: taskbenchv1alpha1.DifficultyMedium, Verdict: VerdictFail},
		{TaskID: "create-pod", Difficulty: taskbenchv1alpha1.DifficultyEasy, Verdict: VerdictPass},
		{TaskID: "fix-crashloop", Difficulty: taskbenchv1alpha1.DifficultyMedium, Verdict: VerdictPassWithWarnings},
	}

	var buf bytes.Buffer
	RenderSuiteMarkdown(&buf, results)

	g := goldie.New(t)
	g.Assert(t, "suite_summary", buf.Bytes())
}

func TestRenderJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderJSON(&buf, sampleResult()); err != nil {
		t.Fatal(err)
	}

	var decoded TaskRunResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report JSON does not decode: %v", err)
	}
	if decoded.TaskID != "scale-deployment" || decoded.Verdict != VerdictFail {
		t.Errorf("decoded %q/%q, want scale-deployment/FAIL", decoded.TaskID, decoded.Verdict)
	}
	if len(decoded.Assertions) != 3 {
		t.Errorf("decoded %d assertions, want 3", len(decoded.Assertions))
	}
}
