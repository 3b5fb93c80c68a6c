// Copyright Contributors to the TaskBench project

// Package v1alpha1 contains the serializable TaskBench data model.
// TaskDefinitions are plain declarative data (no executable code) so that
// benchmark task authoring stays auditable.
package v1alpha1

import (
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// GroupVersion identifies TaskDefinition manifests on disk.
const GroupVersion = "taskbench.io/v1alpha1"

// TaskDefinitionKind is the expected kind field of a task manifest.
const TaskDefinitionKind = "TaskDefinition"

// Severity controls whether a failed assertion fails the task or only warns.
type Severity string

const (
	// SeverityStrict means a mismatch forces the task verdict to Fail.
	SeverityStrict Severity = "Strict"
	// SeverityAdvisory means a mismatch at most downgrades the verdict
	// to PassWithWarnings.
	SeverityAdvisory Severity = "Advisory"
)

// Comparator names the check applied to a resolved field value.
type Comparator string

const (
	// ComparatorEquals checks exact equality after coercing the observed
	// value to the expected value's type.
	ComparatorEquals Comparator = "Equals"
	// ComparatorContains checks substring or list-membership containment.
	ComparatorContains Comparator = "Contains"
	// ComparatorExists checks that the field path resolves to a value.
	// With expected=false it checks the path (or object) does NOT resolve,
	// which is how "resource was deleted" scenarios are expressed.
	ComparatorExists Comparator = "Exists"
	// ComparatorCountAtLeast checks the cardinality of a resolved list.
	ComparatorCountAtLeast Comparator = "CountAtLeast"
	// ComparatorNumericCompare applies an ordered comparison to a numeric
	// field using the assertion's Operator.
	ComparatorNumericCompare Comparator = "NumericCompare"
)

// NumericOperator selects the ordering for ComparatorNumericCompare.
type NumericOperator string

const (
	OperatorLessThan       NumericOperator = "lt"
	OperatorLessOrEqual    NumericOperator = "le"
	OperatorEqual          NumericOperator = "eq"
	OperatorGreaterOrEqual NumericOperator = "ge"
	OperatorGreaterThan    NumericOperator = "gt"
)

// Difficulty buckets tasks for suite-level reporting.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ObjectRef identifies one cluster object by kind, namespace and name.
// APIVersion is optional for the kinds the engine already knows; anything
// else needs it spelled out.
type ObjectRef struct {
	// APIVersion of the target, e.g. "apps/v1". Optional for well-known kinds.
	// +optional
	APIVersion string `json:"apiVersion,omitempty"`

	// Kind of the target, e.g. "Deployment".
	Kind string `json:"kind"`

	// Namespace of the target. Empty for cluster-scoped kinds.
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// Name of the target.
	Name string `json:"name"`
}

// WaitPolicy makes an assertion poll until it matches or times out,
// instead of checking a single snapshot. Used for eventually-consistent
// fields such as status.readyReplicas.
type WaitPolicy struct {
	// Timeout bounds the whole wait. Defaults to 60s when zero.
	// +optional
	Timeout Duration `json:"timeout,omitempty"`

	// Interval between polls. Defaults to 2s when zero.
	// +optional
	Interval Duration `json:"interval,omitempty"`
}

// Assertion is one checkable fact about live cluster state.
type Assertion struct {
	// Name labels the assertion in reports. Defaults to the field path.
	// +optional
	Name string `json:"name,omitempty"`

	// Target is the object the assertion reads.
	Target ObjectRef `json:"target"`

	// FieldPath is a dotted path into the object, supporting numeric
	// indexes and field-equality filters:
	//   spec.replicas
	//   spec.template.spec.containers[0].image
	//   spec.ports[?port==80].targetPort
	// Empty FieldPath with the Exists comparator asserts on the object
	// itself (present or absent).
	// +optional
	FieldPath string `json:"fieldPath,omitempty"`

	// Comparator selects the check to apply.
	Comparator Comparator `json:"comparator"`

	// Expected is the value or threshold the comparator checks against.
	// Its concrete type depends on the comparator: Equals/Contains accept
	// scalars, Exists accepts a bool, CountAtLeast and NumericCompare
	// accept numbers.
	// +optional
	Expected Value `json:"expected,omitempty"`

	// Operator is required for NumericCompare and ignored otherwise.
	// +optional
	Operator NumericOperator `json:"operator,omitempty"`

	// Severity defaults to Strict.
	// +optional
	Severity Severity `json:"severity,omitempty"`

	// Wait, when set, re-fetches and re-checks until match or timeout.
	// +optional
	Wait *WaitPolicy `json:"wait,omitempty"`
}

// Condition is a boolean predicate over a fetched object snapshot. It is a
// pure data description; the engine evaluates it with no side effects. Used
// to gate setup completion before the task is handed to the agent.
type Condition struct {
	Target     ObjectRef       `json:"target"`
	FieldPath  string          `json:"fieldPath,omitempty"`
	Comparator Comparator      `json:"comparator"`
	Expected   Value           `json:"expected,omitempty"`
	Operator   NumericOperator `json:"operator,omitempty"`
}

// SetupSpec declares the cluster state materialized before the agent acts.
type SetupSpec struct {
	// Resources are applied in declared order; order matters because later
	// resources may depend on earlier ones (a Secret before the Pod that
	// mounts it, a Service before the workloads it selects).
	Resources []unstructured.Unstructured `json:"resources"`

	// Readiness, when set, must hold before the task is ready for action.
	// +optional
	Readiness *Condition `json:"readiness,omitempty"`
}

// CleanupSpec lists what Cleanup deletes, in reverse-dependency order.
type CleanupSpec struct {
	Targets []ObjectRef `json:"targets"`
}

// TaskDefinitionSpec is the body of one benchmark scenario.
type TaskDefinitionSpec struct {
	// Namespace is the task-scoped isolation namespace. The runner creates
	// it before Setup and removes it after Cleanup unless it pre-existed.
	Namespace string `json:"namespace"`

	// Difficulty buckets the task in suite summaries.
	// +optional
	Difficulty Difficulty `json:"difficulty,omitempty"`

	// Prompt is the natural-language instruction handed to the external
	// agent during the action phase. Opaque to the engine.
	// +optional
	Prompt string `json:"prompt,omitempty"`

	Setup      SetupSpec   `json:"setup"`
	Assertions []Assertion `json:"assertions"`
	Cleanup    CleanupSpec `json:"cleanup"`
}

// TaskDefinition is one immutable benchmark scenario: resources to create,
// assertions to check after the agent acted, and targets to delete.
type TaskDefinition struct {
	// APIVersion must equal GroupVersion.
	APIVersion string `json:"apiVersion"`

	// Kind must equal TaskDefinitionKind.
	Kind string `json:"kind"`

	Metadata Metadata           `json:"metadata"`
	Spec     TaskDefinitionSpec `json:"spec"`
}

// Metadata carries the task id and free-form labels.
type Metadata struct {
	// Name is the unique task id, e.g. "scale-deployment".
	Name string `json:"name"`

	// +optional
	Labels map[string]string `json:"labels,omitempty"`
}

// ID returns the task id.
func (t *TaskDefinition) ID() string {
	return t.Metadata.Name
}

// EffectiveSeverity returns the assertion severity with the Strict default
// applied.
func (a *Assertion) EffectiveSeverity() Severity {
	if a.Severity == "" {
		return SeverityStrict
	}
	return a.Severity
}

// DisplayName returns the report label for the assertion.
func (a *Assertion) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	if a.FieldPath != "" {
		return a.FieldPath
	}
	return string(a.Comparator)
}

// Duration wraps time.Duration so task YAML can say "90s" or "2m".
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration in Go's duration syntax.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted Go duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// OrDefault returns the wrapped duration, or def when unset.
func (d Duration) OrDefault(def time.Duration) time.Duration {
	if d.Duration == 0 {
		return def
	}
	return d.Duration
}
