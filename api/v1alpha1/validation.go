// Copyright Contributors to the TaskBench project

package v1alpha1

import (
	"errors"
	"fmt"

	"github.com/kubetask/taskbench/internal/fieldpath"
)

// ErrInvalidDefinition marks definitional errors: a malformed
// TaskDefinition is fatal before any cluster interaction and never retried.
var ErrInvalidDefinition = errors.New("invalid task definition")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
}

// Validate checks the definition for structural errors. It is called once
// at catalog load time; the engine assumes validated definitions.
func (t *TaskDefinition) Validate() error {
	if t.APIVersion != GroupVersion {
		return invalidf("apiVersion %q, want %q", t.APIVersion, GroupVersion)
	}
	if t.Kind != TaskDefinitionKind {
		return invalidf("kind %q, want %q", t.Kind, TaskDefinitionKind)
	}
	if t.Metadata.Name == "" {
		return invalidf("metadata.name is required")
	}
	if t.Spec.Namespace == "" {
		return invalidf("task %s: spec.namespace is required", t.Metadata.Name)
	}
	switch t.Spec.Difficulty {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return invalidf("task %s: unknown difficulty %q", t.Metadata.Name, t.Spec.Difficulty)
	}
	for i := range t.Spec.Setup.Resources {
		res := &t.Spec.Setup.Resources[i]
		if res.GetKind() == "" || res.GetAPIVersion() == "" {
			return invalidf("task %s: setup.resources[%d] missing kind or apiVersion", t.Metadata.Name, i)
		}
		if res.GetName() == "" {
			return invalidf("task %s: setup.resources[%d] missing metadata.name", t.Metadata.Name, i)
		}
	}
	if r := t.Spec.Setup.Readiness; r != nil {
		if err := validateCondition(r); err != nil {
			return invalidf("task %s: setup.readiness: %v", t.Metadata.Name, err)
		}
	}
	for i := range t.Spec.Assertions {
		if err := t.Spec.Assertions[i].validate(); err != nil {
			return invalidf("task %s: assertions[%d]: %v", t.Metadata.Name, i, err)
		}
	}
	for i, ref := range t.Spec.Cleanup.Targets {
		if err := validateRef(ref); err != nil {
			return invalidf("task %s: cleanup.targets[%d]: %v", t.Metadata.Name, i, err)
		}
	}
	return nil
}

func validateRef(ref ObjectRef) error {
	if ref.Kind == "" {
		return errors.New("kind is required")
	}
	if ref.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func (a *Assertion) validate() error {
	if err := validateRef(a.Target); err != nil {
		return fmt.Errorf("target: %v", err)
	}
	if err := validateCheck(a.FieldPath, a.Comparator, a.Expected, a.Operator); err != nil {
		return err
	}
	switch a.Severity {
	case "", SeverityStrict, SeverityAdvisory:
	default:
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	if a.Wait != nil {
		if a.Wait.Timeout.Duration < 0 || a.Wait.Interval.Duration < 0 {
			return errors.New("wait timeout and interval must not be negative")
		}
	}
	return nil
}

func validateCondition(c *Condition) error {
	if err := validateRef(c.Target); err != nil {
		return fmt.Errorf("target: %v", err)
	}
	return validateCheck(c.FieldPath, c.Comparator, c.Expected, c.Operator)
}

func validateCheck(fieldPath string, cmp Comparator, expected Value, op NumericOperator) error {
	// A malformed path is a definitional error; it must fail the load, not
	// burn a full setup and action phase before surfacing in verify.
	if fieldPath != "" {
		if _, err := fieldpath.Parse(fieldPath); err != nil {
			return err
		}
	}
	switch cmp {
	case ComparatorEquals, ComparatorContains:
		if fieldPath == "" {
			return fmt.Errorf("%s requires a fieldPath", cmp)
		}
		if !expected.IsSet() {
			return fmt.Errorf("%s requires an expected value", cmp)
		}
	case ComparatorExists:
		// Expected defaults to true; fieldPath may be empty to assert on
		// the object itself.
		if expected.IsSet() {
			if _, ok := expected.Bool(); !ok {
				return errors.New("Exists expects a boolean expected value")
			}
		}
	case ComparatorCountAtLeast:
		if fieldPath == "" {
			return errors.New("CountAtLeast requires a fieldPath")
		}
		if _, ok := expected.Number(); !ok {
			return errors.New("CountAtLeast expects a numeric expected value")
		}
	case ComparatorNumericCompare:
		if fieldPath == "" {
			return errors.New("NumericCompare requires a fieldPath")
		}
		if _, ok := expected.Number(); !ok {
			return errors.New("NumericCompare expects a numeric expected value")
		}
		switch op {
		case OperatorLessThan, OperatorLessOrEqual, OperatorEqual,
			OperatorGreaterOrEqual, OperatorGreaterThan:
		default:
			return fmt.Errorf("unknown numeric operator %q", op)
		}
	default:
		return fmt.Errorf("unknown comparator %q", cmp)
	}
	if op != "" && cmp != ComparatorNumericCompare {
		return fmt.Errorf("operator is only valid with NumericCompare, got comparator %s", cmp)
	}
	return nil
}
