// Copyright Contributors to the TaskBench project

// Package assertion evaluates declarative assertions against live cluster
// state. Evaluation is read-only and deterministic for a fixed snapshot:
// the same assertion against the same object always yields the same result.
package assertion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/cluster"
	"github.com/kubetask/taskbench/internal/fieldpath"
	"github.com/kubetask/taskbench/internal/poller"
)

// Observed value placeholders used in reports.
const (
	ObservedAbsent  = "absent"
	ObservedPresent = "present"
	ObservedMissing = "<missing field>"
)

// Result is the typed outcome of one assertion. A mismatch is not an
// error; Err is set only when evaluation itself failed (terminal cluster
// error, path incompatible with the object shape).
type Result struct {
	Name      string                      `json:"name"`
	Target    taskbenchv1alpha1.ObjectRef `json:"target"`
	FieldPath string                      `json:"fieldPath,omitempty"`
	Severity  taskbenchv1alpha1.Severity  `json:"severity"`

	Matched  bool   `json:"matched"`
	Expected string `json:"expected"`
	Observed string `json:"observed,omitempty"`

	// Err does not survive serialization; ErrText carries its message
	// into JSON reports.
	Err     error  `json:"-"`
	ErrText string `json:"error,omitempty"`
}

// Failed reports whether the assertion did not hold.
func (r Result) Failed() bool {
	return !r.Matched
}

func (r *Result) setErr(err error) {
	if err == nil {
		return
	}
	r.Err = err
	r.ErrText = err.Error()
}

// Evaluate resolves the assertion's target through the accessor and checks
// it. When a wait policy is set, the fetch-and-recheck loop is delegated to
// the poller and a timeout becomes a mismatch carrying the last observed
// value; without a wait policy a single snapshot is checked.
func Evaluate(ctx context.Context, accessor cluster.Accessor, a taskbenchv1alpha1.Assertion) Result {
	res := Result{
		Name:      a.DisplayName(),
		Target:    a.Target,
		FieldPath: a.FieldPath,
		Severity:  a.EffectiveSeverity(),
		Expected:  expectedString(a),
	}

	if a.Wait == nil {
		matched, observed, err := checkOnce(ctx, accessor, a, false)
		res.Matched, res.Observed = matched, observed
		res.setErr(err)
		return res
	}

	lastObserved := ObservedAbsent
	_, err := poller.Await(ctx, poller.Config{
		Name:     res.Name,
		Interval: a.Wait.Interval.OrDefault(poller.DefaultInterval),
		Timeout:  a.Wait.Timeout.OrDefault(poller.DefaultVerifyTimeout),
	}, func(pollCtx context.Context) (poller.Snapshot, bool, error) {
		matched, observed, err := checkOnce(pollCtx, accessor, a, true)
		if observed != "" {
			lastObserved = observed
		}
		if err != nil {
			return nil, false, err
		}
		return nil, matched, nil
	})
	switch {
	case err == nil:
		res.Matched = true
		res.Observed = lastObserved
	case poller.IsTimeout(err):
		// The predicate never held: a mismatch of the assertion's
		// severity, reported with the last observed value.
		res.Matched = false
		res.Observed = lastObserved
	default:
		res.Matched = false
		res.Observed = lastObserved
		res.setErr(err)
	}
	return res
}

// checkOnce fetches the target and applies the comparator to one snapshot.
// polling=true makes an absent object a retryable non-match instead of a
// terminal failure, since under a wait policy the object may not exist yet.
func checkOnce(ctx context.Context, accessor cluster.Accessor, a taskbenchv1alpha1.Assertion, polling bool) (matched bool, observed string, err error) {
	obj, getErr := accessor.Get(ctx, a.Target)
	if getErr != nil {
		if cluster.IsNotFound(getErr) {
			if wantAbsent(a) {
				return true, ObservedAbsent, nil
			}
			// Absent object with any other comparator cannot match.
			return false, ObservedAbsent, nil
		}
		if polling && !cluster.IsTerminal(getErr) {
			// Transient cluster error: keep polling.
			return false, "", nil
		}
		return false, "", getErr
	}

	if a.Comparator == taskbenchv1alpha1.ComparatorExists && a.FieldPath == "" {
		if wantAbsent(a) {
			return false, ObservedPresent, nil
		}
		return true, ObservedPresent, nil
	}

	return applyComparator(obj, a)
}

// wantAbsent reports whether the assertion is Exists with expected=false.
func wantAbsent(a taskbenchv1alpha1.Assertion) bool {
	if a.Comparator != taskbenchv1alpha1.ComparatorExists {
		return false
	}
	want, ok := a.Expected.Bool()
	return ok && !want
}

func applyComparator(obj *unstructured.Unstructured, a taskbenchv1alpha1.Assertion) (bool, string, error) {
	value, found, err := fieldpath.Resolve(obj.Object, a.FieldPath)
	if err != nil {
		return false, "", err
	}

	switch a.Comparator {
	case taskbenchv1alpha1.ComparatorExists:
		wantExists := true
		if want, ok := a.Expected.Bool(); ok {
			wantExists = want
		}
		exists := found && value != nil
		observed := ObservedMissing
		if exists {
			observed = renderValue(value)
		}
		return exists == wantExists, observed, nil

	case taskbenchv1alpha1.ComparatorEquals:
		if !found {
			return false, ObservedMissing, nil
		}
		return equalsCoerced(value, a.Expected), renderValue(value), nil

	case taskbenchv1alpha1.ComparatorContains:
		if !found {
			return false, ObservedMissing, nil
		}
		return contains(value, a.Expected), renderValue(value), nil

	case taskbenchv1alpha1.ComparatorCountAtLeast:
		count := 0
		if found {
			list, ok := value.([]interface{})
			if !ok {
				return false, "", fmt.Errorf("path %s: CountAtLeast needs a list, got %T", a.FieldPath, value)
			}
			count = len(list)
		}
		want, _ := a.Expected.Number()
		return float64(count) >= want, strconv.Itoa(count), nil

	case taskbenchv1alpha1.ComparatorNumericCompare:
		if !found {
			return false, ObservedMissing, nil
		}
		observed, ok := toNumber(value)
		if !ok {
			return false, "", fmt.Errorf("path %s: NumericCompare needs a number, got %T", a.FieldPath, value)
		}
		want, _ := a.Expected.Number()
		return compareNumbers(observed, a.Operator, want), renderValue(value), nil

	default:
		// Unreachable for validated definitions.
		return false, "", fmt.Errorf("unknown comparator %q", a.Comparator)
	}
}

// equalsCoerced compares after coercing observed to the expected value's
// type, so replicas: 3 in YAML matches the float64 the API server returns
// and "true" matches a boolean field.
func equalsCoerced(observed interface{}, expected taskbenchv1alpha1.Value) bool {
	if want, ok := expected.Number(); ok {
		got, ok := toNumber(observed)
		return ok && got == want
	}
	if want, ok := expected.Bool(); ok {
		switch got := observed.(type) {
		case bool:
			return got == want
		case string:
			parsed, err := strconv.ParseBool(got)
			return err == nil && parsed == want
		}
		return false
	}
	return renderValue(observed) == expected.String()
}

// contains implements substring containment for strings and element
// membership for lists.
func contains(observed interface{}, expected taskbenchv1alpha1.Value) bool {
	switch got := observed.(type) {
	case string:
		return strings.Contains(got, expected.String())
	case []interface{}:
		for _, el := range got {
			if equalsCoerced(el, expected) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareNumbers(observed float64, op taskbenchv1alpha1.NumericOperator, want float64) bool {
	switch op {
	case taskbenchv1alpha1.OperatorLessThan:
		return observed < want
	case taskbenchv1alpha1.OperatorLessOrEqual:
		return observed <= want
	case taskbenchv1alpha1.OperatorEqual:
		return observed == want
	case taskbenchv1alpha1.OperatorGreaterOrEqual:
		return observed >= want
	case taskbenchv1alpha1.OperatorGreaterThan:
		return observed > want
	}
	return false
}

func toNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func renderValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []interface{}:
		parts := make([]string, 0, len(x))
		for _, el := range x {
			parts = append(parts, renderValue(el))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func expectedString(a taskbenchv1alpha1.Assertion) string {
	switch a.Comparator {
	case taskbenchv1alpha1.ComparatorExists:
		if wantAbsent(a) {
			return ObservedAbsent
		}
		return ObservedPresent
	case taskbenchv1alpha1.ComparatorCountAtLeast:
		return ">= " + a.Expected.String()
	case taskbenchv1alpha1.ComparatorNumericCompare:
		return string(a.Operator) + " " + a.Expected.String()
	default:
		return a.Expected.String()
	}
}
