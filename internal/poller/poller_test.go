// Copyright Contributors to the TaskBench project

package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func snapshotNamed(name string) Snapshot {
	obj := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata":   map[string]interface{}{"name": name},
	}}
	return obj
}

func TestAwaitImmediateSuccess(t *testing.T) {
	calls := 0
	snap, err := Await(context.Background(), Config{Name: "ready", Interval: time.Millisecond, Timeout: time.Second},
		func(ctx context.Context) (Snapshot, bool, error) {
			calls++
			return snapshotNamed("web"), true, nil
		})
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("check called %d times, want 1", calls)
	}
	if snap == nil || snap.GetName() != "web" {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}

func TestAwaitEventualSuccess(t *testing.T) {
	calls := 0
	snap, err := Await(context.Background(), Config{Name: "ready", Interval: time.Millisecond, Timeout: time.Second},
		func(ctx context.Context) (Snapshot, bool, error) {
			calls++
			return snapshotNamed("web"), calls >= 3, nil
		})
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("check called %d times, want 3", calls)
	}
	if snap == nil {
		t.Error("expected final snapshot")
	}
}

func TestAwaitTimeout(t *testing.T) {
	timeout := 30 * time.Millisecond
	interval := 5 * time.Millisecond
	start := time.Now()
	snap, err := Await(context.Background(), Config{Name: "never", Interval: interval, Timeout: timeout},
		func(ctx context.Context) (Snapshot, bool, error) {
			return snapshotNamed("stuck"), false, nil
		})
	elapsed := time.Since(start)

	if !IsTimeout(err) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	// Must return no later than timeout + one interval (plus slack for CI).
	if elapsed > timeout+interval+50*time.Millisecond {
		t.Errorf("Await took %s, want at most ~%s", elapsed, timeout+interval)
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error is not *TimeoutError: %v", err)
	}
	if te.LastObserved == nil || te.LastObserved.GetName() != "stuck" {
		t.Errorf("timeout error lost the last snapshot: %+v", te)
	}
	if snap == nil || snap.GetName() != "stuck" {
		t.Errorf("expected last snapshot returned alongside timeout, got %v", snap)
	}
	if te.Attempts == 0 {
		t.Error("expected at least one attempt recorded")
	}
}

func TestAwaitTerminalErrorShortCircuits(t *testing.T) {
	terminal := errors.New("forbidden")
	calls := 0
	start := time.Now()
	_, err := Await(context.Background(), Config{Name: "doomed", Interval: 5 * time.Millisecond, Timeout: 10 * time.Second},
		func(ctx context.Context) (Snapshot, bool, error) {
			calls++
			return nil, false, terminal
		})
	if !errors.Is(err, terminal) {
		t.Fatalf("expected terminal error surfaced, got %v", err)
	}
	if calls != 1 {
		t.Errorf("check called %d times, want 1", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("terminal error waited out the timeout instead of short-circuiting")
	}
	if IsTimeout(err) {
		t.Error("terminal error must not classify as timeout")
	}
}

func TestAwaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Await(ctx, Config{Name: "canceled", Interval: 5 * time.Millisecond, Timeout: 10 * time.Second},
			func(ctx context.Context) (Snapshot, bool, error) {
				return nil, false, nil
			})
		done <- err
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !IsCanceled(err) {
			t.Fatalf("expected cancellation outcome, got %v", err)
		}
		if IsTimeout(err) {
			t.Error("cancellation must be distinct from timeout")
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not return after cancellation")
	}
}

func TestAwaitRejectsNonPositiveTimeout(t *testing.T) {
	_, err := Await(context.Background(), Config{Name: "cfg", Interval: time.Millisecond},
		func(ctx context.Context) (Snapshot, bool, error) {
			return nil, true, nil
		})
	if err == nil {
		t.Fatal("expected error for zero timeout")
	}
}
