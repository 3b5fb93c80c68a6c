// Copyright Contributors to the TaskBench project

//go:build !integration

package catalog

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

func TestLoadFile(t *testing.T) {
	def, err := LoadFile(filepath.Join("testdata", "valid", "restart-crashloop.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.ID() != "restart-crashloop" {
		t.Errorf("id = %q, want restart-crashloop", def.ID())
	}
	if def.Spec.Difficulty != taskbenchv1alpha1.DifficultyMedium {
		t.Errorf("difficulty = %q, want medium", def.Spec.Difficulty)
	}
	if len(def.Spec.Setup.Resources) != 1 {
		t.Fatalf("setup resources = %d, want 1", len(def.Spec.Setup.Resources))
	}
	if kind := def.Spec.Setup.Resources[0].GetKind(); kind != "Pod" {
		t.Errorf("setup resource kind = %q, want Pod", kind)
	}
	a := def.Spec.Assertions[0]
	if a.Wait == nil || a.Wait.Timeout.Duration != 90*time.Second {
		t.Errorf("wait timeout not parsed: %+v", a.Wait)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{name: "unknown comparator", file: "bad-comparator.yaml"},
		{name: "malformed field path", file: "bad-fieldpath.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(filepath.Join("testdata", "invalid", tt.file))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, taskbenchv1alpha1.ErrInvalidDefinition) {
				t.Errorf("error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join("testdata", "no-such-file.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDir(t *testing.T) {
	c, err := LoadDir(filepath.Join("testdata", "valid"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	want := []string{"expose-service", "restart-crashloop"}
	got := c.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	def, err := c.Get("expose-service")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if def.Spec.Namespace != "staging" {
		t.Errorf("namespace = %q, want staging", def.Spec.Namespace)
	}

	if _, err := c.Get("no-such-task"); err == nil {
		t.Error("expected error for unknown task id")
	}

	all := c.All()
	if len(all) != 2 || all[0].ID() != "expose-service" {
		t.Errorf("All not in id order: %v", all)
	}
}

func TestLoadDirDuplicateID(t *testing.T) {
	_, err := LoadDir(filepath.Join("testdata", "duplicate"))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
	if !strings.Contains(err.Error(), "duplicate task id") {
		t.Errorf("error = %v, want duplicate task id", err)
	}
}

// The shipped task catalog must always load cleanly.
func TestLoadShippedTasks(t *testing.T) {
	c, err := LoadDir(filepath.Join("..", "..", "tasks"))
	if err != nil {
		t.Fatalf("LoadDir tasks/: %v", err)
	}
	if c.Len() == 0 {
		t.Fatal("shipped task catalog is empty")
	}
	for _, def := range c.All() {
		if def.Spec.Prompt == "" {
			t.Errorf("task %s has no prompt", def.ID())
		}
	}
}
