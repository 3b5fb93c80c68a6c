// Copyright Contributors to the TaskBench project

package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/catalog"
	"github.com/kubetask/taskbench/internal/cluster"
	"github.com/kubetask/taskbench/internal/report"
	"github.com/kubetask/taskbench/internal/runner"
)

// Flags shared by the lifecycle commands
var (
	taskFile   string
	tasksDir   string
	taskID     string
	outputMode string
)

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&taskFile, "file", "",
		"Path to a single task definition YAML")
	cmd.Flags().StringVar(&tasksDir, "tasks", "",
		"Path to a task catalog directory (use with --task)")
	cmd.Flags().StringVar(&taskID, "task", "",
		"Task id to select from the catalog directory")
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputMode, "output", "text",
		"Report format: text or json")
}

func setupLogging(name string) logr.Logger {
	opts := zap.Options{
		Development: true,
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	return ctrl.Log.WithName(name)
}

// loadDefinition resolves the task selection flags to one definition.
func loadDefinition() (*taskbenchv1alpha1.TaskDefinition, error) {
	switch {
	case taskFile != "" && tasksDir != "":
		return nil, fmt.Errorf("--file and --tasks are mutually exclusive")
	case taskFile != "":
		return catalog.LoadFile(taskFile)
	case tasksDir != "":
		if taskID == "" {
			return nil, fmt.Errorf("--tasks requires --task to pick a task id")
		}
		c, err := catalog.LoadDir(tasksDir)
		if err != nil {
			return nil, err
		}
		return c.Get(taskID)
	default:
		return nil, fmt.Errorf("one of --file or --tasks is required")
	}
}

// newRunner connects to the cluster from the ambient kubeconfig.
func newRunner(log logr.Logger) (*runner.Runner, error) {
	config, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	accessor, err := cluster.New(config)
	if err != nil {
		return nil, fmt.Errorf("build cluster client: %w", err)
	}
	return runner.New(accessor, runner.WithLogger(log)), nil
}

// emitReport writes the run report to stdout and returns the process
// exit code the verdict maps to.
func emitReport(result *report.TaskRunResult) (int, error) {
	switch outputMode {
	case "json":
		if err := report.RenderJSON(os.Stdout, result); err != nil {
			return 1, err
		}
	case "text", "":
		report.Render(os.Stdout, result)
	default:
		return 1, fmt.Errorf("unknown output format %q", outputMode)
	}
	return report.ExitCode(result.Verdict), nil
}
