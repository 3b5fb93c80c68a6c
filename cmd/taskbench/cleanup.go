// Copyright Contributors to the TaskBench project

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubetask/taskbench/internal/runner"
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
	addTaskFlags(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete a task's scenario resources",
	Long: `Delete the cluster resources named by a task's cleanup targets.
Already-absent resources are fine; residue that refuses to go away is
reported as a warning, not an error. The task namespace itself is left
in place.`,
	RunE:         runCleanup,
	SilenceUsage: true,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	log := setupLogging("cleanup")

	def, err := loadDefinition()
	if err != nil {
		return err
	}
	r, err := newRunner(log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	handle, err := runner.Resume(def)
	if err != nil {
		return err
	}
	if err := r.RunCleanup(ctx, handle); err != nil {
		return err
	}
	result := handle.Result()
	if len(result.CleanupWarnings) > 0 {
		fmt.Printf("Cleanup for task %s finished with %d warning(s):\n", def.ID(), len(result.CleanupWarnings))
		for _, w := range result.CleanupWarnings {
			fmt.Printf("  %s\n", w)
		}
		return nil
	}
	fmt.Printf("Cleanup for task %s finished.\n", def.ID())
	return nil
}
