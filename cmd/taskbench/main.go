// Copyright Contributors to the TaskBench project

// taskbench is the benchmark harness CLI. It materializes task
// scenarios in a cluster, hands control to an external agent, verifies
// the agent's work against declarative assertions, and tears the
// scenario down again.
//
// Available commands:
//   - run:      Full lifecycle for one task (setup, action, verify, cleanup)
//   - setup:    Materialize a task's scenario and stop
//   - verify:   Evaluate a task's assertions against the cluster
//   - cleanup:  Delete a task's scenario resources
//   - list:     List the tasks in a catalog directory
//   - schedule: Run a task catalog repeatedly on a cron schedule
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskbench",
	Short: "TaskBench - cluster benchmark tasks for AI agents",
	Long: `TaskBench runs benchmark tasks against a Kubernetes cluster.

Each task sets up a broken or incomplete scenario, waits while an
external agent attempts the task, then verifies the cluster state
against the task's assertions and cleans up.

Examples:
  # Run one task end to end, shelling out to an agent for the action
  taskbench run --tasks ./tasks --task scale-deployment --action-cmd ./agent.sh

  # Run one task, pausing for a human to act
  taskbench run --file ./tasks/create-pod.yaml --pause-for-action

  # Set up a scenario now and verify it later
  taskbench setup --file ./tasks/create-pod.yaml
  taskbench verify --file ./tasks/create-pod.yaml

  # Soak: re-run the whole catalog every hour
  taskbench schedule --tasks ./tasks --cron "0 * * * *"`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
