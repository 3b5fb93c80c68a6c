// Copyright Contributors to the TaskBench project

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kubetask/taskbench/internal/runner"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	addTaskFlags(verifyCmd)
	addOutputFlag(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Evaluate a task's assertions against the cluster",
	Long: `Evaluate a task's assertions against the current cluster state and
print the report. Pairs with "taskbench setup" for runs where the
action phase happens outside taskbench.

The exit code follows the verdict: 0 for PASS or PASS_WITH_WARNINGS,
1 for FAIL.`,
	RunE:         runVerify,
	SilenceUsage: true,
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := setupLogging("verify")

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
	result, err := r.RunVerify(ctx, handle)
	if err != nil {
		return err
	}
	code, err := emitReport(result)
	if err != nil {
		return err
	}
	os.Exit(code)
	return nil
}
