// Copyright Contributors to the TaskBench project

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setupCmd)
	addTaskFlags(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Materialize a task's scenario and stop",
	Long: `Set up a task's scenario in the cluster and exit, leaving the
resources in place. Run the agent however you like, then evaluate with
"taskbench verify" and tear down with "taskbench cleanup".

Setup uses apply semantics, so re-running it converges the scenario
back to its declared state instead of erroring.`,
	RunE:         runSetup,
	SilenceUsage: true,
}

func runSetup(cmd *cobra.Command, args []string) error {
	log := setupLogging("setup")

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

	handle, err := r.RunSetup(ctx, def)
	if err != nil {
		return fmt.Errorf("setup %s: %w", def.ID(), err)
	}
	fmt.Printf("Scenario for task %s is ready in namespace %s (%d resources).\n",
		def.ID(), def.Spec.Namespace, len(def.Spec.Setup.Resources))
	fmt.Printf("Prompt:\n\n%s\n", handle.Definition().Spec.Prompt)
	return nil
}
