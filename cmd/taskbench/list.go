// Copyright Contributors to the TaskBench project

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kubetask/taskbench/internal/catalog"
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&tasksDir, "tasks", "./tasks",
		"Path to a task catalog directory")
}

var listCmd = &cobra.Command{
	Use:          "list",
	Short:        "List the tasks in a catalog directory",
	RunE:         runList,
	SilenceUsage: true,
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := catalog.LoadDir(tasksDir)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tDIFFICULTY\tNAMESPACE\tASSERTIONS")
	for _, def := range c.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			def.ID(), def.Spec.Difficulty, def.Spec.Namespace, len(def.Spec.Assertions))
	}
	return w.Flush()
}
