// Copyright Contributors to the TaskBench project

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/kubetask/taskbench/internal/catalog"
	"github.com/kubetask/taskbench/internal/report"
	"github.com/kubetask/taskbench/internal/runner"
	"github.com/kubetask/taskbench/internal/schedule"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&tasksDir, "tasks", "./tasks",
		"Path to the task catalog directory")
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "",
		"Standard cron expression, e.g. \"0 * * * *\" (required)")
	scheduleCmd.Flags().StringVar(&runActionCmd, "action-cmd", "",
		"Command to run as each task's action phase")
	scheduleCmd.Flags().StringVar(&scheduleReportDir, "report-dir", "",
		"Directory for per-iteration suite summaries (default: stdout only)")
}

var (
	scheduleCron      string
	scheduleReportDir string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run a task catalog repeatedly on a cron schedule",
	Long: `Run every task in the catalog on a recurring cron schedule. Each
iteration runs the full catalog sequentially and writes a markdown
suite summary. Soak runs use this to watch for verdict drift over
time. Stop with Ctrl-C.`,
	RunE:         runSchedule,
	SilenceUsage: true,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	log := setupLogging("schedule")

	if scheduleCron == "" {
		return fmt.Errorf("--cron is required")
	}
	if err := schedule.Validate(scheduleCron); err != nil {
		return err
	}

	c, err := catalog.LoadDir(tasksDir)
	if err != nil {
		return err
	}
	if c.Len() == 0 {
		return fmt.Errorf("no tasks in %s", tasksDir)
	}
	r, err := newRunner(log)
	if err != nil {
		return err
	}
	s, err := schedule.New(scheduleCron, log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	next := s.NextRuns(1)
	log.Info("schedule armed", "tasks", c.Len(), "cron", scheduleCron,
		"first", next[0].Format(time.RFC3339))

	iteration := 0
	err = s.Run(ctx, func(ctx context.Context) error {
		iteration++
		return runSuiteOnce(ctx, r, c, log, iteration)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runSuiteOnce runs every catalog task sequentially and emits the
// suite summary. A task failure is a verdict, not an error, so the
// iteration always completes.
func runSuiteOnce(ctx context.Context, r *runner.Runner, c *catalog.Catalog, log logr.Logger, iteration int) error {
	results := make([]*report.TaskRunResult, 0, c.Len())
	for _, def := range c.All() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := r.Execute(ctx, def, actionFunc(log))
		if err != nil {
			log.Error(err, "task run did not complete cleanly", "task", def.ID())
		}
		if result != nil {
			results = append(results, result)
		}
	}

	report.RenderSuiteMarkdown(os.Stdout, results)
	if scheduleReportDir != "" {
		if err := writeSuiteSummary(scheduleReportDir, iteration, results); err != nil {
			log.Error(err, "failed to write suite summary", "iteration", iteration)
		}
	}
	return nil
}

func writeSuiteSummary(dir string, iteration int, results []*report.TaskRunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("suite-%s-%03d.md", time.Now().Format("20060102-150405"), iteration)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	report.RenderSuiteMarkdown(f, results)
	return nil
}
