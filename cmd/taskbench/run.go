// Copyright Contributors to the TaskBench project

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/report"
	"github.com/kubetask/taskbench/internal/runner"
)

func init() {
	rootCmd.AddCommand(runCmd)
	addTaskFlags(runCmd)
	addOutputFlag(runCmd)
	runCmd.Flags().BoolVar(&runPauseForAction, "pause-for-action", false,
		"Pause after setup and wait for Enter before verifying (interactive runs)")
	runCmd.Flags().StringVar(&runActionCmd, "action-cmd", "",
		"Command to run as the action phase; receives the task prompt on stdin")
	runCmd.Flags().BoolVar(&runSkipCleanup, "skip-cleanup", false,
		"Leave the scenario in place after verification (for debugging)")
}

var (
	runPauseForAction bool
	runActionCmd      string
	runSkipCleanup    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one task through its full lifecycle",
	Long: `Run one task end to end: set up the scenario, perform the action
phase, verify the assertions, and clean up.

The action phase is pluggable. With --action-cmd, taskbench executes
the given command and writes the task prompt to its stdin; the agent
under test reads the prompt and works against the cluster. With
--pause-for-action, taskbench waits for Enter so a human can act. With
neither, verification runs immediately after setup, which is useful
for task definitions whose setup is already the desired end state.

The exit code is 0 when the verdict is PASS or PASS_WITH_WARNINGS and
1 when it is FAIL.`,
	RunE:         runRun,
	SilenceUsage: true,
}

func runRun(cmd *cobra.Command, args []string) error {
	log := setupLogging("run")

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

	var result *report.TaskRunResult
	if runSkipCleanup {
		result, err = runWithoutCleanup(ctx, r, def, actionFunc(log))
	} else {
		result, err = r.Execute(ctx, def, actionFunc(log))
	}
	if err != nil {
		log.Error(err, "run did not complete cleanly")
	}
	if result == nil {
		return err
	}
	code, rerr := emitReport(result)
	if rerr != nil {
		return rerr
	}
	os.Exit(code)
	return nil
}

// runWithoutCleanup is the debugging path: setup, action, verify, stop.
// The scenario stays in the cluster for inspection.
func runWithoutCleanup(ctx context.Context, r *runner.Runner, def *taskbenchv1alpha1.TaskDefinition, action runner.ActionFunc) (*report.TaskRunResult, error) {
	handle, err := r.RunSetup(ctx, def)
	if err != nil {
		if handle != nil {
			return handle.Result(), err
		}
		return nil, err
	}
	if action != nil {
		if err := action(ctx, handle); err != nil {
			return handle.Result(), err
		}
	}
	return r.RunVerify(ctx, handle)
}

// actionFunc builds the action phase from the run flags.
func actionFunc(log logr.Logger) runner.ActionFunc {
	switch {
	case runActionCmd != "":
		return execAction(runActionCmd, log)
	case runPauseForAction:
		return pauseAction
	default:
		return nil
	}
}

// execAction shells out to the agent under test, feeding it the prompt.
func execAction(command string, log logr.Logger) runner.ActionFunc {
	return func(ctx context.Context, handle *runner.RunHandle) error {
		def := handle.Definition()
		log.Info("running action command", "command", command, "task", def.ID())

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = strings.NewReader(def.Spec.Prompt)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(),
			"TASKBENCH_TASK="+def.ID(),
			"TASKBENCH_NAMESPACE="+def.Spec.Namespace,
		)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("action command: %w", err)
		}
		return nil
	}
}

// pauseAction blocks until the operator presses Enter or the context
// is canceled.
func pauseAction(ctx context.Context, handle *runner.RunHandle) error {
	def := handle.Definition()
	fmt.Printf("\nTask: %s\nNamespace: %s\n\n%s\n\nPress Enter when done...\n",
		def.ID(), def.Spec.Namespace, def.Spec.Prompt)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(os.Stdin).ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// signalContext cancels on SIGINT/SIGTERM so an interrupted run still
// attempts cleanup.
func signalContext(log logr.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()
	return ctx, cancel
}
