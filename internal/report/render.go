// Copyright Contributors to the TaskBench project

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
)

// Render writes the human-readable run report: per assertion the field
// path checked, expected vs observed, and severity. The report names every
// failing assertion and resource so a run is diagnosable without
// re-running.
func Render(w io.Writer, r *TaskRunResult) {
	fmt.Fprintf(w, "Task: %s\n", r.TaskID)
	if r.Difficulty != "" {
		fmt.Fprintf(w, "Difficulty: %s\n", r.Difficulty)
	}
	fmt.Fprintln(w)

	for _, p := range r.Phases {
		line := fmt.Sprintf("  %-8s %-10s %s", p.Phase, p.Status, p.Duration.Round(time.Millisecond))
		if p.Error != "" {
			line += "  (" + p.Error + ")"
		}
		fmt.Fprintln(w, line)
	}

	if len(r.Assertions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Assertions:")
		for _, a := range r.Assertions {
			mark := "ok"
			if a.Failed() {
				mark = "FAIL"
				if a.Severity == taskbenchv1alpha1.SeverityAdvisory {
					mark = "WARN"
				}
			}
			target := a.Target.Kind + "/" + a.Target.Name
			if a.Target.Namespace != "" {
				target = a.Target.Namespace + "/" + target
			}
			fmt.Fprintf(w, "  [%-4s] %s %s: expected %s, observed %s (%s)\n",
				mark, target, a.Name, a.Expected, a.Observed, strings.ToLower(string(a.Severity)))
			if a.ErrText != "" {
				fmt.Fprintf(w, "         error: %s\n", a.ErrText)
			}
		}
	}

	for _, warn := range r.CleanupWarnings {
		fmt.Fprintf(w, "  WARNING: %s\n", warn)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Verdict: %s\n", r.Verdict)
}

// RenderJSON writes the result as indented JSON for machine consumers.
func RenderJSON(w io.Writer, r *TaskRunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderSuiteMarkdown writes a markdown summary table for a set of run
// results, grouped by difficulty the way the original benchmark published
// its results.
func RenderSuiteMarkdown(w io.Writer, results []*TaskRunResult) {
	fmt.Fprintln(w, "# TaskBench Results")
	fmt.Fprintln(w)

	byDifficulty := map[taskbenchv1alpha1.Difficulty][2]int{}
	order := []taskbenchv1alpha1.Difficulty{
		taskbenchv1alpha1.DifficultyEasy,
		taskbenchv1alpha1.DifficultyMedium,
		taskbenchv1alpha1.DifficultyHard,
	}
	for _, r := range results {
		d := r.Difficulty
		if d == "" {
			d = taskbenchv1alpha1.DifficultyMedium
		}
		counts := byDifficulty[d]
		counts[1]++
		if r.Verdict != VerdictFail {
			counts[0]++
		}
		byDifficulty[d] = counts
	}

	fmt.Fprintln(w, "| Difficulty | Passed | Total |")
	fmt.Fprintln(w, "|------------|--------|-------|")
	for _, d := range order {
		counts, ok := byDifficulty[d]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "| %s | %d | %d |\n", d, counts[0], counts[1])
	}
	fmt.Fprintln(w)

	sorted := make([]*TaskRunResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskID < sorted[j].TaskID })

	fmt.Fprintln(w, "| Task | Difficulty | Verdict |")
	fmt.Fprintln(w, "|------|------------|---------|")
	for _, r := range sorted {
		fmt.Fprintf(w, "| %s | %s | %s |\n", r.TaskID, r.Difficulty, r.Verdict)
	}
}
