// Copyright Contributors to the TaskBench project

//go:build integration

package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	taskbenchv1alpha1 "github.com/kubetask/taskbench/api/v1alpha1"
	"github.com/kubetask/taskbench/internal/cluster"
	"github.com/kubetask/taskbench/internal/report"
	"github.com/kubetask/taskbench/internal/runner"
)

// configMapTask builds a self-contained scenario that works on any
// cluster: the agent must set data.mode to "active" on a ConfigMap.
func configMapTask(ns string) *taskbenchv1alpha1.TaskDefinition {
	cm := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "ConfigMap",
		"metadata":   map[string]interface{}{"name": "switchboard"},
		"data":       map[string]interface{}{"mode": "standby"},
	}}
	return &taskbenchv1alpha1.TaskDefinition{
		APIVersion: taskbenchv1alpha1.GroupVersion,
		Kind:       taskbenchv1alpha1.TaskDefinitionKind,
		Metadata:   taskbenchv1alpha1.Metadata{Name: uniqueName("switchboard")},
		Spec: taskbenchv1alpha1.TaskDefinitionSpec{
			Namespace:  ns,
			Difficulty: taskbenchv1alpha1.DifficultyEasy,
			Prompt:     "Set data.mode to active on the switchboard config map.",
			Setup: taskbenchv1alpha1.SetupSpec{
				Resources: []unstructured.Unstructured{*cm},
			},
			Assertions: []taskbenchv1alpha1.Assertion{{
				Name:       "mode-active",
				Target:     taskbenchv1alpha1.ObjectRef{Kind: "ConfigMap", Name: "switchboard"},
				FieldPath:  "data.mode",
				Comparator: taskbenchv1alpha1.ComparatorEquals,
				Expected:   taskbenchv1alpha1.NewValue("active"),
			}},
			Cleanup: taskbenchv1alpha1.CleanupSpec{
				Targets: []taskbenchv1alpha1.ObjectRef{
					{Kind: "ConfigMap", Name: "switchboard"},
				},
			},
		},
	}
}

var _ = Describe("Task lifecycle", func() {
	var (
		ns string
		r  *runner.Runner
	)

	BeforeEach(func() {
		ns = uniqueName("taskbench-e2e")
		r = runner.New(accessor)
	})

	It("passes when the agent performs the task", func() {
		def := configMapTask(ns)

		result, err := r.Execute(ctx, def, func(ctx context.Context, handle *runner.RunHandle) error {
			obj, err := accessor.Get(ctx, taskbenchv1alpha1.ObjectRef{
				APIVersion: "v1", Kind: "ConfigMap", Namespace: ns, Name: "switchboard",
			})
			if err != nil {
				return err
			}
			obj.Object["data"] = map[string]interface{}{"mode": "active"}
			_, err = accessor.Apply(ctx, obj)
			return err
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Verdict).To(Equal(report.VerdictPass))

		By("Verifying the scenario namespace is gone")
		Eventually(func() bool {
			_, err := accessor.Get(ctx, taskbenchv1alpha1.ObjectRef{
				APIVersion: "v1", Kind: "Namespace", Name: ns,
			})
			return cluster.IsNotFound(err)
		}, timeout, interval).Should(BeTrue())
	})

	It("fails when the agent does nothing", func() {
		def := configMapTask(ns)

		result, err := r.Execute(ctx, def, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Verdict).To(Equal(report.VerdictFail))

		outcome, ok := result.PhaseOutcomeFor(report.PhaseVerify)
		Expect(ok).To(BeTrue())
		Expect(outcome.Status).To(Equal(report.PhaseSucceeded))
		Expect(result.Assertions).To(HaveLen(1))
		Expect(result.Assertions[0].Matched).To(BeFalse())
		Expect(result.Assertions[0].Observed).To(Equal("standby"))
	})

	It("setup converges when run twice", func() {
		def := configMapTask(ns)

		handle, err := r.RunSetup(ctx, def)
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.State()).To(Equal(runner.StateAwaitingAction))

		handle2, err := r.RunSetup(ctx, def)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.RunCleanup(ctx, handle2)).To(Succeed())
	})
})
