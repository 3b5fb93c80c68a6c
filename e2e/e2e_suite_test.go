// Copyright Contributors to the TaskBench project

//go:build integration

package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/util/rand"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/kubetask/taskbench/internal/cluster"
)

const (
	timeout  = time.Minute * 2
	interval = time.Second * 2
)

var (
	ctx      context.Context
	cancel   context.CancelFunc
	accessor cluster.Accessor
)

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TaskBench E2E Suite")
}

var _ = BeforeSuite(func() {
	ctrl.SetLogger(zap.New(zap.UseDevMode(true)))
	ctx, cancel = context.WithCancel(context.Background())

	config, err := ctrl.GetConfig()
	Expect(err).NotTo(HaveOccurred(), "a reachable cluster is required for e2e")

	accessor, err = cluster.New(config)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	cancel()
})

// uniqueName avoids collisions when the suite reruns against the same
// cluster before namespace deletion finishes.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, rand.String(5))
}
