//go:build integration && !windows

package integration

import (
	"context"
	"os"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
	"github.com/eliteGoblin/focusd/actmon/internal/infra"
	"github.com/eliteGoblin/focusd/actmon/internal/usecase"
	"github.com/eliteGoblin/focusd/actmon/test/fixtures"
)

type collectingSink struct {
	processes []domain.ProcessEntry
}

func (s *collectingSink) EmitActivity(domain.ActivitySnapshot) error { return nil }

func (s *collectingSink) EmitNewProcess(e domain.ProcessEntry) error {
	s.processes = append(s.processes, e)
	return nil
}

func names(entries []domain.ProcessEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

var _ = DescribeTable("Tracking new processes",
	func(lister func() domain.ProcessLister, linuxOnly bool) {
		if linuxOnly && runtime.GOOS != "linux" {
			Skip("ps prints full command paths outside Linux")
		}
		dir, err := os.MkdirTemp("", "actmon-tracker-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		sink := &collectingSink{}
		tracker := usecase.NewProcessTracker(lister(), sink, []string{"ps"}, zap.NewNop())

		baseline, err := tracker.Poll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(baseline).NotTo(BeEmpty())
		Expect(names(baseline)).NotTo(ContainElement("ps"))

		name := "trkdcy" + fixtures.UniqueToken()
		d, err := fixtures.StartDecoy(dir, name)
		Expect(err).NotTo(HaveOccurred())
		defer d.Stop()

		Eventually(func() []domain.ProcessEntry {
			fresh, err := tracker.Poll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			return fresh
		}).Should(ContainElement(domain.ProcessEntry{PID: d.PID(), Name: name}))

		again, err := tracker.Poll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(again).NotTo(ContainElement(domain.ProcessEntry{PID: d.PID(), Name: name}))
	},
	Entry("with the gopsutil lister", func() domain.ProcessLister { return infra.NewProcessManager() }, false),
	Entry("with the ps lister", func() domain.ProcessLister { return infra.NewPSLister() }, true),
)
