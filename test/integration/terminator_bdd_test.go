//go:build integration && !windows

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/actmon/internal/domain"
	"github.com/eliteGoblin/focusd/actmon/internal/infra"
	"github.com/eliteGoblin/focusd/actmon/internal/policy"
	"github.com/eliteGoblin/focusd/actmon/internal/usecase"
	"github.com/eliteGoblin/focusd/actmon/test/fixtures"
)

var _ = Describe("Terminating a blocked application", func() {
	var (
		dir     string
		keyword string
		decoys  []*fixtures.Decoy
		pm      domain.ProcessManager
		term    *usecase.TerminatorImpl
	)

	spawn := func(suffix string, stubborn bool) *fixtures.Decoy {
		var (
			d   *fixtures.Decoy
			err error
		)
		if stubborn {
			d, err = fixtures.StartStubbornDecoy(dir, keyword+suffix)
		} else {
			d, err = fixtures.StartDecoy(dir, keyword+suffix)
		}
		Expect(err).NotTo(HaveOccurred())
		decoys = append(decoys, d)
		return d
	}

	identity := func(d *fixtures.Decoy) domain.ProcessIdentity {
		return domain.ProcessIdentity{PID: d.PID(), DisplayName: d.Name, CanonicalName: d.Name}
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "actmon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		keyword = "actdcy" + fixtures.UniqueToken()
		decoys = nil
		pm = infra.NewProcessManager()
		term = usecase.NewTerminator(pm, policy.NewBlockListFromKeywords(keyword),
			500*time.Millisecond, 50*time.Millisecond, zap.NewNop())
	})

	AfterEach(func() {
		for _, d := range decoys {
			d.Stop()
		}
		os.RemoveAll(dir)
	})

	Context("when the process honours SIGTERM", func() {
		It("ends it gracefully", func() {
			target := spawn("a", false)
			Eventually(func() bool { return pm.IsRunning(target.PID()) }).Should(BeTrue())

			out := term.Terminate(context.Background(), identity(target))

			Expect(out.Method).To(Equal(domain.MethodGraceful))
			Expect(out.Errors).To(BeEmpty())
			Eventually(target.Exited(), 2*time.Second).Should(BeClosed())
		})
	})

	Context("when the process ignores SIGTERM", func() {
		It("force-kills it after the grace period", func() {
			target := spawn("s", true)
			Eventually(func() bool { return pm.IsRunning(target.PID()) }).Should(BeTrue())
			// Give the shell time to install its trap.
			time.Sleep(200 * time.Millisecond)

			out := term.Terminate(context.Background(), identity(target))

			Expect(out.Method).To(Equal(domain.MethodForced))
			Expect(out.DurationMs).To(BeNumerically(">=", 500))
			Eventually(target.Exited(), 2*time.Second).Should(BeClosed())
		})
	})

	Context("when helper processes share the name", func() {
		It("sweeps them and leaves unrelated processes alone", func() {
			target := spawn("a", false)
			helper1 := spawn("b", false)
			helper2 := spawn("c", false)

			bystander, err := fixtures.StartDecoy(dir, "bystnd"+fixtures.UniqueToken())
			Expect(err).NotTo(HaveOccurred())
			decoys = append(decoys, bystander)

			Eventually(func() bool { return pm.IsRunning(helper2.PID()) }).Should(BeTrue())

			out := term.Terminate(context.Background(), identity(target))

			Expect(out.Method).To(Equal(domain.MethodGraceful))
			Expect(out.SweptCount).To(Equal(2))
			Expect(out.SweptPIDs).To(ConsistOf(helper1.PID(), helper2.PID()))
			Eventually(helper1.Exited(), 2*time.Second).Should(BeClosed())
			Eventually(helper2.Exited(), 2*time.Second).Should(BeClosed())
			Consistently(bystander.Exited(), 300*time.Millisecond).ShouldNot(BeClosed())
		})
	})

	Context("when the process is already gone", func() {
		It("reports not_found on the second attempt", func() {
			target := spawn("a", false)

			first := term.Terminate(context.Background(), identity(target))
			Expect(first.Method).To(Equal(domain.MethodGraceful))
			Eventually(target.Exited(), 2*time.Second).Should(BeClosed())

			second := term.Terminate(context.Background(), identity(target))
			Expect(second.Method).To(Equal(domain.MethodNotFound))
		})
	})
})
