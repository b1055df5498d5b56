package money_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/loan-servicing/internal/core/money"
)

var _ = ginkgo.Describe("Money", func() {
	ginkgo.DescribeTable("Round2 rounds the binary value, ties to even",
		func(in, want float64) {
			gomega.Expect(money.Round2(in)).To(gomega.Equal(want))
		},
		ginkgo.Entry("down", 1.234, 1.23),
		ginkgo.Entry("stored just above the half", 1.235, 1.24),
		ginkgo.Entry("stored just below the half", 2.675, 2.67),
		ginkgo.Entry("exact tie to even below", 500.125, 500.12),
		ginkgo.Entry("exact tie to even above", 0.375, 0.38),
		ginkgo.Entry("negative tie", -0.125, -0.12),
		ginkgo.Entry("already rounded", 439.58, 439.58),
		ginkgo.Entry("integer", 1e6, 1e6),
	)

	ginkgo.It("adds without binary drift", func() {
		gomega.Expect(money.Add(0.1, 0.2)).To(gomega.Equal(0.3))
		gomega.Expect(money.Add(60, 40)).To(gomega.Equal(100.0))
	})

	ginkgo.It("computes the remaining balance to the cent", func() {
		gomega.Expect(money.Remaining(100, 60)).To(gomega.Equal(40.0))
		gomega.Expect(money.Remaining(439.58, 439.58)).To(gomega.BeZero())
		gomega.Expect(money.Remaining(10.1, 0.05)).To(gomega.Equal(10.05))
	})

	ginkgo.DescribeTable("ToMinorUnits",
		func(in float64, want int64) {
			gomega.Expect(money.ToMinorUnits(in)).To(gomega.Equal(want))
		},
		ginkgo.Entry("whole", 12.0, int64(1200)),
		ginkgo.Entry("cents", 439.58, int64(43958)),
		ginkgo.Entry("exact half cent goes to even", 12.345, int64(1234)),
		ginkgo.Entry("below a cent", 0.004, int64(0)),
	)

	ginkgo.It("treats amounts within epsilon as settled", func() {
		gomega.Expect(money.Settled(100, 100)).To(gomega.BeTrue())
		gomega.Expect(money.Settled(99.9999995, 100)).To(gomega.BeTrue())
		gomega.Expect(money.Settled(99.99, 100)).To(gomega.BeFalse())
	})

	ginkgo.It("lowercases currencies and falls back to the default", func() {
		gomega.Expect(money.NormalizeCurrency(" EUR ", "usd")).To(gomega.Equal("eur"))
		gomega.Expect(money.NormalizeCurrency("", "USD")).To(gomega.Equal("usd"))
	})
})
