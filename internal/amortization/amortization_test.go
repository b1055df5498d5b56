package amortization_test

import (
	"github.com/frahmantamala/loan-servicing/internal/amortization"
	"github.com/frahmantamala/loan-servicing/internal/core/money"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("MonthlyPayment", func() {
	Context("with a zero rate", func() {
		It("splits the principal evenly", func() {
			for _, n := range []int{1, 3, 7, 12, 36} {
				Expect(amortization.MonthlyPayment(1000, 0, n)).To(Equal(money.Round2(1000 / float64(n))))
			}
		})

		It("rounds to cents", func() {
			Expect(amortization.MonthlyPayment(100, 0, 3)).To(Equal(33.33))
		})

		It("breaks exact cent ties to even", func() {
			Expect(amortization.MonthlyPayment(1000.25, 0, 2)).To(Equal(500.12))
			Expect(amortization.MonthlyPayment(0.75, 0, 2)).To(Equal(0.38))
			Expect(amortization.MonthlyPayment(500.125, 0.1, 0)).To(Equal(500.12))
		})
	})

	Context("with a non-positive term", func() {
		It("returns the rounded principal", func() {
			Expect(amortization.MonthlyPayment(1234.567, 0.1, 0)).To(Equal(1234.57))
			Expect(amortization.MonthlyPayment(500, 0.05, -3)).To(Equal(500.0))
		})
	})

	Context("with a positive rate", func() {
		It("matches the standard formula", func() {
			// Given 5000 at 10% over 12 months
			// When
			pmt := amortization.MonthlyPayment(5000, 0.10, 12)

			// Then
			Expect(pmt).To(Equal(439.58))
		})

		It("never repays less than the principal", func() {
			for _, p := range []float64{100, 2500, 10000, 250000} {
				for _, r := range []float64{0.01, 0.05, 0.10, 0.25} {
					for _, n := range []int{1, 6, 12, 60, 360} {
						pmt := amortization.MonthlyPayment(p, r, n)
						Expect(pmt*float64(n)).To(BeNumerically(">=", p), "p=%v r=%v n=%v", p, r, n)
					}
				}
			}
		})

		It("charges one month of interest on a single installment", func() {
			Expect(amortization.MonthlyPayment(1200, 0.12, 1)).To(Equal(1212.0))
		})
	})

	It("is deterministic", func() {
		a := amortization.MonthlyPayment(7345.21, 0.137, 27)
		b := amortization.MonthlyPayment(7345.21, 0.137, 27)
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("TotalRepayable", func() {
	It("multiplies the installment by the term", func() {
		Expect(amortization.TotalRepayable(5000, 0.10, 12)).To(Equal(5274.96))
	})
})
