// Package amortization computes fixed installments for fully amortizing loans.
package amortization

import (
	"math"

	"github.com/frahmantamala/loan-servicing/internal/core/money"
)

// MonthlyPayment returns the installment for principal at annualRate over months,
// rounded to cents. months <= 0 is a single payment of the principal.
func MonthlyPayment(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return money.Round2(principal)
	}
	if annualRate == 0 {
		return money.Round2(principal / float64(months))
	}

	r := annualRate / 12.0
	denom := 1 - math.Pow(1+r, -float64(months))
	if denom == 0 {
		return money.Round2(principal / float64(months))
	}
	return money.Round2(principal * r / denom)
}

// TotalRepayable is what the borrower pays across the full term.
func TotalRepayable(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return money.Round2(principal)
	}
	return money.Round2(MonthlyPayment(principal, annualRate, months) * float64(months))
}
