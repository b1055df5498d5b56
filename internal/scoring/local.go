package scoring

import (
	"context"
	"math"
)

// Heuristic is the in-process scorer. It favours higher credit scores, income,
// savings and collateral and penalises debt-to-income above 0.35, amounts
// above 10000 and past defaults.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Predict(_ context.Context, f Features) (Prediction, error) {
	s := Score(f)
	return Prediction{Score: s, Risk: Band(s)}, nil
}

// Score returns the heuristic score clamped to [0, 1].
func Score(f Features) float64 {
	cs := 650.0
	if f.CreditScore != nil && *f.CreditScore != 0 {
		cs = float64(*f.CreditScore)
	}
	dti := 0.35
	if f.DTI != nil {
		dti = *f.DTI
	}
	inc := 40000.0
	if f.AnnualIncome != nil && *f.AnnualIncome != 0 {
		inc = *f.AnnualIncome
	}
	emp := 2.0
	if f.EmploymentYears != nil && *f.EmploymentYears != 0 {
		emp = *f.EmploymentYears
	}
	sav := deref(f.Savings)
	col := deref(f.CollateralValue)
	defs := 0.0
	if f.PastDefaults != nil {
		defs = float64(*f.PastDefaults)
	}

	s := 0.50

	s += math.Max(0, cs-650) / 1000
	s += math.Min(inc, 150000) / 1000000
	s += math.Min(sav, 50000) / 250000
	s += math.Min(col, 200000) / 1000000
	s += math.Min(emp, 10) / 100

	s -= math.Max(0, dti-0.35) * 0.6
	s -= math.Max(0, f.Amount-10000) / 120000
	s -= math.Min(defs, 5) * 0.05

	return math.Max(0, math.Min(1, s))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
