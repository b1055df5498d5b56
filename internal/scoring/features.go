// Package scoring turns application features into a credit score and risk band.
package scoring

import (
	"context"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
)

// Features is the scorer's input. Nil fields are sent as null so the scorer can impute them.
type Features struct {
	Amount          float64  `json:"amount"`
	TermMonths      int      `json:"term_months"`
	AnnualIncome    *float64 `json:"annual_income"`
	CreditScore     *int     `json:"credit_score"`
	DTI             *float64 `json:"dti"`
	PastDefaults    *int     `json:"past_defaults"`
	EmploymentYears *float64 `json:"employment_years"`
	Savings         *float64 `json:"savings"`
	CollateralValue *float64 `json:"collateral_value"`
	Age             *float64 `json:"age"`
	Purpose         *string  `json:"purpose"`
	Region          *string  `json:"region"`
}

type Prediction struct {
	Score float64 `json:"score"`
	Risk  string  `json:"risk"`
}

// Scorer is anything that can score a feature set.
type Scorer interface {
	Predict(ctx context.Context, f Features) (Prediction, error)
}

func FromApplication(app loan.Application) Features {
	return Features{
		Amount:          app.Amount,
		TermMonths:      app.TermMonths,
		AnnualIncome:    app.AnnualIncome,
		CreditScore:     app.CreditScore,
		DTI:             app.DTI,
		PastDefaults:    app.PastDefaults,
		EmploymentYears: app.EmploymentYears,
		Savings:         app.Savings,
		CollateralValue: app.CollateralValue,
		Age:             app.Age,
		Purpose:         emptyToNil(app.Purpose),
		Region:          emptyToNil(app.Region),
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
