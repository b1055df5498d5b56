package loan

import (
	"time"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/common/validation"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
)

type CreateApplicationDTO struct {
	Amount          float64  `json:"amount"`
	TermMonths      int      `json:"term_months"`
	Purpose         *string  `json:"purpose,omitempty"`
	Region          *string  `json:"region,omitempty"`
	AnnualIncome    *float64 `json:"annual_income,omitempty"`
	CreditScore     *int     `json:"credit_score,omitempty"`
	DTI             *float64 `json:"dti,omitempty"`
	PastDefaults    *int     `json:"past_defaults,omitempty"`
	EmploymentYears *float64 `json:"employment_years,omitempty"`
	Savings         *float64 `json:"savings,omitempty"`
	CollateralValue *float64 `json:"collateral_value,omitempty"`
	Age             *float64 `json:"age,omitempty"`
}

func (d CreateApplicationDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", d.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("term_months", d.TermMonths).
		MinInt(1, errors.ErrCodeInvalidTerm).
		MaxInt(480, errors.ErrCodeInvalidTerm)
	v.Field("credit_score", d.CreditScore).
		MinInt(300, errors.ErrCodeInvalidFeature).
		MaxInt(900, errors.ErrCodeInvalidFeature)
	v.Field("past_defaults", d.PastDefaults).MinInt(0, errors.ErrCodeInvalidFeature)
	v.Field("annual_income", d.AnnualIncome).MinFloat(0, errors.ErrCodeInvalidFeature)
	v.Field("dti", d.DTI).MinFloat(0, errors.ErrCodeInvalidFeature)
	v.Field("employment_years", d.EmploymentYears).MinFloat(0, errors.ErrCodeInvalidFeature)
	v.Field("savings", d.Savings).MinFloat(0, errors.ErrCodeInvalidFeature)
	v.Field("collateral_value", d.CollateralValue).MinFloat(0, errors.ErrCodeInvalidFeature)
	v.Field("age", d.Age).
		MinFloat(18, errors.ErrCodeInvalidFeature).
		MaxFloat(120, errors.ErrCodeInvalidFeature)
	if d.Purpose != nil {
		v.Field("purpose", *d.Purpose).MaxLength(200)
	}
	if d.Region != nil {
		v.Field("region", *d.Region).MaxLength(100)
	}
	return v.Validate()
}

func (d CreateApplicationDTO) toModel(borrowerID int64, now time.Time) *loan.Application {
	return &loan.Application{
		BorrowerID:      borrowerID,
		Amount:          d.Amount,
		TermMonths:      d.TermMonths,
		Purpose:         d.Purpose,
		Region:          d.Region,
		AnnualIncome:    d.AnnualIncome,
		CreditScore:     d.CreditScore,
		DTI:             d.DTI,
		PastDefaults:    d.PastDefaults,
		EmploymentYears: d.EmploymentYears,
		Savings:         d.Savings,
		CollateralValue: d.CollateralValue,
		Age:             d.Age,
		Status:          loan.ApplicationStatusSubmitted,
		CreatedAt:       now,
	}
}

// DecisionDTO is read from the JSON body, with query parameters as a fallback.
type DecisionDTO struct {
	Decision string  `json:"decision"`
	Reason   *string `json:"reason,omitempty"`
}

func (d DecisionDTO) Validate() *errors.AppError {
	if d.Decision != loan.ApplicationStatusApproved && d.Decision != loan.ApplicationStatusRejected {
		return errors.ErrInvalidDecision
	}
	return nil
}

type ApplicationResponse struct {
	ID              int64     `json:"id"`
	BorrowerID      int64     `json:"borrower_id"`
	Amount          float64   `json:"amount"`
	TermMonths      int       `json:"term_months"`
	Purpose         *string   `json:"purpose"`
	Region          *string   `json:"region"`
	AnnualIncome    *float64  `json:"annual_income"`
	CreditScore     *int      `json:"credit_score"`
	DTI             *float64  `json:"dti"`
	PastDefaults    *int      `json:"past_defaults"`
	EmploymentYears *float64  `json:"employment_years"`
	Savings         *float64  `json:"savings"`
	CollateralValue *float64  `json:"collateral_value"`
	Age             *float64  `json:"age"`
	Status          string    `json:"status"`
	AIScore         *float64  `json:"ai_score"`
	AIRiskBand      *string   `json:"ai_risk_band"`
	DecisionReason  *string   `json:"decision_reason"`
	LoanID          *int64    `json:"loan_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toApplicationResponse(a loan.Application) ApplicationResponse {
	return ApplicationResponse{
		ID:              a.ID,
		BorrowerID:      a.BorrowerID,
		Amount:          a.Amount,
		TermMonths:      a.TermMonths,
		Purpose:         a.Purpose,
		Region:          a.Region,
		AnnualIncome:    a.AnnualIncome,
		CreditScore:     a.CreditScore,
		DTI:             a.DTI,
		PastDefaults:    a.PastDefaults,
		EmploymentYears: a.EmploymentYears,
		Savings:         a.Savings,
		CollateralValue: a.CollateralValue,
		Age:             a.Age,
		Status:          a.Status,
		AIScore:         a.AIScore,
		AIRiskBand:      a.AIRiskBand,
		DecisionReason:  a.DecisionReason,
		CreatedAt:       a.CreatedAt,
	}
}

type DecisionResponse struct {
	ID     int64   `json:"id"`
	Status string  `json:"status"`
	Reason *string `json:"reason"`
}

type RescoreResponse struct {
	ApplicationID int64   `json:"application_id"`
	AIScore       float64 `json:"ai_score"`
	Risk          string  `json:"risk"`
	Status        string  `json:"status"`
	Mode          string  `json:"mode"`
}

type LoanResponse struct {
	ID             int64     `json:"id"`
	ApplicationID  *int64    `json:"application_id"`
	Principal      float64   `json:"principal"`
	InterestRate   float64   `json:"interest_rate"`
	DurationMonths int       `json:"duration_months"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type RepaymentResponse struct {
	ID          int64      `json:"id"`
	DueDate     time.Time  `json:"due_date"`
	AmountDue   float64    `json:"amount_due"`
	AmountPaid  float64    `json:"amount_paid"`
	PaidAt      *time.Time `json:"paid_at"`
	Status      string     `json:"status"`
	ReceiptPath *string    `json:"receipt_path"`
}

type LoanWithRepayments struct {
	Loan       LoanResponse        `json:"loan"`
	Repayments []RepaymentResponse `json:"repayments"`
}

type ChartPoint struct {
	Month  string  `json:"month"`
	Due    float64 `json:"due"`
	Paid   float64 `json:"paid"`
	Status string  `json:"status"`
}
