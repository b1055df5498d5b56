package loan

import "time"

const (
	ApplicationStatusSubmitted   = "Submitted"
	ApplicationStatusUnderReview = "UnderReview"
	ApplicationStatusApproved    = "Approved"
	ApplicationStatusRejected    = "Rejected"
	ApplicationStatusMinted      = "Minted"
)

const (
	LoanStatusActive    = "Active"
	LoanStatusClosed    = "Closed"
	LoanStatusDefaulted = "Defaulted"
)

const (
	RepaymentStatusDue  = "Due"
	RepaymentStatusPaid = "Paid"
	RepaymentStatusLate = "Late"
)

const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// Application holds a borrower's request. Feature columns are nullable; nil means
// the borrower did not provide the value.
type Application struct {
	ID              int64     `gorm:"primaryKey"`
	BorrowerID      int64     `gorm:"column:borrower_id;not null;index"`
	Amount          float64   `gorm:"column:amount;not null"`
	TermMonths      int       `gorm:"column:term_months;not null"`
	Purpose         *string   `gorm:"column:purpose"`
	Region          *string   `gorm:"column:region"`
	AnnualIncome    *float64  `gorm:"column:annual_income"`
	CreditScore     *int      `gorm:"column:credit_score"`
	DTI             *float64  `gorm:"column:dti"`
	PastDefaults    *int      `gorm:"column:past_defaults"`
	EmploymentYears *float64  `gorm:"column:employment_years"`
	Savings         *float64  `gorm:"column:savings"`
	CollateralValue *float64  `gorm:"column:collateral_value"`
	Age             *float64  `gorm:"column:age"`
	Status          string    `gorm:"column:status;not null;default:Submitted"`
	AIScore         *float64  `gorm:"column:ai_score"`
	AIRiskBand      *string   `gorm:"column:ai_risk_band"`
	DecisionReason  *string   `gorm:"column:decision_reason"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Application) TableName() string { return "loan_applications" }

type Loan struct {
	ID             int64     `gorm:"primaryKey"`
	ApplicationID  *int64    `gorm:"column:application_id;uniqueIndex"`
	BorrowerID     int64     `gorm:"column:borrower_id;not null;index"`
	Principal      float64   `gorm:"column:principal;not null"`
	InterestRate   float64   `gorm:"column:interest_rate;not null"`
	DurationMonths int       `gorm:"column:duration_months;not null"`
	Status         string    `gorm:"column:status;not null;default:Active"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (Loan) TableName() string { return "loans" }

type Repayment struct {
	ID          int64      `gorm:"primaryKey"`
	LoanID      int64      `gorm:"column:loan_id;not null;index:ix_repayment_loan_due,priority:1"`
	DueDate     time.Time  `gorm:"column:due_date;not null;index:ix_repayment_loan_due,priority:2"`
	AmountDue   float64    `gorm:"column:amount_due;not null"`
	AmountPaid  float64    `gorm:"column:amount_paid;not null;default:0"`
	PaidAt      *time.Time `gorm:"column:paid_at"`
	Status      string     `gorm:"column:status;not null;default:Due"`
	ReceiptPath *string    `gorm:"column:receipt_path"`
}

func (Repayment) TableName() string { return "repayments" }
