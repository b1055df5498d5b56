package payment

import "time"

const (
	StatusPending    = "Pending"
	StatusAuthorized = "Authorized"
	StatusCaptured   = "Captured"
	StatusCanceled   = "Canceled"
	StatusFailed     = "Failed"
)

type Payment struct {
	ID              int64      `gorm:"primaryKey"`
	LoanID          int64      `gorm:"column:loan_id;not null;index"`
	RepaymentID     int64      `gorm:"column:repayment_id;not null;index"`
	BorrowerID      int64      `gorm:"column:borrower_id;not null;index"`
	Amount          float64    `gorm:"column:amount;not null"`
	Currency        string     `gorm:"column:currency;not null"`
	Status          string     `gorm:"column:status;not null;default:Pending"`
	PaymentIntentID string     `gorm:"column:payment_intent_id;not null;uniqueIndex"`
	FailureReason   *string    `gorm:"column:failure_reason"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	AuthorizedAt    *time.Time `gorm:"column:authorized_at"`
	CapturedAt      *time.Time `gorm:"column:captured_at"`
	CanceledAt      *time.Time `gorm:"column:canceled_at"`
}

func (Payment) TableName() string { return "payments" }

// IsTerminal reports whether no further transition is defined.
func (p Payment) IsTerminal() bool {
	switch p.Status {
	case StatusCaptured, StatusCanceled, StatusFailed:
		return true
	}
	return false
}
