package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLoanApproved      = "loan.approved"
	EventTypeLoanRejected      = "loan.rejected"
	EventTypeRepaymentCaptured = "repayment.captured"
)

func envelope(eventType string) Envelope {
	return Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredOn: time.Now().UTC(),
	}
}

type LoanApprovedEvent struct {
	Envelope
	ApplicationID  int64   `json:"application_id"`
	LoanID         int64   `json:"loan_id"`
	BorrowerEmail  string  `json:"borrower_email"`
	Principal      float64 `json:"principal"`
	DurationMonths int     `json:"duration_months"`
	AIScore        float64 `json:"ai_score"`
	RiskBand       string  `json:"risk_band"`
}

func NewLoanApprovedEvent(applicationID, loanID int64, email string, principal float64, months int, score float64, band string) *LoanApprovedEvent {
	return &LoanApprovedEvent{
		Envelope: envelope(EventTypeLoanApproved),
		ApplicationID:  applicationID,
		LoanID:         loanID,
		BorrowerEmail:  email,
		Principal:      principal,
		DurationMonths: months,
		AIScore:        score,
		RiskBand:       band,
	}
}

type LoanRejectedEvent struct {
	Envelope
	ApplicationID int64  `json:"application_id"`
	BorrowerEmail string `json:"borrower_email"`
	Reason        string `json:"reason"`
}

func NewLoanRejectedEvent(applicationID int64, email, reason string) *LoanRejectedEvent {
	return &LoanRejectedEvent{
		Envelope: envelope(EventTypeLoanRejected),
		ApplicationID: applicationID,
		BorrowerEmail: email,
		Reason:        reason,
	}
}

type RepaymentCapturedEvent struct {
	Envelope
	PaymentID     int64   `json:"payment_id"`
	LoanID        int64   `json:"loan_id"`
	RepaymentID   int64   `json:"repayment_id"`
	BorrowerEmail string  `json:"borrower_email"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	FullyPaid     bool    `json:"fully_paid"`
	Remaining     float64 `json:"remaining"`
	ReceiptURL    string  `json:"receipt_url,omitempty"`
}

type RepaymentCaptured struct {
	PaymentID     int64
	LoanID        int64
	RepaymentID   int64
	BorrowerEmail string
	Amount        float64
	Currency      string
	FullyPaid     bool
	Remaining     float64
	ReceiptURL    string
}

func NewRepaymentCapturedEvent(c RepaymentCaptured) *RepaymentCapturedEvent {
	return &RepaymentCapturedEvent{
		Envelope: envelope(EventTypeRepaymentCaptured),
		PaymentID:     c.PaymentID,
		LoanID:        c.LoanID,
		RepaymentID:   c.RepaymentID,
		BorrowerEmail: c.BorrowerEmail,
		Amount:        c.Amount,
		Currency:      c.Currency,
		FullyPaid:     c.FullyPaid,
		Remaining:     c.Remaining,
		ReceiptURL:    c.ReceiptURL,
	}
}
