package payment

import (
	"time"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/common/validation"
)

// IntentDTO carries the optional amount and currency of an authorization.
// A nil Amount authorizes the full remaining balance.
type IntentDTO struct {
	Amount         *float64 `json:"amount"`
	Currency       string   `json:"currency"`
	IdempotencyKey string   `json:"-"`
}

func (d IntentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Amount != nil {
		v.Field("amount", d.Amount).Positive(errors.ErrCodeInvalidAmount)
	}
	v.Field("currency", d.Currency).MaxLength(3)
	return v.Validate()
}

type ConfirmDTO struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (d ConfirmDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("payment_intent_id", d.PaymentIntentID).Required()
	return v.Validate()
}

type IntentResponse struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentID       int64   `json:"payment_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type StatusResponse struct {
	PaymentID int64  `json:"payment_id"`
	Status    string `json:"status"`
}

type ApproveResponse struct {
	PaymentID       int64   `json:"payment_id"`
	Status          string  `json:"status"`
	RepaymentStatus string  `json:"repayment_status"`
	ReceiptURL      *string `json:"receipt_url"`
}

type PendingResponse struct {
	ID              int64      `json:"id"`
	PaymentIntentID string     `json:"payment_intent_id"`
	LoanID          int64      `json:"loan_id"`
	RepaymentID     int64      `json:"repayment_id"`
	Borrower        *string    `json:"borrower"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	AuthorizedAt    *time.Time `json:"authorized_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
