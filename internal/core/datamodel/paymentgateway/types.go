package paymentgateway

import (
	"errors"
	"fmt"
)

// Intent statuses as reported by the processor.
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresConfirmation  = "requires_confirmation"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusProcessing            = "processing"
	IntentStatusRequiresCapture       = "requires_capture"
	IntentStatusCanceled              = "canceled"
	IntentStatusSucceeded             = "succeeded"
)

const (
	MetadataLoanID      = "loan_id"
	MetadataRepaymentID = "repayment_id"
	MetadataBorrowerID  = "borrower_id"
)

var (
	ErrUnavailable    = errors.New("payment processor unavailable")
	ErrRejected       = errors.New("payment processor rejected the request")
	ErrIntentNotFound = errors.New("payment intent not found")
)

// Error carries the processor's reason under one of the sentinel kinds above.
type Error struct {
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Reason)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IntentRequest asks for a manual-capture authorization. Amount is in minor units.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

func (r *IntentRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if r.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}
