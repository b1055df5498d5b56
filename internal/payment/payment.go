// Package payment reconciles installment payments: a borrower authorizes an
// amount with the processor, staff capture or cancel it, and captured funds are
// applied to the repayment.
package payment

import (
	"context"
	"time"

	"github.com/frahmantamala/loan-servicing/internal/auth"
	types "github.com/frahmantamala/loan-servicing/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/loan-servicing/internal/payment/postgres"
	"github.com/frahmantamala/loan-servicing/internal/receipt"
)

// LockTTL bounds how long a capture or cancel may hold the per-payment lock.
const LockTTL = 60 * time.Second

type GatewayAPI interface {
	CreateIntent(ctx context.Context, req types.IntentRequest) (*types.Intent, error)
	GetIntent(ctx context.Context, id string) (*types.Intent, error)
	Capture(ctx context.Context, id, idempotencyKey string) (*types.Intent, error)
	Cancel(ctx context.Context, id, idempotencyKey string) (*types.Intent, error)
}

type ReceiptWriter interface {
	Write(d receipt.Data) (string, error)
	URL(rel string) string
	Remove(rel string) error
}

type PendingListerAPI interface {
	ListAuthorized(ctx context.Context) ([]postgres.PendingPayment, error)
}

type ServiceAPI interface {
	CreateIntent(ctx context.Context, borrower *auth.User, loanID, repaymentID int64, dto IntentDTO) (*IntentResponse, error)
	Confirm(ctx context.Context, borrower *auth.User, intentID string) (*StatusResponse, error)
	Approve(ctx context.Context, paymentID int64) (*ApproveResponse, error)
	Cancel(ctx context.Context, paymentID int64) (*StatusResponse, error)
	Pending(ctx context.Context) ([]PendingResponse, error)
}
