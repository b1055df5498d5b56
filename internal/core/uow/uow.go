// Package uow groups the repositories that must change together in one transaction.
package uow

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
)

// ErrNotFound is returned by every repository when no row matches.
var ErrNotFound = errors.New("record not found")

type ApplicationRepository interface {
	Create(ctx context.Context, app *loan.Application) error
	GetByID(ctx context.Context, id int64) (*loan.Application, error)
	// List returns newest first. A nil borrowerID lists every application.
	List(ctx context.Context, borrowerID *int64) ([]loan.Application, error)
	Save(ctx context.Context, app *loan.Application) error
}

type LoanRepository interface {
	Create(ctx context.Context, l *loan.Loan) error
	GetByID(ctx context.Context, id int64) (*loan.Loan, error)
	FindByApplication(ctx context.Context, applicationID, borrowerID int64) (*loan.Loan, error)
	ListByBorrower(ctx context.Context, borrowerID int64) ([]loan.Loan, error)
}

type RepaymentRepository interface {
	CreateBatch(ctx context.Context, items []loan.Repayment) error
	GetByID(ctx context.Context, id int64) (*loan.Repayment, error)
	ListByLoan(ctx context.Context, loanID int64) ([]loan.Repayment, error)
	ApplyPayment(ctx context.Context, r *loan.Repayment) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *payment.Payment) error
	GetByID(ctx context.Context, id int64) (*payment.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*payment.Payment, error)
	// Transition moves a payment to `to` only while its status is one of `from`.
	// It reports false when no row matched.
	Transition(ctx context.Context, id int64, from []string, to string, at time.Time, reason *string) (bool, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	// DeleteBorrower removes the user and everything that references it.
	DeleteBorrower(ctx context.Context, id int64) error
}

type Repos struct {
	Applications ApplicationRepository
	Loans        LoanRepository
	Repayments   RepaymentRepository
	Payments     PaymentRepository
	Users        UserRepository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// Repos returns repositories bound to the pool for reads outside a transaction.
	Repos() Repos
}
