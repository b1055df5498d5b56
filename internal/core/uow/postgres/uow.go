package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/uow"
	loanrepo "github.com/frahmantamala/loan-servicing/internal/loan/postgres"
	paymentrepo "github.com/frahmantamala/loan-servicing/internal/payment/postgres"
	userrepo "github.com/frahmantamala/loan-servicing/internal/user/postgres"
)

type GormUoW struct {
	db *gorm.DB
}

func NewGormUoW(db *gorm.DB) *GormUoW {
	return &GormUoW{db: db}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) Repos() uow.Repos {
	return reposFor(u.db)
}

func reposFor(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Applications: loanrepo.NewApplicationRepository(db),
		Loans:        loanrepo.NewLoanRepository(db),
		Repayments:   loanrepo.NewRepaymentRepository(db),
		Payments:     paymentrepo.NewPaymentRepository(db),
		Users:        userrepo.NewUserRepository(db),
	}
}
