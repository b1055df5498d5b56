package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// DeleteBorrower removes a borrower with their applications, loans, installments
// and payments. Callers run it inside a transaction.
func (r *UserRepository) DeleteBorrower(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)

	loanIDs := db.Model(&loan.Loan{}).Select("id").Where("borrower_id = ?", id)

	if err := db.Where("borrower_id = ?", id).Delete(&payment.Payment{}).Error; err != nil {
		return err
	}
	if err := db.Where("loan_id IN (?)", loanIDs).Delete(&loan.Repayment{}).Error; err != nil {
		return err
	}
	if err := db.Where("borrower_id = ?", id).Delete(&loan.Loan{}).Error; err != nil {
		return err
	}
	if err := db.Where("borrower_id = ?", id).Delete(&loan.Application{}).Error; err != nil {
		return err
	}

	res := db.Delete(&user.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return uow.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uow.ErrNotFound
	}
	return err
}
