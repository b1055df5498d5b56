package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
)

type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id int64) (*loan.Loan, error) {
	var l loan.Loan
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// FindByApplication returns uow.ErrNotFound when the application has not been funded yet.
func (r *LoanRepository) FindByApplication(ctx context.Context, applicationID, borrowerID int64) (*loan.Loan, error) {
	var l loan.Loan
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND borrower_id = ?", applicationID, borrowerID).
		First(&l).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *LoanRepository) ListByBorrower(ctx context.Context, borrowerID int64) ([]loan.Loan, error) {
	var loans []loan.Loan
	err := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("id DESC").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}
