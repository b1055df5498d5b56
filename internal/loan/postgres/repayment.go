package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

type RepaymentRepository struct {
	db *gorm.DB
}

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository {
	return &RepaymentRepository{db: db}
}

func (r *RepaymentRepository) CreateBatch(ctx context.Context, items []loan.Repayment) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *RepaymentRepository) GetByID(ctx context.Context, id int64) (*loan.Repayment, error) {
	var rep loan.Repayment
	if err := r.db.WithContext(ctx).First(&rep, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rep, nil
}

func (r *RepaymentRepository) ListByLoan(ctx context.Context, loanID int64) ([]loan.Repayment, error) {
	var items []loan.Repayment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("due_date ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ApplyPayment persists the paid amount, status, paid_at and receipt of an installment.
func (r *RepaymentRepository) ApplyPayment(ctx context.Context, rep *loan.Repayment) error {
	res := r.db.WithContext(ctx).Model(&loan.Repayment{}).
		Where("id = ?", rep.ID).
		Updates(map[string]interface{}{
			"amount_paid":  rep.AmountPaid,
			"status":       rep.Status,
			"paid_at":      rep.PaidAt,
			"receipt_path": rep.ReceiptPath,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return uow.ErrNotFound
	}
	return nil
}
