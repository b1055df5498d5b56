package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Transition is a compare-and-set on status. The timestamp column matching the
// target status is stamped with at; a Failed transition records reason instead.
func (r *PaymentRepository) Transition(ctx context.Context, id int64, from []string, to string, at time.Time, reason *string) (bool, error) {
	updates := map[string]interface{}{
		"status": to,
	}
	switch to {
	case payment.StatusAuthorized:
		updates["authorized_at"] = at
	case payment.StatusCaptured:
		updates["captured_at"] = at
	case payment.StatusCanceled:
		updates["canceled_at"] = at
	case payment.StatusFailed:
		updates["failure_reason"] = reason
	}

	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uow.ErrNotFound
	}
	return err
}
