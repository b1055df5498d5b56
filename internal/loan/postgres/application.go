package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

type ApplicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, app *loan.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*loan.Application, error) {
	var app loan.Application
	if err := r.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &app, nil
}

func (r *ApplicationRepository) List(ctx context.Context, borrowerID *int64) ([]loan.Application, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if borrowerID != nil {
		q = q.Where("borrower_id = ?", *borrowerID)
	}

	var apps []loan.Application
	if err := q.Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// Save writes the mutable columns of an application.
func (r *ApplicationRepository) Save(ctx context.Context, app *loan.Application) error {
	res := r.db.WithContext(ctx).Model(&loan.Application{}).
		Where("id = ?", app.ID).
		Updates(map[string]interface{}{
			"status":          app.Status,
			"ai_score":        app.AIScore,
			"ai_risk_band":    app.AIRiskBand,
			"decision_reason": app.DecisionReason,
		})
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
