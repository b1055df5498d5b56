package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var c auth.Credentials
	query := `SELECT id, email, role, password_hash, is_active FROM users WHERE email = ?`

	row := r.db.WithContext(ctx).Raw(query, email).Row()
	if err := row.Scan(&c.UserID, &c.Email, &c.Role, &c.PasswordHash, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, uow.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetUser(ctx context.Context, userID int64) (*auth.User, bool, error) {
	var (
		u        auth.User
		fullName sql.NullString
		active   bool
	)
	query := `SELECT id, email, full_name, role, is_active FROM users WHERE id = ?`

	row := r.db.WithContext(ctx).Raw(query, userID).Row()
	if err := row.Scan(&u.ID, &u.Email, &fullName, &u.Role, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, uow.ErrNotFound
		}
		return nil, false, err
	}
	u.FullName = fullName.String
	return &u, active, nil
}
