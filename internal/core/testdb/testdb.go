// Package testdb opens an in-memory SQLite database with the full schema for package tests.
package testdb

import (
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
)

// Open returns a migrated database. The pool is pinned to one connection since
// every new SQLite :memory: connection is a separate empty database.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&user.User{},
		&loan.Application{},
		&loan.Loan{},
		&loan.Repayment{},
		&payment.Payment{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SQLX wraps the same connection for read models built on sqlx.
func SQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}

// Borrower inserts an active borrower.
func Borrower(db *gorm.DB, email string) (*user.User, error) {
	u := &user.User{
		Email:        email,
		FullName:     "Test Borrower",
		PasswordHash: "x",
		Role:         user.RoleBorrower,
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}
