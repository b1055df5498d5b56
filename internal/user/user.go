// Package user exposes the caller's profile and the admin borrower removal.
package user

import (
	"context"
)

type ServiceAPI interface {
	Profile(ctx context.Context, userID int64) (*ProfileResponse, error)
	DeleteBorrower(ctx context.Context, borrowerID int64) error
}
