package user

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

var ErrBorrowerNotFound = errors.NewNotFoundError("Borrower not found", errors.ErrCodeUserNotFound)

type Service struct {
	uow    uow.UnitOfWork
	logger *slog.Logger
}

func NewService(u uow.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{
		uow:    u,
		logger: logger,
	}
}

func (s *Service) Profile(ctx context.Context, userID int64) (*ProfileResponse, error) {
	u, err := s.uow.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return toProfile(u), nil
}

// DeleteBorrower removes a borrower together with their applications, loans,
// installments and payments. Staff accounts are reported as not found.
func (s *Service) DeleteBorrower(ctx context.Context, borrowerID int64) error {
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		u, err := r.Users.GetByID(ctx, borrowerID)
		if err != nil {
			return err
		}
		if u.Role != user.RoleBorrower {
			return ErrBorrowerNotFound
		}
		return r.Users.DeleteBorrower(ctx, borrowerID)
	})
	if err != nil {
		if stdErrors.Is(err, uow.ErrNotFound) {
			return ErrBorrowerNotFound
		}
		if _, ok := errors.IsAppError(err); ok {
			return err
		}
		return fmt.Errorf("delete borrower: %w", err)
	}

	s.log(ctx).Info("borrower deleted", "borrower_id", borrowerID)
	return nil
}

// log prefers the request logger so entries carry the trace and user ids.
func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromOr(ctx, s.logger)
}
