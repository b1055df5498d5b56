// Package loan runs the application lifecycle: submission, scoring, decisions and
// the loans and schedules an approval creates.
package loan

import (
	"context"

	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/scoring"
)

const (
	ScopeMine = "mine"
	ScopeAll  = "all"
)

type ScorerAPI interface {
	Predict(ctx context.Context, f scoring.Features) (scoring.Prediction, error)
	Mode() string
}

type ServiceAPI interface {
	Submit(ctx context.Context, borrower *auth.User, dto CreateApplicationDTO) (*ApplicationResponse, error)
	List(ctx context.Context, u *auth.User, scope string) ([]ApplicationResponse, error)
	Decide(ctx context.Context, applicationID int64, dto DecisionDTO) (*DecisionResponse, error)
	Rescore(ctx context.Context, applicationID int64) (*RescoreResponse, error)
	MyLoans(ctx context.Context, borrowerID int64) ([]LoanWithRepayments, error)
	Chart(ctx context.Context, borrowerID, loanID int64) ([]ChartPoint, error)
}
