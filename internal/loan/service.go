package loan

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/core/events"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
	"github.com/frahmantamala/loan-servicing/internal/schedule"
	"github.com/frahmantamala/loan-servicing/internal/scoring"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

type Service struct {
	uow          uow.UnitOfWork
	scorer       ScorerAPI
	events       events.Publisher
	interestRate float64
	now          func() time.Time
	logger       *slog.Logger
}

func NewService(u uow.UnitOfWork, scorer ScorerAPI, publisher events.Publisher, interestRate float64, logger *slog.Logger) *Service {
	return &Service{
		uow:          u,
		scorer:       scorer,
		events:       publisher,
		interestRate: interestRate,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit stores the application, scores it and either approves it (Low risk) or
// queues it for review. A scoring outage leaves the application Submitted.
func (s *Service) Submit(ctx context.Context, borrower *auth.User, dto CreateApplicationDTO) (*ApplicationResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	app := dto.toModel(borrower.ID, s.now())
	if err := s.uow.Repos().Applications.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.log(ctx).Info("application submitted", "application_id", app.ID, "borrower_id", borrower.ID, "amount", app.Amount)

	pred, err := s.scorer.Predict(ctx, scoring.FromApplication(*app))
	if err != nil {
		s.log(ctx).Error("application left unscored", "application_id", app.ID, "error", err)
		return nil, err
	}

	var created *loan.Loan
	err = s.uow.WithinTx(ctx, func(r uow.Repos) error {
		applyScore(app, pred)
		if pred.Risk == loan.RiskLow {
			app.Status = loan.ApplicationStatusApproved
		} else {
			app.Status = loan.ApplicationStatusUnderReview
		}
		if err := r.Applications.Save(ctx, app); err != nil {
			return err
		}
		if app.Status != loan.ApplicationStatusApproved {
			return nil
		}
		l, err := s.fund(ctx, r, app)
		created = l
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record score: %w", err)
	}

	resp := toApplicationResponse(*app)
	if created != nil {
		resp.LoanID = &created.ID
		s.log(ctx).Info("application auto-approved", "application_id", app.ID, "loan_id", created.ID, "score", pred.Score)
		s.publish(ctx, events.NewLoanApprovedEvent(app.ID, created.ID, borrower.Email, created.Principal, created.DurationMonths, pred.Score, pred.Risk))
	}
	return &resp, nil
}

func (s *Service) List(ctx context.Context, u *auth.User, scope string) ([]ApplicationResponse, error) {
	var borrowerID *int64
	if u.Role == user.RoleBorrower || scope != ScopeAll {
		borrowerID = &u.ID
	}

	apps, err := s.uow.Repos().Applications.List(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	out := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResponse(a))
	}
	return out, nil
}

// Decide records an officer decision. Repeating the current decision is a no-op
// that never creates a second loan; reversing a final decision is a conflict.
func (s *Service) Decide(ctx context.Context, applicationID int64, dto DecisionDTO) (*DecisionResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var (
		app     *loan.Application
		funded  *loan.Loan
		changed bool
	)
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		app, err = r.Applications.GetByID(ctx, applicationID)
		if err != nil {
			if stdErrors.Is(err, uow.ErrNotFound) {
				return errors.ErrApplicationNotFound
			}
			return err
		}

		switch app.Status {
		case loan.ApplicationStatusSubmitted, loan.ApplicationStatusUnderReview:
			changed = true
		case dto.Decision:
		default:
			return errors.NewInvalidStatusError("Application", "Submitted or UnderReview", app.Status)
		}

		// every decision replaces the reason; none given clears it
		app.Status = dto.Decision
		app.DecisionReason = dto.Reason
		if err := r.Applications.Save(ctx, app); err != nil {
			return err
		}

		if dto.Decision != loan.ApplicationStatusApproved {
			return nil
		}

		existing, err := r.Loans.FindByApplication(ctx, app.ID, app.BorrowerID)
		switch {
		case err == nil:
			s.log(ctx).Info("approval reuses existing loan", "application_id", app.ID, "loan_id", existing.ID)
			return nil
		case !stdErrors.Is(err, uow.ErrNotFound):
			return err
		}

		funded, err = s.fund(ctx, r, app)
		return err
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("decide application %d: %w", applicationID, err)
	}

	s.log(ctx).Info("application decided", "application_id", app.ID, "status", app.Status, "changed", changed)
	if changed || funded != nil {
		s.notifyDecision(ctx, app, funded)
	}

	return &DecisionResponse{ID: app.ID, Status: app.Status, Reason: app.DecisionReason}, nil
}

// Rescore overwrites the stored score. It never approves; a Submitted application
// moves to UnderReview.
func (s *Service) Rescore(ctx context.Context, applicationID int64) (*RescoreResponse, error) {
	app, err := s.uow.Repos().Applications.GetByID(ctx, applicationID)
	if err != nil {
		if stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("load application: %w", err)
	}

	pred, err := s.scorer.Predict(ctx, scoring.FromApplication(*app))
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(r uow.Repos) error {
		current, err := r.Applications.GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		applyScore(current, pred)
		if current.Status == loan.ApplicationStatusSubmitted {
			current.Status = loan.ApplicationStatusUnderReview
		}
		app = current
		return r.Applications.Save(ctx, current)
	})
	if err != nil {
		return nil, fmt.Errorf("store score: %w", err)
	}

	return &RescoreResponse{
		ApplicationID: app.ID,
		AIScore:       pred.Score,
		Risk:          pred.Risk,
		Status:        app.Status,
		Mode:          s.scorer.Mode(),
	}, nil
}

func (s *Service) MyLoans(ctx context.Context, borrowerID int64) ([]LoanWithRepayments, error) {
	repos := s.uow.Repos()
	loans, err := repos.Loans.ListByBorrower(ctx, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	out := make([]LoanWithRepayments, 0, len(loans))
	for _, l := range loans {
		reps, err := repos.Repayments.ListByLoan(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("list repayments for loan %d: %w", l.ID, err)
		}
		item := LoanWithRepayments{
			Loan: LoanResponse{
				ID:             l.ID,
				ApplicationID:  l.ApplicationID,
				Principal:      l.Principal,
				InterestRate:   l.InterestRate,
				DurationMonths: l.DurationMonths,
				Status:         l.Status,
				CreatedAt:      l.CreatedAt,
			},
			Repayments: make([]RepaymentResponse, 0, len(reps)),
		}
		for _, r := range reps {
			item.Repayments = append(item.Repayments, RepaymentResponse{
				ID:          r.ID,
				DueDate:     r.DueDate,
				AmountDue:   r.AmountDue,
				AmountPaid:  r.AmountPaid,
				PaidAt:      r.PaidAt,
				Status:      r.Status,
				ReceiptPath: r.ReceiptPath,
			})
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) Chart(ctx context.Context, borrowerID, loanID int64) ([]ChartPoint, error) {
	repos := s.uow.Repos()
	l, err := repos.Loans.GetByID(ctx, loanID)
	if err != nil || l.BorrowerID != borrowerID {
		if err == nil || stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrLoanNotFound
		}
		return nil, fmt.Errorf("load loan: %w", err)
	}

	reps, err := repos.Repayments.ListByLoan(ctx, l.ID)
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}

	series := make([]ChartPoint, 0, len(reps))
	for _, r := range reps {
		series = append(series, ChartPoint{
			Month:  r.DueDate.Format("2006-01"),
			Due:    r.AmountDue,
			Paid:   r.AmountPaid,
			Status: r.Status,
		})
	}
	return series, nil
}

// fund creates the loan and its schedule for an approved application.
func (s *Service) fund(ctx context.Context, r uow.Repos, app *loan.Application) (*loan.Loan, error) {
	appID := app.ID
	l := &loan.Loan{
		ApplicationID:  &appID,
		BorrowerID:     app.BorrowerID,
		Principal:      app.Amount,
		InterestRate:   s.interestRate,
		DurationMonths: app.TermMonths,
		Status:         loan.LoanStatusActive,
		CreatedAt:      s.now(),
	}
	if err := r.Loans.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	items, err := schedule.Generate(*l)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	if err := r.Repayments.CreateBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("store schedule: %w", err)
	}
	return l, nil
}

func (s *Service) notifyDecision(ctx context.Context, app *loan.Application, funded *loan.Loan) {
	borrower, err := s.uow.Repos().Users.GetByID(ctx, app.BorrowerID)
	if err != nil {
		s.log(ctx).Warn("decision email skipped", "application_id", app.ID, "error", err)
		return
	}

	if app.Status == loan.ApplicationStatusRejected {
		reason := ""
		if app.DecisionReason != nil {
			reason = *app.DecisionReason
		}
		s.publish(ctx, events.NewLoanRejectedEvent(app.ID, borrower.Email, reason))
		return
	}

	var (
		loanID    int64
		principal = app.Amount
		months    = app.TermMonths
		score     float64
		band      string
	)
	if funded != nil {
		loanID, principal, months = funded.ID, funded.Principal, funded.DurationMonths
	}
	if app.AIScore != nil {
		score = *app.AIScore
	}
	if app.AIRiskBand != nil {
		band = *app.AIRiskBand
	}
	s.publish(ctx, events.NewLoanApprovedEvent(app.ID, loanID, borrower.Email, principal, months, score, band))
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log(ctx).Warn("event publish failed", "event_type", ev.EventType(), "error", err)
	}
}

func applyScore(app *loan.Application, pred scoring.Prediction) {
	score, band := pred.Score, pred.Risk
	app.AIScore = &score
	app.AIRiskBand = &band
}

// log prefers the request logger so entries carry the trace and user ids.
func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromOr(ctx, s.logger)
}
