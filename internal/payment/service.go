package payment

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
	types "github.com/frahmantamala/loan-servicing/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/loan-servicing/internal/core/events"
	"github.com/frahmantamala/loan-servicing/internal/core/lock"
	"github.com/frahmantamala/loan-servicing/internal/core/money"
	"github.com/frahmantamala/loan-servicing/internal/core/uow"
	"github.com/frahmantamala/loan-servicing/internal/receipt"
	"github.com/frahmantamala/loan-servicing/internal/schedule"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

// Dependencies groups the collaborators of Service. Gateway may be nil when no
// processor key is configured; every processor-backed operation then fails.
type Dependencies struct {
	UoW             uow.UnitOfWork
	Gateway         GatewayAPI
	Locker          lock.Locker
	Pending         PendingListerAPI
	Receipts        ReceiptWriter
	Publisher       events.Publisher
	DefaultCurrency string
}

type Service struct {
	uow      uow.UnitOfWork
	gateway  GatewayAPI
	locker   lock.Locker
	pending  PendingListerAPI
	receipts ReceiptWriter
	events   events.Publisher
	currency string
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(deps Dependencies, logger *slog.Logger) *Service {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	currency := deps.DefaultCurrency
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		uow:      deps.UoW,
		gateway:  deps.Gateway,
		locker:   locker,
		pending:  deps.Pending,
		receipts: deps.Receipts,
		events:   deps.Publisher,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateIntent authorizes up to the remaining balance of one installment and
// records the Pending payment.
func (s *Service) CreateIntent(ctx context.Context, borrower *auth.User, loanID, repaymentID int64, dto IntentDTO) (*IntentResponse, error) {
	if s.gateway == nil {
		return nil, errors.ErrProcessorNotConfigured
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	repos := s.uow.Repos()
	l, err := repos.Loans.GetByID(ctx, loanID)
	if err != nil || l.BorrowerID != borrower.ID {
		if err == nil || stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrLoanNotFound
		}
		return nil, fmt.Errorf("load loan: %w", err)
	}

	rep, err := repos.Repayments.GetByID(ctx, repaymentID)
	if err != nil || rep.LoanID != l.ID {
		if err == nil || stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrRepaymentNotFound
		}
		return nil, fmt.Errorf("load repayment: %w", err)
	}

	remaining := money.Remaining(rep.AmountDue, rep.AmountPaid)
	if remaining <= 0 {
		return nil, errors.ErrAlreadyPaid
	}
	requested := remaining
	if dto.Amount != nil {
		requested = *dto.Amount
	}
	if requested > remaining+money.Epsilon {
		return nil, errors.ErrExceedsRemaining.WithDetails(map[string]float64{"remaining": remaining})
	}
	// the processor charges whole cents; store exactly what it will hold
	minor := money.ToMinorUnits(requested)
	if minor <= 0 {
		return nil, errors.NewValidationFieldError("amount", "amount must be at least 0.01", errors.ErrCodeInvalidAmount)
	}
	amount := money.Round2(float64(minor) / 100)
	currency := money.NormalizeCurrency(dto.Currency, s.currency)

	intent, err := s.gateway.CreateIntent(ctx, types.IntentRequest{
		Amount:      minor,
		Currency:    currency,
		Description: fmt.Sprintf("installment loan#%d repayment#%d", l.ID, rep.ID),
		Metadata: map[string]string{
			types.MetadataLoanID:      strconv.FormatInt(l.ID, 10),
			types.MetadataRepaymentID: strconv.FormatInt(rep.ID, 10),
			types.MetadataBorrowerID:  strconv.FormatInt(borrower.ID, 10),
		},
		IdempotencyKey: dto.IdempotencyKey,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	p := &payment.Payment{
		LoanID:          l.ID,
		RepaymentID:     rep.ID,
		BorrowerID:      borrower.ID,
		Amount:          amount,
		Currency:        currency,
		Status:          payment.StatusPending,
		PaymentIntentID: intent.ID,
		CreatedAt:       s.now(),
	}
	if err := repos.Payments.Create(ctx, p); err != nil {
		s.log(ctx).Error("payment row not stored, canceling authorization", "payment_intent_id", intent.ID, "error", err)
		if _, cerr := s.gateway.Cancel(ctx, intent.ID, "orphan-"+intent.ID); cerr != nil {
			s.log(ctx).Error("orphaned authorization left open", "payment_intent_id", intent.ID, "error", cerr)
		}
		return nil, fmt.Errorf("store payment: %w", err)
	}

	s.log(ctx).Info("payment intent created",
		"payment_id", p.ID,
		"payment_intent_id", intent.ID,
		"loan_id", l.ID,
		"repayment_id", rep.ID,
		"amount", amount)

	return &IntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentID:       p.ID,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        currency,
	}, nil
}

// Confirm syncs the stored payment with the processor after the borrower
// completed the client-side step.
func (s *Service) Confirm(ctx context.Context, borrower *auth.User, intentID string) (*StatusResponse, error) {
	if s.gateway == nil {
		return nil, errors.ErrProcessorNotConfigured
	}
	intentID = strings.TrimSpace(intentID)
	if err := (ConfirmDTO{PaymentIntentID: intentID}).Validate(); err != nil {
		return nil, err
	}

	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return nil, gatewayError(err)
	}
	if intent.Metadata[types.MetadataBorrowerID] != strconv.FormatInt(borrower.ID, 10) {
		return nil, errors.ErrNotPaymentOwner
	}

	repos := s.uow.Repos()
	p, err := repos.Payments.GetByIntentID(ctx, intentID)
	if err != nil {
		if stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.NewNotFoundError("Payment record not found", errors.ErrCodePaymentNotFound)
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}

	var (
		from []string
		to   string
	)
	switch intent.Status {
	case types.IntentStatusRequiresCapture:
		from, to = []string{payment.StatusPending}, payment.StatusAuthorized
	case types.IntentStatusRequiresPaymentMethod, types.IntentStatusRequiresConfirmation, types.IntentStatusProcessing:
		return &StatusResponse{PaymentID: p.ID, Status: payment.StatusPending}, nil
	case types.IntentStatusCanceled:
		from, to = []string{payment.StatusPending, payment.StatusAuthorized}, payment.StatusCanceled
	default:
		return &StatusResponse{PaymentID: p.ID, Status: intent.Status}, nil
	}

	ok, err := repos.Payments.Transition(ctx, p.ID, from, to, s.now(), nil)
	if err != nil {
		return nil, fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	if !ok {
		current, err := repos.Payments.GetByID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("reload payment %d: %w", p.ID, err)
		}
		return &StatusResponse{PaymentID: p.ID, Status: current.Status}, nil
	}

	s.log(ctx).Info("payment confirmed", "payment_id", p.ID, "status", to)
	return &StatusResponse{PaymentID: p.ID, Status: to}, nil
}

// Approve captures an Authorized payment and applies it to its installment.
// A processor outage leaves the payment Authorized so the capture can be retried.
func (s *Service) Approve(ctx context.Context, paymentID int64) (*ApproveResponse, error) {
	if s.gateway == nil {
		return nil, errors.ErrProcessorNotConfigured
	}

	release, err := s.acquire(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := s.authorized(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.Capture(ctx, p.PaymentIntentID, fmt.Sprintf("capture-%d", p.ID)); err != nil {
		if !stdErrors.Is(err, types.ErrUnavailable) {
			s.markFailed(ctx, p.ID, err)
		}
		return nil, gatewayError(err)
	}

	var (
		rep      *loan.Repayment
		borrower string
		rel      string
		now      = s.now()
	)
	err = s.uow.WithinTx(ctx, func(r uow.Repos) error {
		ok, err := r.Payments.Transition(ctx, p.ID, []string{payment.StatusAuthorized}, payment.StatusCaptured, now, nil)
		if err != nil {
			return err
		}
		if !ok {
			current, err := r.Payments.GetByID(ctx, p.ID)
			if err != nil {
				return err
			}
			return errors.NewInvalidStatusError("Payment", payment.StatusAuthorized, current.Status)
		}

		rep, err = r.Repayments.GetByID(ctx, p.RepaymentID)
		if err != nil {
			return fmt.Errorf("load repayment: %w", err)
		}

		var name string
		u, err := r.Users.GetByID(ctx, p.BorrowerID)
		switch {
		case err == nil:
			borrower, name = u.Email, u.DisplayName()
		case !stdErrors.Is(err, uow.ErrNotFound):
			return fmt.Errorf("load borrower: %w", err)
		}

		if rel, err = s.settle(ctx, r, rep, p, name, now); err != nil {
			return err
		}
		return r.Repayments.ApplyPayment(ctx, rep)
	})
	if err != nil {
		if rel != "" && s.receipts != nil {
			if rerr := s.receipts.Remove(rel); rerr != nil {
				s.log(ctx).Warn("stale receipt left on disk", "path", rel, "error", rerr)
			}
		}
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.log(ctx).Error("captured at processor but not recorded", "payment_id", p.ID, "payment_intent_id", p.PaymentIntentID, "error", err)
		return nil, fmt.Errorf("record capture of payment %d: %w", p.ID, err)
	}

	resp := &ApproveResponse{
		PaymentID:       p.ID,
		Status:          payment.StatusCaptured,
		RepaymentStatus: rep.Status,
	}
	if rel != "" {
		url := s.receipts.URL(rel)
		resp.ReceiptURL = &url
	}

	s.log(ctx).Info("payment captured",
		"payment_id", p.ID,
		"repayment_id", rep.ID,
		"amount_paid", rep.AmountPaid,
		"repayment_status", rep.Status)

	if borrower != "" {
		remaining := money.Remaining(rep.AmountDue, rep.AmountPaid)
		if remaining < 0 {
			remaining = 0
		}
		captured := events.RepaymentCaptured{
			PaymentID:     p.ID,
			LoanID:        p.LoanID,
			RepaymentID:   rep.ID,
			BorrowerEmail: borrower,
			Amount:        p.Amount,
			Currency:      p.Currency,
			FullyPaid:     rep.Status == loan.RepaymentStatusPaid,
			Remaining:     remaining,
		}
		if resp.ReceiptURL != nil {
			captured.ReceiptURL = *resp.ReceiptURL
		}
		s.publish(ctx, events.NewRepaymentCapturedEvent(captured))
	}

	return resp, nil
}

// settle adds the payment to the installment and sets its status. A fully paid
// installment gets a receipt; failing to write it does not block the capture.
func (s *Service) settle(ctx context.Context, r uow.Repos, rep *loan.Repayment, p *payment.Payment, borrower string, now time.Time) (string, error) {
	rep.AmountPaid = money.Add(rep.AmountPaid, p.Amount)
	if !money.Settled(rep.AmountPaid, rep.AmountDue) {
		rep.Status = schedule.StatusFor(*rep, now)
		return "", nil
	}

	rep.Status = loan.RepaymentStatusPaid
	rep.PaidAt = &now
	if s.receipts == nil {
		return "", nil
	}

	l, err := r.Loans.GetByID(ctx, p.LoanID)
	if err != nil {
		return "", fmt.Errorf("load loan: %w", err)
	}
	rel, err := s.receipts.Write(receipt.Data{Borrower: borrower, Loan: *l, Repayment: *rep})
	if err != nil {
		s.log(ctx).Warn("receipt not written", "payment_id", p.ID, "repayment_id", rep.ID, "error", err)
		return "", nil
	}
	rep.ReceiptPath = &rel
	return rel, nil
}

// Cancel voids an Authorized payment at the processor. The installment is untouched.
func (s *Service) Cancel(ctx context.Context, paymentID int64) (*StatusResponse, error) {
	if s.gateway == nil {
		return nil, errors.ErrProcessorNotConfigured
	}

	release, err := s.acquire(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := s.authorized(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if _, err := s.gateway.Cancel(ctx, p.PaymentIntentID, fmt.Sprintf("cancel-%d", p.ID)); err != nil {
		return nil, gatewayError(err)
	}

	repos := s.uow.Repos()
	ok, err := repos.Payments.Transition(ctx, p.ID, []string{payment.StatusAuthorized}, payment.StatusCanceled, s.now(), nil)
	if err != nil {
		return nil, fmt.Errorf("cancel payment %d: %w", p.ID, err)
	}
	if !ok {
		current, err := repos.Payments.GetByID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("reload payment %d: %w", p.ID, err)
		}
		return nil, errors.NewInvalidStatusError("Payment", payment.StatusAuthorized, current.Status)
	}

	s.log(ctx).Info("payment canceled", "payment_id", p.ID)
	return &StatusResponse{PaymentID: p.ID, Status: payment.StatusCanceled}, nil
}

func (s *Service) Pending(ctx context.Context) ([]PendingResponse, error) {
	rows, err := s.pending.ListAuthorized(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}

	out := make([]PendingResponse, 0, len(rows))
	for _, row := range rows {
		item := PendingResponse{
			ID:              row.ID,
			PaymentIntentID: row.PaymentIntentID,
			LoanID:          row.LoanID,
			RepaymentID:     row.RepaymentID,
			Amount:          row.Amount,
			Currency:        row.Currency,
			CreatedAt:       row.CreatedAt,
		}
		if row.Borrower.Valid {
			email := row.Borrower.String
			item.Borrower = &email
		}
		if row.AuthorizedAt.Valid {
			at := row.AuthorizedAt.Time
			item.AuthorizedAt = &at
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) acquire(ctx context.Context, paymentID int64) (func(), error) {
	release, err := s.locker.TryLock(ctx, fmt.Sprintf("payment:%d", paymentID), LockTTL)
	if err != nil {
		if stdErrors.Is(err, lock.ErrLocked) {
			return nil, errors.ErrOperationInProgress
		}
		return nil, fmt.Errorf("lock payment %d: %w", paymentID, err)
	}
	return release, nil
}

func (s *Service) authorized(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	p, err := s.uow.Repos().Payments.GetByID(ctx, paymentID)
	if err != nil {
		if stdErrors.Is(err, uow.ErrNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if p.Status != payment.StatusAuthorized {
		return nil, errors.NewInvalidStatusError("Payment", payment.StatusAuthorized, p.Status)
	}
	return p, nil
}

func (s *Service) markFailed(ctx context.Context, paymentID int64, cause error) {
	reason := cause.Error()
	ok, err := s.uow.Repos().Payments.Transition(ctx, paymentID, []string{payment.StatusAuthorized}, payment.StatusFailed, s.now(), &reason)
	if err != nil || !ok {
		s.log(ctx).Error("could not mark payment failed", "payment_id", paymentID, "error", err)
		return
	}
	s.log(ctx).Warn("capture rejected by processor", "payment_id", paymentID, "reason", reason)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log(ctx).Warn("event publish failed", "event_type", ev.EventType(), "error", err)
	}
}

func gatewayError(err error) error {
	switch {
	case stdErrors.Is(err, types.ErrUnavailable):
		return errors.NewUnavailableError("Payment processor unavailable", errors.ErrCodeProcessorUnavailable, err)
	case stdErrors.Is(err, types.ErrIntentNotFound):
		return errors.NewNotFoundError("Payment intent not found", errors.ErrCodePaymentNotFound).WithCause(err)
	default:
		return errors.NewExternalError("Payment processor rejected the request", errors.ErrCodeProcessorRejected, err)
	}
}

// log prefers the request logger so entries carry the trace and user ids.
func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromOr(ctx, s.logger)
}
