package payment

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/transport"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

// IdempotencyHeader is forwarded to the processor when a client retries intent creation.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.HandleServiceError(w, errors.NewUnauthorizedError("unauthorized", errors.ErrCodeInvalidToken))
		return nil, false
	}
	return u, true
}

// CreateIntent handles POST /loans/loans/{loan_id}/repayments/{repayment_id}/stripe/intent
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	loanID, err := h.PathID(r, "loan_id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	repaymentID, err := h.PathID(r, "repayment_id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto IntentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	q := r.URL.Query()
	if dto.Amount == nil && q.Has("amount") {
		amount, perr := strconv.ParseFloat(q.Get("amount"), 64)
		if perr != nil {
			h.HandleServiceError(w, errors.NewValidationFieldError("amount", "amount must be a number", errors.ErrCodeInvalidAmount))
			return
		}
		dto.Amount = &amount
	}
	if dto.Currency == "" {
		dto.Currency = q.Get("currency")
	}
	dto.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	resp, err := h.Service.CreateIntent(r.Context(), u, loanID, repaymentID, dto)
	if err != nil {
		h.Logger.Error("CreateIntent: service error", "error", err, "loan_id", loanID, "repayment_id", repaymentID, "user_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Confirm handles POST /loans/payments/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto ConfirmDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if dto.PaymentIntentID == "" {
		dto.PaymentIntentID = r.URL.Query().Get("payment_intent_id")
	}

	resp, err := h.Service.Confirm(r.Context(), u, dto.PaymentIntentID)
	if err != nil {
		h.Logger.Error("Confirm: service error", "error", err, "payment_intent_id", dto.PaymentIntentID, "user_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Pending handles GET /loans/payments/pending
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.Pending(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rows)
}

// Approve handles POST /loans/payments/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Approve(r.Context(), id)
	if err != nil {
		h.Logger.Error("Approve: service error", "error", err, "payment_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Cancel handles POST /loans/payments/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Cancel(r.Context(), id)
	if err != nil {
		h.Logger.Error("Cancel: service error", "error", err, "payment_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
