package loan

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/transport"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

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

// CreateApplication handles POST /loans/applications
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var dto CreateApplicationDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	app, err := h.Service.Submit(r.Context(), u, dto)
	if err != nil {
		h.Logger.Error("CreateApplication: service error", "error", err, "user_id", u.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, app)
}

// ListApplications handles GET /loans/applications?scope=mine|all
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = ScopeMine
	}
	if scope != ScopeMine && scope != ScopeAll {
		h.HandleServiceError(w, errors.NewValidationFieldError("scope", "scope must be one of mine, all", errors.ErrCodeValidationFailed))
		return
	}

	apps, err := h.Service.List(r.Context(), u, scope)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, apps)
}

// Decide handles POST /loans/applications/{id}/decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto DecisionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	q := r.URL.Query()
	if dto.Decision == "" {
		dto.Decision = q.Get("decision")
	}
	if dto.Reason == nil && q.Has("reason") {
		reason := q.Get("reason")
		dto.Reason = &reason
	}

	resp, err := h.Service.Decide(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("Decide: service error", "error", err, "application_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Rescore handles POST /loans/applications/{id}/score
func (h *Handler) Rescore(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp, err := h.Service.Rescore(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// MyLoans handles GET /loans/loans/mine
func (h *Handler) MyLoans(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	loans, err := h.Service.MyLoans(r.Context(), u.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, loans)
}

// Chart handles GET /loans/loans/{loan_id}/chart
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	loanID, err := h.PathID(r, "loan_id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	series, err := h.Service.Chart(r.Context(), u.ID, loanID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, series)
}
