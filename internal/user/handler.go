package user

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

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		h.HandleServiceError(w, errors.NewUnauthorizedError("unauthorized", errors.ErrCodeInvalidToken))
		return
	}

	profile, err := h.Service.Profile(r.Context(), u.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service error", "user_id", u.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}

// DeleteBorrower handles DELETE /staff/borrowers/{id}
func (h *Handler) DeleteBorrower(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathID(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteBorrower(r.Context(), id); err != nil {
		h.Logger.Error("DeleteBorrower: service error", "borrower_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
