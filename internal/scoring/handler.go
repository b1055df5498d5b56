package scoring

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/loan-servicing/internal/transport"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

type HealthAPI interface {
	Health(ctx context.Context) map[string]interface{}
}

type Handler struct {
	*transport.BaseHandler
	Service HealthAPI
}

func NewHandler(svc HealthAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Health handles GET /ai/health. It always answers 200; the body carries the scorer state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.Health(r.Context()))
}
