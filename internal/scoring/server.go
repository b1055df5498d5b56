package scoring

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/core/common/validation"
)

const serviceVersion = "1.0.0"

// Server exposes a Scorer over HTTP with the same contract Client consumes.
type Server struct {
	scorer Scorer
	logger *slog.Logger
}

func NewServer(scorer Scorer, logger *slog.Logger) *Server {
	return &Server{scorer: scorer, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Post("/predict", s.predict)
	return r
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "AI Scoring",
		"version": serviceVersion,
		"health":  "/health",
		"predict": "/predict",
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "ai", "version": serviceVersion})
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var f Features
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid request body"})
		return
	}

	v := validation.NewValidator()
	v.Field("amount", f.Amount).MinFloat(0, errors.ErrCodeInvalidAmount)
	v.Field("term_months", f.TermMonths).MinInt(1, errors.ErrCodeInvalidTerm)
	if appErr := v.Validate(); appErr != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": appErr.GetDetailedMessage()})
		return
	}

	pred, err := s.scorer.Predict(r.Context(), f)
	if err != nil {
		s.logger.Error("predict failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "prediction failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score": pred.Score,
		"risk":  pred.Risk,
		"band":  pred.Risk,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
