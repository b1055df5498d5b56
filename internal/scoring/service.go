package scoring

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/loan-servicing/internal"
)

const (
	ModeService = "service"
	ModeLocal   = "local"
)

type RemoteAPI interface {
	Predict(ctx context.Context, f Features) (Prediction, error)
	Health(ctx context.Context) (map[string]interface{}, error)
	URL() string
}

// Service scores with the remote scorer and falls back to a local one on any error.
type Service struct {
	remote   RemoteAPI
	fallback Scorer
	logger   *slog.Logger
}

// NewService accepts a nil remote (local only) or a nil fallback (remote only).
func NewService(remote RemoteAPI, fallback Scorer, logger *slog.Logger) *Service {
	return &Service{
		remote:   remote,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *Service) Mode() string {
	if s.remote != nil && s.remote.URL() != "" {
		return ModeService
	}
	return ModeLocal
}

func (s *Service) Predict(ctx context.Context, f Features) (Prediction, error) {
	var primaryErr error
	if s.Mode() == ModeService {
		pred, err := s.remote.Predict(ctx, f)
		if err == nil {
			return pred, nil
		}
		primaryErr = err
		s.logger.Warn("scoring service failed, trying local fallback", "error", err)
	}

	if s.fallback == nil {
		return Prediction{}, errors.NewUnavailableError("AI unavailable (service & local failed)", errors.ErrCodeScoringUnavailable, primaryErr)
	}

	pred, err := s.fallback.Predict(ctx, f)
	if err != nil {
		s.logger.Error("local scorer failed", "error", err, "service_error", primaryErr)
		return Prediction{}, errors.NewUnavailableError("AI unavailable (service & local failed)", errors.ErrCodeScoringUnavailable, err)
	}
	return pred, nil
}

// Health reports the primary scorer status and whether the fallback can serve.
func (s *Service) Health(ctx context.Context) map[string]interface{} {
	fallback := "unavailable"
	if s.fallback != nil {
		fallback = "local_available"
	}

	if s.Mode() == ModeLocal {
		return map[string]interface{}{
			"mode":        ModeLocal,
			"model_found": s.fallback != nil,
			"fallback":    fallback,
		}
	}

	svc, err := s.remote.Health(ctx)
	if err != nil {
		return map[string]interface{}{
			"mode":          ModeService,
			"model_found":   s.fallback != nil,
			"service_error": err.Error(),
			"fallback":      fallback,
		}
	}

	out := map[string]interface{}{}
	for k, v := range svc {
		out[k] = v
	}
	out["mode"] = ModeService
	out["service_url"] = s.remote.URL()
	return out
}
