package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type ClientConfig struct {
	BaseURL        string
	PredictTimeout time.Duration
	HealthTimeout  time.Duration
}

// Client calls the remote scoring service.
type Client struct {
	baseURL        string
	predictTimeout time.Duration
	healthTimeout  time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewClient(config ClientConfig, logger *slog.Logger) *Client {
	predictTimeout := config.PredictTimeout
	if predictTimeout <= 0 {
		predictTimeout = 20 * time.Second
	}
	healthTimeout := config.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		predictTimeout: predictTimeout,
		healthTimeout:  healthTimeout,
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

func (c *Client) Predict(ctx context.Context, f Features) (Prediction, error) {
	if c.baseURL == "" {
		return Prediction{}, fmt.Errorf("scoring service url is not configured")
	}

	body, err := json.Marshal(f)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to marshal features: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.predictTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("scoring service error: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Score    *float64 `json:"score"`
		Risk     string   `json:"risk"`
		RiskBand string   `json:"risk_band"`
		Band     string   `json:"band"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Score == nil {
		return Prediction{}, fmt.Errorf("scoring response has no score")
	}

	c.logger.Debug("scoring service responded", "score", *out.Score, "risk", out.Risk)
	return normalize(*out.Score, out.Risk, out.RiskBand, out.Band), nil
}

// Health returns the decoded body of GET /health.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("scoring service url is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scoring health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoring health check returned status %d", resp.StatusCode)
	}

	out := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func (c *Client) URL() string {
	return c.baseURL
}
