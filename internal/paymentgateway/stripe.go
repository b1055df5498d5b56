// Package paymentgateway adapts Stripe PaymentIntents to the manual-capture flow
// used for installment payments.
package paymentgateway

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"

	types "github.com/frahmantamala/loan-servicing/internal/core/datamodel/paymentgateway"
)

type Config struct {
	SecretKey string
	APIURL    string
	Timeout   time.Duration
}

type StripeClient struct {
	intents paymentintent.Client
	logger  *slog.Logger
}

func NewStripeClient(config Config, logger *slog.Logger) *StripeClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	url := config.APIURL
	if url == "" {
		url = stripe.APIURL
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})

	return &StripeClient{
		intents: paymentintent.Client{B: backend, Key: config.SecretKey},
		logger:  logger,
	}
}

func (c *StripeClient) CreateIntent(ctx context.Context, req types.IntentRequest) (*types.Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, &types.Error{Kind: types.ErrRejected, Reason: err.Error(), Err: err}
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.intents.New(params)
	if err != nil {
		c.logger.Error("stripe: create intent failed", "amount", req.Amount, "currency", req.Currency, "error", err)
		return nil, classify(err)
	}

	c.logger.Info("stripe: intent created", "payment_intent_id", pi.ID, "amount", pi.Amount)
	return toIntent(pi), nil
}

func (c *StripeClient) GetIntent(ctx context.Context, id string) (*types.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.intents.Get(id, params)
	if err != nil {
		c.logger.Error("stripe: retrieve intent failed", "payment_intent_id", id, "error", err)
		return nil, classify(err)
	}
	return toIntent(pi), nil
}

// Capture captures the full authorized amount. The idempotency key makes a
// retried capture safe at the processor.
func (c *StripeClient) Capture(ctx context.Context, id, idempotencyKey string) (*types.Intent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := c.intents.Capture(id, params)
	if err != nil {
		c.logger.Error("stripe: capture failed", "payment_intent_id", id, "error", err)
		return nil, classify(err)
	}

	c.logger.Info("stripe: intent captured", "payment_intent_id", pi.ID, "status", pi.Status)
	return toIntent(pi), nil
}

func (c *StripeClient) Cancel(ctx context.Context, id, idempotencyKey string) (*types.Intent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := c.intents.Cancel(id, params)
	if err != nil {
		c.logger.Error("stripe: cancel failed", "payment_intent_id", id, "error", err)
		return nil, classify(err)
	}

	c.logger.Info("stripe: intent canceled", "payment_intent_id", pi.ID)
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *types.Intent {
	return &types.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// classify sorts processor failures into retryable (network, 429, 5xx), missing
// intents and definitive rejections.
func classify(err error) error {
	var se *stripe.Error
	if !stdErrors.As(err, &se) {
		return &types.Error{Kind: types.ErrUnavailable, Reason: err.Error(), Err: err}
	}

	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError:
		return &types.Error{Kind: types.ErrUnavailable, Reason: se.Msg, Err: err}
	case se.HTTPStatusCode == http.StatusNotFound || se.Code == stripe.ErrorCodeResourceMissing:
		return &types.Error{Kind: types.ErrIntentNotFound, Reason: se.Msg, Err: err}
	default:
		reason := se.Msg
		if se.Code != "" {
			reason = string(se.Code)
		}
		return &types.Error{Kind: types.ErrRejected, Reason: reason, Err: err}
	}
}
