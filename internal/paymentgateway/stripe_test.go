package paymentgateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	types "github.com/frahmantamala/loan-servicing/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/loan-servicing/internal/paymentgateway"
)

type recordedCall struct {
	method      string
	path        string
	form        map[string]string
	idempotency string
}

// fakeStripe answers the PaymentIntents endpoints the adapter uses.
type fakeStripe struct {
	mu       sync.Mutex
	calls    []recordedCall
	failWith int
	errCode  string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := make(map[string]string)
	for k, v := range r.PostForm {
		form[k] = v[0]
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		method:      r.Method,
		path:        r.URL.Path,
		form:        form,
		idempotency: r.Header.Get("Idempotency-Key"),
	})
	failWith, errCode := f.failWith, f.errCode
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failWith != 0 {
		w.WriteHeader(failWith)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "code": errCode, "message": "boom"},
		})
		return
	}

	id := "pi_123"
	status := "requires_payment_method"
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/payment_intents"), "/")
	if len(parts) > 1 && parts[1] != "" {
		id = parts[1]
		status = "requires_capture"
	}
	if strings.HasSuffix(r.URL.Path, "/capture") {
		status = "succeeded"
	}
	if strings.HasSuffix(r.URL.Path, "/cancel") {
		status = "canceled"
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":            id,
		"object":        "payment_intent",
		"client_secret": id + "_secret_abc",
		"status":        status,
		"amount":        6000,
		"currency":      "usd",
		"metadata":      map[string]string{"borrower_id": "7"},
	})
}

func (f *fakeStripe) last() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

var _ = Describe("StripeClient", func() {
	var (
		ctx    context.Context
		fake   *fakeStripe
		server *httptest.Server
		client *paymentgateway.StripeClient
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeStripe{}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)
		client = paymentgateway.NewStripeClient(paymentgateway.Config{
			SecretKey: "sk_test_123",
			APIURL:    server.URL,
			Timeout:   2 * time.Second,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("CreateIntent", func() {
		It("creates a manual-capture intent with metadata", func() {
			intent, err := client.CreateIntent(ctx, types.IntentRequest{
				Amount:         6000,
				Currency:       "usd",
				Description:    "installment loan#1 repayment#2",
				Metadata:       map[string]string{"loan_id": "1", "borrower_id": "7"},
				IdempotencyKey: "intent-key",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(intent.ID).To(Equal("pi_123"))
			Expect(intent.ClientSecret).To(Equal("pi_123_secret_abc"))
			Expect(intent.Status).To(Equal(types.IntentStatusRequiresPaymentMethod))
			Expect(intent.Metadata).To(HaveKeyWithValue("borrower_id", "7"))

			call := fake.last()
			Expect(call.method).To(Equal(http.MethodPost))
			Expect(call.path).To(Equal("/v1/payment_intents"))
			Expect(call.form).To(HaveKeyWithValue("amount", "6000"))
			Expect(call.form).To(HaveKeyWithValue("currency", "usd"))
			Expect(call.form).To(HaveKeyWithValue("capture_method", "manual"))
			Expect(call.form).To(HaveKeyWithValue("metadata[loan_id]", "1"))
			Expect(call.form).To(HaveKeyWithValue("description", "installment loan#1 repayment#2"))
			Expect(call.idempotency).To(Equal("intent-key"))
		})

		It("rejects an empty amount before calling out", func() {
			_, err := client.CreateIntent(ctx, types.IntentRequest{Currency: "usd"})

			Expect(errors.Is(err, types.ErrRejected)).To(BeTrue())
			Expect(fake.calls).To(BeEmpty())
		})
	})

	It("retrieves an intent", func() {
		intent, err := client.GetIntent(ctx, "pi_9")

		Expect(err).NotTo(HaveOccurred())
		Expect(intent.ID).To(Equal("pi_9"))
		Expect(intent.Status).To(Equal(types.IntentStatusRequiresCapture))
		Expect(fake.last().method).To(Equal(http.MethodGet))
	})

	It("captures with the given idempotency key", func() {
		intent, err := client.Capture(ctx, "pi_9", "capture-4")

		Expect(err).NotTo(HaveOccurred())
		Expect(intent.Status).To(Equal(types.IntentStatusSucceeded))
		Expect(fake.last().path).To(Equal("/v1/payment_intents/pi_9/capture"))
		Expect(fake.last().idempotency).To(Equal("capture-4"))
	})

	It("cancels with the given idempotency key", func() {
		intent, err := client.Cancel(ctx, "pi_9", "cancel-4")

		Expect(err).NotTo(HaveOccurred())
		Expect(intent.Status).To(Equal(types.IntentStatusCanceled))
		Expect(fake.last().path).To(Equal("/v1/payment_intents/pi_9/cancel"))
		Expect(fake.last().idempotency).To(Equal("cancel-4"))
	})

	DescribeTable("classifies processor failures",
		func(status int, code string, kind error) {
			fake.failWith, fake.errCode = status, code

			_, err := client.Capture(ctx, "pi_9", "capture-1")

			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, kind)).To(BeTrue(), "got %v", err)
		},
		Entry("server error is retryable", http.StatusInternalServerError, "", types.ErrUnavailable),
		Entry("rate limit is retryable", http.StatusTooManyRequests, "rate_limit", types.ErrUnavailable),
		Entry("missing intent", http.StatusNotFound, "resource_missing", types.ErrIntentNotFound),
		Entry("bad state is a rejection", http.StatusBadRequest, "payment_intent_unexpected_state", types.ErrRejected),
		Entry("declined card is a rejection", http.StatusPaymentRequired, "card_declined", types.ErrRejected),
	)

	It("keeps the processor's code as the rejection reason", func() {
		fake.failWith, fake.errCode = http.StatusBadRequest, "payment_intent_unexpected_state"

		_, err := client.Capture(ctx, "pi_9", "capture-1")

		var gwErr *types.Error
		Expect(errors.As(err, &gwErr)).To(BeTrue())
		Expect(gwErr.Reason).To(Equal("payment_intent_unexpected_state"))
	})

	It("treats an unreachable processor as unavailable", func() {
		server.Close()

		_, err := client.GetIntent(ctx, "pi_9")

		Expect(errors.Is(err, types.ErrUnavailable)).To(BeTrue())
	})
})
