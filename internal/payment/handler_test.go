package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/payment"
)

type fakeService struct {
	payment.ServiceAPI
	loanID, repaymentID int64
	intent              payment.IntentDTO
	confirmed           string
	err                 error
}

func (f *fakeService) CreateIntent(_ context.Context, _ *auth.User, loanID, repaymentID int64, dto payment.IntentDTO) (*payment.IntentResponse, error) {
	f.loanID, f.repaymentID, f.intent = loanID, repaymentID, dto
	if f.err != nil {
		return nil, f.err
	}
	return &payment.IntentResponse{ClientSecret: "secret", PaymentID: 1, PaymentIntentID: "pi_1"}, nil
}

func (f *fakeService) Confirm(_ context.Context, _ *auth.User, intentID string) (*payment.StatusResponse, error) {
	f.confirmed = intentID
	return &payment.StatusResponse{PaymentID: 1, Status: "Authorized"}, nil
}

func (f *fakeService) Approve(_ context.Context, id int64) (*payment.ApproveResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payment.ApproveResponse{PaymentID: id, Status: "Captured", RepaymentStatus: "Due"}, nil
}

var _ = Describe("Handler", func() {
	var (
		svc    *fakeService
		router chi.Router
	)

	BeforeEach(func() {
		svc = &fakeService{}
		h := payment.NewHandler(svc)
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u := &auth.User{ID: 5, Role: user.RoleBorrower}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), u)))
			})
		})
		router.Post("/loans/loans/{loan_id}/repayments/{repayment_id}/stripe/intent", h.CreateIntent)
		router.Post("/loans/payments/confirm", h.Confirm)
		router.Post("/loans/payments/{id}/approve", h.Approve)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("CreateIntent", func() {
		It("takes amount and currency from the query", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/loans/3/repayments/9/stripe/intent?amount=25.5&currency=EUR", nil)
			req.Header.Set(payment.IdempotencyHeader, "key-1")

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.loanID).To(Equal(int64(3)))
			Expect(svc.repaymentID).To(Equal(int64(9)))
			Expect(*svc.intent.Amount).To(Equal(25.5))
			Expect(svc.intent.Currency).To(Equal("EUR"))
			Expect(svc.intent.IdempotencyKey).To(Equal("key-1"))
			Expect(rec.Body.String()).To(ContainSubstring(`"client_secret":"secret"`))
		})

		It("prefers the JSON body", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/loans/3/repayments/9/stripe/intent?amount=1", strings.NewReader(`{"amount":40}`))

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(*svc.intent.Amount).To(Equal(40.0))
		})

		It("rejects a malformed amount", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/loans/3/repayments/9/stripe/intent?amount=ten", nil)

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed path id", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/loans/x/repayments/9/stripe/intent", nil)

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps service errors to their status", func() {
			svc.err = apperrors.ErrAlreadyPaid
			req := httptest.NewRequest(http.MethodPost, "/loans/loans/3/repayments/9/stripe/intent", nil)

			rec := serve(req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("Installment already fully paid"))
		})
	})

	Describe("Confirm", func() {
		It("accepts the intent id in the body", func() {
			rec := serve(httptest.NewRequest(http.MethodPost, "/loans/payments/confirm", strings.NewReader(`{"payment_intent_id":"pi_body"}`)))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.confirmed).To(Equal("pi_body"))
		})

		It("falls back to the query", func() {
			rec := serve(httptest.NewRequest(http.MethodPost, "/loans/payments/confirm?payment_intent_id=pi_query", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(svc.confirmed).To(Equal("pi_query"))
		})
	})

	Describe("Approve", func() {
		It("returns the capture result", func() {
			rec := serve(httptest.NewRequest(http.MethodPost, "/loans/payments/4/approve", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"payment_id":4`))
			Expect(rec.Body.String()).To(ContainSubstring(`"receipt_url":null`))
		})

		It("maps a lock conflict to 409", func() {
			svc.err = apperrors.ErrOperationInProgress

			rec := serve(httptest.NewRequest(http.MethodPost, "/loans/payments/4/approve", nil))

			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})
})
