package loan_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/loan"
)

type fakeService struct {
	loan.ServiceAPI
	lastDecision loan.DecisionDTO
	lastScope    string
	err          error
}

func (f *fakeService) Decide(_ context.Context, id int64, dto loan.DecisionDTO) (*loan.DecisionResponse, error) {
	f.lastDecision = dto
	if f.err != nil {
		return nil, f.err
	}
	return &loan.DecisionResponse{ID: id, Status: dto.Decision, Reason: dto.Reason}, nil
}

func (f *fakeService) List(_ context.Context, _ *auth.User, scope string) ([]loan.ApplicationResponse, error) {
	f.lastScope = scope
	return []loan.ApplicationResponse{}, nil
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		svc    *fakeService
		router chi.Router
	)

	ginkgo.BeforeEach(func() {
		svc = &fakeService{}
		h := loan.NewHandler(svc)
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				u := &auth.User{ID: 1, Role: user.RoleOfficer}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), u)))
			})
		})
		router.Post("/loans/applications/{id}/decision", h.Decide)
		router.Get("/loans/applications", h.ListApplications)
	})

	ginkgo.Describe("Decide", func() {
		ginkgo.It("reads the decision from the JSON body", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/applications/7/decision", strings.NewReader(`{"decision":"Rejected","reason":"dti"}`))
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(svc.lastDecision.Decision).To(gomega.Equal("Rejected"))
			gomega.Expect(*svc.lastDecision.Reason).To(gomega.Equal("dti"))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"id":7`))
		})

		ginkgo.It("falls back to query parameters", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/applications/7/decision?decision=Approved&reason=ok", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(svc.lastDecision.Decision).To(gomega.Equal("Approved"))
			gomega.Expect(*svc.lastDecision.Reason).To(gomega.Equal("ok"))
		})

		ginkgo.It("maps service errors to their status", func() {
			svc.err = apperrors.ErrInvalidDecision
			req := httptest.NewRequest(http.MethodPost, "/loans/applications/7/decision?decision=maybe", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INVALID_DECISION"))
		})

		ginkgo.It("rejects a non numeric id", func() {
			req := httptest.NewRequest(http.MethodPost, "/loans/applications/abc/decision", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("ListApplications", func() {
		ginkgo.It("defaults the scope to mine", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans/applications", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(svc.lastScope).To(gomega.Equal(loan.ScopeMine))
		})

		ginkgo.It("rejects an unknown scope", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans/applications?scope=everyone", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})
})
