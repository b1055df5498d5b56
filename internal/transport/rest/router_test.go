package rest_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/loan-servicing/internal"
	"github.com/frahmantamala/loan-servicing/internal/auth"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
	"github.com/frahmantamala/loan-servicing/internal/payment"
	"github.com/frahmantamala/loan-servicing/internal/transport/rest"
	userapi "github.com/frahmantamala/loan-servicing/internal/user"
)

// tokens are "<role>-<id>"
type roleAuth struct {
	auth.ServiceAPI
	roles map[int64]string
}

func (roleAuth) ValidateAccessToken(token string) (*auth.Claims, error) {
	role, id, ok := strings.Cut(token, "-")
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return &auth.Claims{UserID: id, Role: role}, nil
}

func (a roleAuth) GetActiveUser(_ context.Context, id int64) (*auth.User, error) {
	return &auth.User{ID: id, Role: a.roles[id]}, nil
}

type fakeUsers struct{ deleted []int64 }

func (f *fakeUsers) Profile(_ context.Context, id int64) (*userapi.ProfileResponse, error) {
	return &userapi.ProfileResponse{ID: id}, nil
}

func (f *fakeUsers) DeleteBorrower(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePayments struct {
	payment.ServiceAPI
	pendingCalls int
}

func (f *fakePayments) Pending(context.Context) ([]payment.PendingResponse, error) {
	f.pendingCalls++
	return []payment.PendingResponse{}, nil
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return fmt.Errorf("connection refused") }

var _ = ginkgo.Describe("Router", func() {
	var (
		router   *chi.Mux
		users    *fakeUsers
		payments *fakePayments
		media    string
	)

	ginkgo.BeforeEach(func() {
		media = ginkgo.GinkgoT().TempDir()
		gomega.Expect(os.MkdirAll(filepath.Join(media, "receipts"), 0o755)).To(gomega.Succeed())
		gomega.Expect(os.WriteFile(filepath.Join(media, "receipts", "r.html"), []byte("<p>receipt</p>"), 0o644)).To(gomega.Succeed())

		users = &fakeUsers{}
		payments = &fakePayments{}
		roles := map[int64]string{1: user.RoleBorrower, 2: user.RoleOfficer, 3: user.RoleAdmin}

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Auth:    auth.NewHandler(roleAuth{roles: roles}),
			User:    userapi.NewHandler(users),
			Payment: payment.NewHandler(payments),
			Health: rest.NewHealthHandler(map[string]rest.Pinger{
				"postgres": rest.PingFunc(func(context.Context) error { return nil }),
			}),
		}, rest.Options{MediaRoot: media, MediaURL: "/media/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	do := func(method, target, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.It("answers liveness and readiness", func() {
		gomega.Expect(do(http.MethodGet, "/ping", "").Code).To(gomega.Equal(http.StatusOK))

		rec := do(http.MethodGet, "/health", "")
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"postgres"`))
	})

	ginkgo.It("publishes the API contract", func() {
		rec := do(http.MethodGet, "/openapi.yml", "")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.HavePrefix("openapi: 3.0.3"))
	})

	ginkgo.It("serves stored receipts", func() {
		rec := do(http.MethodGet, "/media/receipts/r.html", "")

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("receipt"))
	})

	ginkgo.It("sets a trace id on every response", func() {
		rec := do(http.MethodGet, "/ping", "")

		gomega.Expect(rec.Header().Get("X-Trace-ID")).ToNot(gomega.BeEmpty())
	})

	ginkgo.It("requires a token on protected routes", func() {
		gomega.Expect(do(http.MethodGet, "/users/me", "").Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(do(http.MethodGet, "/users/me", "borrower-1").Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("limits the pending queue to staff", func() {
		gomega.Expect(do(http.MethodGet, "/loans/payments/pending", "borrower-1").Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(do(http.MethodGet, "/loans/payments/pending", "officer-2").Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(do(http.MethodGet, "/loans/payments/pending", "admin-3").Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(payments.pendingCalls).To(gomega.Equal(2))
	})

	ginkgo.It("limits borrower deletion to admins", func() {
		gomega.Expect(do(http.MethodDelete, "/staff/borrowers/9", "officer-2").Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(do(http.MethodDelete, "/staff/borrowers/9", "admin-3").Code).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(users.deleted).To(gomega.Equal([]int64{9}))
	})
})

var _ = ginkgo.Describe("HealthHandler", func() {
	ginkgo.It("reports 503 when a component is down", func() {
		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health: rest.NewHealthHandler(map[string]rest.Pinger{"postgres": failingPinger{}, "redis": nil}),
		}, rest.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("connection refused"))
		gomega.Expect(rec.Body.String()).ToNot(gomega.ContainSubstring("redis"))
	})
})
