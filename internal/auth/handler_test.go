package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/user"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		handler  *Handler
		tokenGen *JWTTokenGenerator
		reached  bool
		next     http.Handler
	)

	ginkgo.BeforeEach(func() {
		tokenGen = NewJWTTokenGenerator("handler-access-secret-01", "handler-refresh-secret-01", time.Minute, time.Hour)
		handler = NewHandler(NewService(newMockUserRepository(), tokenGen, bcrypt.MinCost))
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(u.ID).ToNot(gomega.BeZero())
			reached = true
			w.WriteHeader(http.StatusNoContent)
		})
	})

	bearer := func(userID, role string) *http.Request {
		token, err := tokenGen.GenerateAccessToken(userID, "x@example.com", role)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("returns tokens for valid credentials", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"borrower@example.com","password":"correct_password"}`))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("access_token"))
		})

		ginkgo.It("returns 401 for a wrong password", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"borrower@example.com","password":"nope"}`))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INVALID_CREDENTIALS"))
		})

		ginkgo.It("returns 400 for malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("rejects a request without a token", func() {
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeFalse())
		})

		ginkgo.It("puts the user into the context", func() {
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, bearer("1", user.RoleBorrower))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(reached).To(gomega.BeTrue())
		})

		ginkgo.It("rejects a token for an inactive user", func() {
			rec := httptest.NewRecorder()

			handler.AuthMiddleware(next).ServeHTTP(rec, bearer("3", user.RoleOfficer))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("RequireRoles", func() {
		ginkgo.It("lets staff through", func() {
			rec := httptest.NewRecorder()
			chain := handler.AuthMiddleware(handler.RequireRoles(user.RoleOfficer, user.RoleAdmin)(next))

			chain.ServeHTTP(rec, bearer("2", user.RoleAdmin))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("forbids borrowers", func() {
			rec := httptest.NewRecorder()
			chain := handler.AuthMiddleware(handler.RequireRoles(user.RoleOfficer, user.RoleAdmin)(next))

			chain.ServeHTTP(rec, bearer("1", user.RoleBorrower))

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(reached).To(gomega.BeFalse())
		})
	})
})
