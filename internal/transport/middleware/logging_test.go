package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/loan-servicing/internal/transport/middleware"
)

func entries(out *bytes.Buffer) []map[string]interface{} {
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var m map[string]interface{}
		gomega.Expect(json.Unmarshal([]byte(raw), &m)).To(gomega.Succeed())
		lines = append(lines, m)
	}
	return lines
}

var _ = ginkgo.Describe("LoggingMiddleware", func() {
	var (
		out *bytes.Buffer
		lg  *slog.Logger
	)

	ginkgo.BeforeEach(func() {
		out = &bytes.Buffer{}
		lg = slog.New(slog.NewJSONHandler(out, nil))
	})

	ginkgo.It("masks credentials and applicant financials", func() {
		var received string
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			received = string(b)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"client_secret":"pi_1_secret_2","payment_id":7}`))
		}))
		body := `{"amount":5000,"credit_score":800,"annual_income":90000,"purpose":"car"}`
		req := httptest.NewRequest(http.MethodPost, "/loans/applications", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer abc.def")

		h.ServeHTTP(httptest.NewRecorder(), req)

		gomega.Expect(received).To(gomega.Equal(body))
		lines := entries(out)
		gomega.Expect(lines).To(gomega.HaveLen(2))
		gomega.Expect(lines[0]["body"]).To(gomega.Equal(
			`{"amount":5000,"annual_income":"[FILTERED]","credit_score":"[FILTERED]","purpose":"car"}`))
		gomega.Expect(lines[0]["headers"]).To(gomega.HaveKeyWithValue("Authorization", "[FILTERED]"))
		gomega.Expect(lines[1]["body"]).To(gomega.Equal(`{"client_secret":"[FILTERED]","payment_id":7}`))
	})

	ginkgo.It("does not log html bodies", func() {
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>receipt for Jane</html>"))
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/media/receipts/a.html", nil))

		lines := entries(out)
		gomega.Expect(lines).To(gomega.HaveLen(2))
		gomega.Expect(lines[1]["body"]).To(gomega.BeEmpty())
		gomega.Expect(lines[1]["status_code"]).To(gomega.BeNumerically("==", 200))
	})
})
