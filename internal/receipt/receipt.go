// Package receipt renders installment receipts as static HTML files under the
// media root.
package receipt

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
)

const Dir = "receipts"

var page = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money":   func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"percent": func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"date":    func(t time.Time) string { return t.UTC().Format("2006-01-02") },
	"stamp": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Payment Receipt</title></head>
<body style="font-family:Arial,Helvetica,sans-serif;line-height:1.5">
  <h2 style="margin-bottom:0">{{.Lender}}</h2>
  <div style="color:#555;margin-top:2px">Payment Receipt</div>
  <hr>
  <p><b>Borrower:</b> {{.Borrower}}</p>
  <p><b>Loan ID:</b> {{.Loan.ID}} &nbsp; <b>Application ID:</b> {{if .Loan.ApplicationID}}{{.Loan.ApplicationID}}{{else}}-{{end}}</p>
  <p><b>Principal:</b> {{money .Loan.Principal}} &nbsp; <b>APR:</b> {{percent .Loan.InterestRate}} &nbsp; <b>Term:</b> {{.Loan.DurationMonths}} months</p>
  <p><b>Installment ID:</b> {{.Repayment.ID}} &nbsp; <b>Due Date:</b> {{date .Repayment.DueDate}}</p>
  <p><b>Amount Due:</b> {{money .Repayment.AmountDue}} &nbsp; <b>Amount Paid:</b> {{money .Repayment.AmountPaid}}</p>
  <p><b>Paid At:</b> {{stamp .Repayment.PaidAt}}</p>
  <hr>
  <p>Thank you for your payment.</p>
</body></html>
`))

// Data is what a receipt shows.
type Data struct {
	Lender    string
	Borrower  string
	Loan      loan.Loan
	Repayment loan.Repayment
}

type Store struct {
	root    string
	baseURL string
	lender  string
}

// NewStore writes under root and builds links from baseURL (e.g. "/media/").
func NewStore(root, baseURL, lender string) *Store {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if lender == "" {
		lender = "Loan Servicing"
	}
	return &Store{root: root, baseURL: baseURL, lender: lender}
}

// Write renders d to receipts/<random>.html and returns that path relative to the root.
func (s *Store) Write(d Data) (string, error) {
	if d.Lender == "" {
		d.Lender = s.lender
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}

	dir := filepath.Join(s.root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	name := strings.ReplaceAll(uuid.New().String(), "-", "") + ".html"
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return path.Join(Dir, name), nil
}

// URL is the public link for a relative receipt path.
func (s *Store) URL(rel string) string {
	return s.baseURL + rel
}

func (s *Store) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
