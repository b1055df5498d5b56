package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/frahmantamala/loan-servicing/internal/core/events"
)

const (
	SubjectLoanApproved = "Loan Approved"
	SubjectLoanDecision = "Loan Decision"
	SubjectReceipt      = "Installment Payment Receipt"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"score": func(v float64) string { return fmt.Sprintf("%.4f", v) },
	"upper": strings.ToUpper,
}

var (
	approvedTmpl = template.Must(template.New("approved").Funcs(funcs).Parse(
		`<h2>Your loan was approved!</h2>` +
			`<p>Application ID: {{.ApplicationID}}</p>` +
			`<p>Principal: {{money .Principal}} • Term: {{.DurationMonths}} months</p>` +
			`<p>AI Score: {{score .AIScore}} (Risk: {{.RiskBand}})</p>`))

	rejectedTmpl = template.Must(template.New("rejected").Funcs(funcs).Parse(
		`<h2>Your loan application was rejected</h2>` +
			`<p>Application ID: {{.ApplicationID}}</p>` +
			`<p>Reason: {{if .Reason}}{{.Reason}}{{else}}N/A{{end}}</p>`))

	receiptTmpl = template.Must(template.New("receipt").Funcs(funcs).Parse(
		`{{if .FullyPaid}}<h2>Installment payment received</h2>{{else}}<h2>Partial installment payment captured</h2>{{end}}` +
			`<p>Loan #{{.LoanID}} - Installment #{{.RepaymentID}}</p>` +
			`<p>Amount: {{money .Amount}} {{upper .Currency}}</p>` +
			`{{if .FullyPaid}}{{if .ReceiptURL}}<p>Receipt: <a href="{{.ReceiptURL}}">{{.ReceiptURL}}</a></p>{{end}}` +
			`{{else}}<p>Remaining due: {{money .Remaining}}</p>{{end}}`))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func LoanApproved(ev *events.LoanApprovedEvent) (Message, error) {
	body, err := render(approvedTmpl, ev)
	if err != nil {
		return Message{}, err
	}
	return Message{To: ev.BorrowerEmail, Subject: SubjectLoanApproved, HTML: body}, nil
}

func LoanRejected(ev *events.LoanRejectedEvent) (Message, error) {
	body, err := render(rejectedTmpl, ev)
	if err != nil {
		return Message{}, err
	}
	return Message{To: ev.BorrowerEmail, Subject: SubjectLoanDecision, HTML: body}, nil
}

func RepaymentReceipt(ev *events.RepaymentCapturedEvent) (Message, error) {
	body, err := render(receiptTmpl, ev)
	if err != nil {
		return Message{}, err
	}
	return Message{To: ev.BorrowerEmail, Subject: SubjectReceipt, HTML: body}, nil
}
