// Package schedule builds monthly installment plans for approved loans.
package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/frahmantamala/loan-servicing/internal/amortization"
	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/loan"
	"github.com/frahmantamala/loan-servicing/internal/core/money"
)

// MaxDay is the latest day of month a due date may fall on.
const MaxDay = 28

// AddMonths moves t forward n calendar months, clamping the day to MaxDay.
// Time of day and location are preserved.
func AddMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	y := t.Year() + floorDiv(total, 12)
	m := time.Month(floorMod(total, 12) + 1)
	d := t.Day()
	if d > MaxDay {
		d = MaxDay
	}
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// DueDates returns count monthly due dates, the first one month after start.
func DueDates(start time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, nil
	}
	first := AddMonths(start, 1)

	// the first date already sits on day <= 28, so a plain monthly rule never skips a month
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.MONTHLY,
		Dtstart: first,
		Count:   count,
	})
	if err != nil {
		return nil, err
	}

	dates := rule.All()
	for i, d := range dates {
		// rrule may drop sub-second precision
		dates[i] = time.Date(d.Year(), d.Month(), d.Day(), first.Hour(), first.Minute(), first.Second(), first.Nanosecond(), first.Location())
	}
	return dates, nil
}

// Generate builds the unsaved repayment rows for l.
func Generate(l loan.Loan) ([]loan.Repayment, error) {
	monthly := amortization.MonthlyPayment(l.Principal, l.InterestRate, l.DurationMonths)

	dates, err := DueDates(l.CreatedAt, l.DurationMonths)
	if err != nil {
		return nil, err
	}

	items := make([]loan.Repayment, 0, len(dates))
	for _, due := range dates {
		items = append(items, loan.Repayment{
			LoanID:     l.ID,
			DueDate:    due,
			AmountDue:  monthly,
			AmountPaid: 0,
			Status:     loan.RepaymentStatusDue,
		})
	}
	return items, nil
}

// StatusFor derives the repayment status from paid amount and due date.
func StatusFor(r loan.Repayment, now time.Time) string {
	if money.Settled(r.AmountPaid, r.AmountDue) {
		return loan.RepaymentStatusPaid
	}
	if IsOverdue(r.DueDate, now) {
		return loan.RepaymentStatusLate
	}
	return loan.RepaymentStatusDue
}

// IsOverdue compares calendar dates in UTC, so a payment due today is not late.
func IsOverdue(due, now time.Time) bool {
	dy, dm, dd := due.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).After(time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC))
}
