package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/loan-servicing/internal/core/datamodel/payment"
)

// PendingPayment is a row of the officer approval queue.
type PendingPayment struct {
	ID              int64          `db:"id"`
	PaymentIntentID string         `db:"payment_intent_id"`
	LoanID          int64          `db:"loan_id"`
	RepaymentID     int64          `db:"repayment_id"`
	Borrower        sql.NullString `db:"borrower"`
	Amount          float64        `db:"amount"`
	Currency        string         `db:"currency"`
	AuthorizedAt    sql.NullTime   `db:"authorized_at"`
	CreatedAt       time.Time      `db:"created_at"`
}

type PendingQueue struct {
	db *sqlx.DB
}

func NewPendingQueue(db *sqlx.DB) *PendingQueue {
	return &PendingQueue{db: db}
}

// ListAuthorized returns payments waiting for capture, oldest first.
func (q *PendingQueue) ListAuthorized(ctx context.Context) ([]PendingPayment, error) {
	query := q.db.Rebind(`
SELECT p.id, p.payment_intent_id, p.loan_id, p.repayment_id, u.email AS borrower,
       p.amount, p.currency, p.authorized_at, p.created_at
FROM payments p
LEFT JOIN users u ON u.id = p.borrower_id
WHERE p.status = ?
ORDER BY p.created_at ASC, p.id ASC`)

	rows := make([]PendingPayment, 0)
	if err := q.db.SelectContext(ctx, &rows, query, payment.StatusAuthorized); err != nil {
		return nil, err
	}
	return rows, nil
}
