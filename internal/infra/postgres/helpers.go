package postgres

import (
	"errors"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const dateLayout = "2006-01-02"

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func storageErr(op string, err error) error {
	return &domain.ErrStorage{Op: op, Err: err}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const transactionCols = `id::text, user_id::text, type, amount, date, counterparty,
	description, method, linked_payment::text, created_at, updated_at, deleted_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var date time.Time
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &date, &t.Counterparty,
		&t.Description, &t.Method, &t.LinkedPayment, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return nil, err
	}
	t.Date = date.Format(dateLayout)
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	out := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

const paymentCols = `id::text, user_id::text, payee, amount, due_date, status,
	paid_at, notes, expected_method, created_at, updated_at, deleted_at`

func scanPayment(row rowScanner) (*domain.ScheduledPayment, error) {
	var p domain.ScheduledPayment
	var due time.Time
	err := row.Scan(&p.ID, &p.UserID, &p.Payee, &p.Amount, &due, &p.Status,
		&p.PaidAt, &p.Notes, &p.ExpectedMethod, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	p.DueDate = due.Format(dateLayout)
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]domain.ScheduledPayment, error) {
	defer rows.Close()
	out := []domain.ScheduledPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

const weekCols = `id::text, user_id::text, week_start_date, opening_balance,
	created_at, updated_at, deleted_at`

func scanWeek(row rowScanner) (*domain.WeeklyPeriod, error) {
	var w domain.WeeklyPeriod
	var start time.Time
	err := row.Scan(&w.ID, &w.UserID, &start, &w.OpeningBalance,
		&w.CreatedAt, &w.UpdatedAt, &w.DeletedAt)
	if err != nil {
		return nil, err
	}
	w.WeekStartDate = start.Format(dateLayout)
	return &w, nil
}

func collectWeeks(rows pgx.Rows) ([]domain.WeeklyPeriod, error) {
	defer rows.Close()
	out := []domain.WeeklyPeriod{}
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
