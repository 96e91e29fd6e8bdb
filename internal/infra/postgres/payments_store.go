package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func (s *Store) ListPayments(ctx context.Context, userID string) ([]domain.ScheduledPayment, error) {
	ctx, span := tracer.Start(ctx, "store.ListPayments")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+paymentCols+`
		FROM scheduled_payments
		WHERE user_id = $1::uuid AND deleted_at IS NULL
		ORDER BY due_date, created_at`, userID)
	if err != nil {
		return nil, storageErr("list payments", err)
	}
	out, err := collectPayments(rows)
	if err != nil {
		return nil, storageErr("list payments", err)
	}
	return out, nil
}

func (s *Store) GetPayment(ctx context.Context, userID, id string) (*domain.ScheduledPayment, error) {
	ctx, span := tracer.Start(ctx, "store.GetPayment",
		trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+paymentCols+`
		FROM scheduled_payments
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	if err != nil {
		return nil, storageErr("get payment", err)
	}
	return p, nil
}

func (s *Store) CreatePayment(ctx context.Context, userID string, in *domain.PaymentCreate) (*domain.ScheduledPayment, error) {
	ctx, span := tracer.Start(ctx, "store.CreatePayment")
	defer span.End()

	row := s.pool.QueryRow(ctx, `INSERT INTO scheduled_payments
		(id, user_id, payee, amount, due_date, status, notes, expected_method)
		VALUES ($1::uuid, $2::uuid, $3, $4::numeric, $5::date, $6, $7, $8)
		RETURNING `+paymentCols,
		uuid.NewString(), userID, in.Payee, in.Amount, in.DueDate,
		domain.StatusPending, in.Notes, in.ExpectedMethod)
	p, err := scanPayment(row)
	if err != nil {
		return nil, storageErr("create payment", err)
	}
	return p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, userID, id string, patch *domain.PaymentPatch) (*domain.ScheduledPayment, error) {
	ctx, span := tracer.Start(ctx, "store.UpdatePayment",
		trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	set := []string{"updated_at = now()"}
	args := []any{userID, id}
	add := func(expr string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}
	if patch.Payee != nil {
		add("payee = $%d", *patch.Payee)
	}
	if patch.Amount != nil {
		add("amount = $%d::numeric", *patch.Amount)
	}
	if patch.DueDate != nil {
		add("due_date = $%d::date", *patch.DueDate)
	}
	if patch.Notes != nil {
		add("notes = $%d", *patch.Notes)
	}
	if patch.ExpectedMethod != nil {
		add("expected_method = $%d", *patch.ExpectedMethod)
	}

	row := s.pool.QueryRow(ctx, `UPDATE scheduled_payments SET `+strings.Join(set, ", ")+`
		WHERE user_id = $1::uuid AND id = $2::uuid
		RETURNING `+paymentCols, args...)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	if err != nil {
		return nil, storageErr("update payment", err)
	}
	return p, nil
}

// SoftDeletePayment marks the payment deleted and detaches any
// transactions that reference it. Both writes happen in one SQL
// transaction so a settled expense never points at a half-deleted
// payment.
func (s *Store) SoftDeletePayment(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "store.SoftDeletePayment",
		trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storageErr("delete payment", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `UPDATE scheduled_payments
		SET deleted_at = now(), updated_at = now()
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	if err != nil {
		return storageErr("delete payment", err)
	}
	if ct.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}

	_, err = tx.Exec(ctx, `UPDATE transactions
		SET linked_payment = NULL, updated_at = now()
		WHERE user_id = $1::uuid AND linked_payment = $2::uuid`, userID, id)
	if err != nil {
		return storageErr("delete payment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("delete payment", err)
	}
	return nil
}

// SettlePayment locks the payment row, verifies it is still PENDING,
// inserts the derived expense transaction, and flips the payment to
// PAID, all in one SQL transaction. The row lock makes concurrent
// settle attempts serialize: the second one sees PAID and gets
// ErrConflict.
func (s *Store) SettlePayment(ctx context.Context, userID, id string, now time.Time) (*domain.ScheduledPayment, *domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.SettlePayment",
		trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, storageErr("settle payment", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+paymentCols+`
		FROM scheduled_payments
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL
		FOR UPDATE`, userID, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	if err != nil {
		return nil, nil, storageErr("settle payment", err)
	}
	if p.Status == domain.StatusPaid {
		return nil, nil, &domain.ErrConflict{Message: "Payment is already marked as paid"}
	}

	expense := domain.SettlementTransaction(p, now)
	row = tx.QueryRow(ctx, `INSERT INTO transactions
		(id, user_id, type, amount, date, counterparty, description, method, linked_payment)
		VALUES ($1::uuid, $2::uuid, $3, $4::numeric, $5::date, $6, $7, $8, $9::uuid)
		RETURNING `+transactionCols,
		uuid.NewString(), expense.UserID, expense.Type, expense.Amount, expense.Date,
		expense.Counterparty, expense.Description, expense.Method, expense.LinkedPayment)
	created, err := scanTransaction(row)
	if isUniqueViolation(err) {
		// A client already linked a transaction to this payment by hand.
		return nil, nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
	}
	if err != nil {
		return nil, nil, storageErr("settle payment", err)
	}

	row = tx.QueryRow(ctx, `UPDATE scheduled_payments
		SET status = $3, paid_at = $4::timestamptz, updated_at = now()
		WHERE user_id = $1::uuid AND id = $2::uuid
		RETURNING `+paymentCols, userID, id, domain.StatusPaid, now)
	settled, err := scanPayment(row)
	if err != nil {
		return nil, nil, storageErr("settle payment", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, storageErr("settle payment", err)
	}

	s.logger.Info("payment settled",
		zap.String("payment_id", settled.ID),
		zap.String("transaction_id", created.ID))
	return settled, created, nil
}

func (s *Store) SnapshotPayments(ctx context.Context, userID string) ([]domain.ScheduledPayment, error) {
	ctx, span := tracer.Start(ctx, "store.SnapshotPayments")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+paymentCols+`
		FROM scheduled_payments
		WHERE user_id = $1::uuid
		ORDER BY updated_at`, userID)
	if err != nil {
		return nil, storageErr("snapshot payments", err)
	}
	out, err := collectPayments(rows)
	if err != nil {
		return nil, storageErr("snapshot payments", err)
	}
	return out, nil
}
