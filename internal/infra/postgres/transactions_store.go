package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.ListTransactions")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+transactionCols+`
		FROM transactions
		WHERE user_id = $1::uuid AND deleted_at IS NULL
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	out, err := collectTransactions(rows)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.GetTransaction",
		trace.WithAttributes(attribute.String("transaction.id", id)))
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+transactionCols+`
		FROM transactions
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if err != nil {
		return nil, storageErr("get transaction", err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, userID string, in *domain.TransactionCreate) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.CreateTransaction")
	defer span.End()

	row := s.pool.QueryRow(ctx, `INSERT INTO transactions
		(id, user_id, type, amount, date, counterparty, description, method, linked_payment)
		VALUES ($1::uuid, $2::uuid, $3, $4::numeric, $5::date, $6, $7, $8, $9::uuid)
		RETURNING `+transactionCols,
		uuid.NewString(), userID, in.Type, in.Amount, in.Date,
		in.Counterparty, in.Description, in.Method, in.LinkedPayment)
	t, err := scanTransaction(row)
	if isUniqueViolation(err) {
		return nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
	}
	if err != nil {
		return nil, storageErr("create transaction", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, patch *domain.TransactionPatch) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.UpdateTransaction",
		trace.WithAttributes(attribute.String("transaction.id", id)))
	defer span.End()

	set := []string{"updated_at = now()"}
	args := []any{userID, id}
	add := func(expr string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}
	if patch.Type != nil {
		add("type = $%d", *patch.Type)
	}
	if patch.Amount != nil {
		add("amount = $%d::numeric", *patch.Amount)
	}
	if patch.Date != nil {
		add("date = $%d::date", *patch.Date)
	}
	if patch.Counterparty != nil {
		add("counterparty = $%d", *patch.Counterparty)
	}
	if patch.Description != nil {
		add("description = $%d", *patch.Description)
	}
	if patch.Method != nil {
		add("method = $%d", *patch.Method)
	}
	if patch.LinkedPayment != nil {
		add("linked_payment = $%d::uuid", *patch.LinkedPayment)
	}

	row := s.pool.QueryRow(ctx, `UPDATE transactions SET `+strings.Join(set, ", ")+`
		WHERE user_id = $1::uuid AND id = $2::uuid
		RETURNING `+transactionCols, args...)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if isUniqueViolation(err) {
		return nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
	}
	if err != nil {
		return nil, storageErr("update transaction", err)
	}
	return t, nil
}

func (s *Store) SoftDeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "store.SoftDeleteTransaction",
		trace.WithAttributes(attribute.String("transaction.id", id)))
	defer span.End()

	ct, err := s.pool.Exec(ctx, `UPDATE transactions
		SET deleted_at = now(), updated_at = now()
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	if err != nil {
		return storageErr("delete transaction", err)
	}
	if ct.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return nil
}

func (s *Store) SnapshotTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "store.SnapshotTransactions")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+transactionCols+`
		FROM transactions
		WHERE user_id = $1::uuid
		ORDER BY updated_at`, userID)
	if err != nil {
		return nil, storageErr("snapshot transactions", err)
	}
	out, err := collectTransactions(rows)
	if err != nil {
		return nil, storageErr("snapshot transactions", err)
	}
	return out, nil
}
