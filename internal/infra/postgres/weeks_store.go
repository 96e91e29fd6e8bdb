package postgres

import (
	"context"
	"errors"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Store) ListWeeks(ctx context.Context, userID string) ([]domain.WeeklyPeriod, error) {
	ctx, span := tracer.Start(ctx, "store.ListWeeks")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+weekCols+`
		FROM weekly_periods
		WHERE user_id = $1::uuid AND deleted_at IS NULL
		ORDER BY week_start_date DESC`, userID)
	if err != nil {
		return nil, storageErr("list weeks", err)
	}
	out, err := collectWeeks(rows)
	if err != nil {
		return nil, storageErr("list weeks", err)
	}
	return out, nil
}

func (s *Store) GetWeek(ctx context.Context, userID, id string) (*domain.WeeklyPeriod, error) {
	ctx, span := tracer.Start(ctx, "store.GetWeek",
		trace.WithAttributes(attribute.String("week.id", id)))
	defer span.End()

	row := s.pool.QueryRow(ctx, `SELECT `+weekCols+`
		FROM weekly_periods
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	w, err := scanWeek(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	if err != nil {
		return nil, storageErr("get week", err)
	}
	return w, nil
}

func (s *Store) CreateWeek(ctx context.Context, userID string, in *domain.WeekCreate) (*domain.WeeklyPeriod, error) {
	ctx, span := tracer.Start(ctx, "store.CreateWeek")
	defer span.End()

	row := s.pool.QueryRow(ctx, `INSERT INTO weekly_periods
		(id, user_id, week_start_date, opening_balance)
		VALUES ($1::uuid, $2::uuid, $3::date, $4::numeric)
		RETURNING `+weekCols,
		uuid.NewString(), userID, in.WeekStartDate, in.OpeningBalance)
	w, err := scanWeek(row)
	if isUniqueViolation(err) {
		return nil, &domain.ErrConflict{Message: "A weekly period already exists for " + in.WeekStartDate}
	}
	if err != nil {
		return nil, storageErr("create week", err)
	}
	return w, nil
}

func (s *Store) UpdateWeek(ctx context.Context, userID, id string, patch *domain.WeekPatch) (*domain.WeeklyPeriod, error) {
	ctx, span := tracer.Start(ctx, "store.UpdateWeek",
		trace.WithAttributes(attribute.String("week.id", id)))
	defer span.End()

	if patch.OpeningBalance == nil {
		return s.GetWeek(ctx, userID, id)
	}
	row := s.pool.QueryRow(ctx, `UPDATE weekly_periods
		SET opening_balance = $3::numeric, updated_at = now()
		WHERE user_id = $1::uuid AND id = $2::uuid
		RETURNING `+weekCols, userID, id, *patch.OpeningBalance)
	w, err := scanWeek(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	if err != nil {
		return nil, storageErr("update week", err)
	}
	return w, nil
}

func (s *Store) SoftDeleteWeek(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "store.SoftDeleteWeek",
		trace.WithAttributes(attribute.String("week.id", id)))
	defer span.End()

	ct, err := s.pool.Exec(ctx, `UPDATE weekly_periods
		SET deleted_at = now(), updated_at = now()
		WHERE user_id = $1::uuid AND id = $2::uuid AND deleted_at IS NULL`, userID, id)
	if err != nil {
		return storageErr("delete week", err)
	}
	if ct.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	return nil
}

func (s *Store) SnapshotWeeks(ctx context.Context, userID string) ([]domain.WeeklyPeriod, error) {
	ctx, span := tracer.Start(ctx, "store.SnapshotWeeks")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+weekCols+`
		FROM weekly_periods
		WHERE user_id = $1::uuid
		ORDER BY week_start_date`, userID)
	if err != nil {
		return nil, storageErr("snapshot weeks", err)
	}
	out, err := collectWeeks(rows)
	if err != nil {
		return nil, storageErr("snapshot weeks", err)
	}
	return out, nil
}
