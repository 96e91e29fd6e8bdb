package service

import (
	"context"

	"github.com/finlyapp/finly-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Weekly periods
// ============================================================

func (s *FinanceService) ListWeeks(ctx context.Context, userID string) ([]domain.WeeklyPeriod, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListWeeks")
	defer span.End()

	return s.store.ListWeeks(ctx, userID)
}

func (s *FinanceService) GetWeek(ctx context.Context, userID, id string) (*domain.WeeklyPeriod, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.GetWeek")
	defer span.End()

	return s.store.GetWeek(ctx, userID, id)
}

func (s *FinanceService) CreateWeek(ctx context.Context, userID string, in *domain.WeekCreate) (*domain.WeeklyPeriod, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.CreateWeek")
	defer span.End()

	if !validDate(in.WeekStartDate) {
		return nil, &domain.ErrValidation{Field: "week_start_date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if in.OpeningBalance.Exponent() < -2 {
		return nil, &domain.ErrValidation{Field: "opening_balance", Message: "at most 2 decimal places"}
	}

	w, err := s.store.CreateWeek(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	s.logger.Info("weekly period created",
		zap.String("user_id", userID),
		zap.String("week_id", w.ID),
		zap.String("week_start_date", w.WeekStartDate),
	)
	return w, nil
}

func (s *FinanceService) UpdateWeek(ctx context.Context, userID, id string, patch *domain.WeekPatch) (*domain.WeeklyPeriod, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.UpdateWeek")
	defer span.End()

	if patch.OpeningBalance != nil && patch.OpeningBalance.Exponent() < -2 {
		return nil, &domain.ErrValidation{Field: "opening_balance", Message: "at most 2 decimal places"}
	}

	return s.store.UpdateWeek(ctx, userID, id, patch)
}

func (s *FinanceService) DeleteWeek(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteWeek")
	defer span.End()

	return s.store.SoftDeleteWeek(ctx, userID, id)
}
