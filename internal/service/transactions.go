package service

import (
	"context"

	"github.com/finlyapp/finly-api/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

func (s *FinanceService) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.store.ListTransactions(ctx, userID)
}

func (s *FinanceService) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.GetTransaction")
	defer span.End()

	return s.store.GetTransaction(ctx, userID, id)
}

func (s *FinanceService) CreateTransaction(ctx context.Context, userID string, in *domain.TransactionCreate) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.CreateTransaction")
	defer span.End()

	if !in.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be INCOME or EXPENSE"}
	}
	if !validAmount(in.Amount) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive with at most 2 decimal places"}
	}
	if !validDate(in.Date) {
		return nil, &domain.ErrValidation{Field: "date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if in.Counterparty == "" {
		return nil, &domain.ErrValidation{Field: "counterparty", Message: "required"}
	}
	if in.Method == "" {
		in.Method = domain.MethodOther
	}
	if !in.Method.Valid() {
		return nil, &domain.ErrValidation{Field: "method", Message: "unknown payment method"}
	}
	if in.LinkedPayment != nil {
		// The linked payment must exist and belong to the caller.
		if _, err := s.store.GetPayment(ctx, userID, *in.LinkedPayment); err != nil {
			return nil, err
		}
	}

	t, err := s.store.CreateTransaction(ctx, userID, in)
	if err != nil {
		s.logger.Error("failed to create transaction", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("user_id", userID),
		zap.String("transaction_id", t.ID),
		zap.String("type", string(t.Type)),
		zap.String("amount", t.Amount.StringFixed(2)),
	)
	return t, nil
}

func (s *FinanceService) UpdateTransaction(ctx context.Context, userID, id string, patch *domain.TransactionPatch) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.UpdateTransaction")
	defer span.End()

	if patch.Type != nil && !patch.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "must be INCOME or EXPENSE"}
	}
	if patch.Amount != nil && !validAmount(*patch.Amount) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive with at most 2 decimal places"}
	}
	if patch.Date != nil && !validDate(*patch.Date) {
		return nil, &domain.ErrValidation{Field: "date", Message: "invalid format, use YYYY-MM-DD"}
	}
	if patch.Counterparty != nil && *patch.Counterparty == "" {
		return nil, &domain.ErrValidation{Field: "counterparty", Message: "required"}
	}
	if patch.Method != nil && !patch.Method.Valid() {
		return nil, &domain.ErrValidation{Field: "method", Message: "unknown payment method"}
	}
	if patch.LinkedPayment != nil {
		// The linked payment must exist and belong to the caller.
		if _, err := s.store.GetPayment(ctx, userID, *patch.LinkedPayment); err != nil {
			return nil, err
		}
	}

	return s.store.UpdateTransaction(ctx, userID, id, patch)
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeleteTransaction")
	defer span.End()

	return s.store.SoftDeleteTransaction(ctx, userID, id)
}
