package service

import (
	"context"
	"errors"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Scheduled payments
// ============================================================

func (s *FinanceService) ListPayments(ctx context.Context, userID string) ([]domain.ScheduledPayment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListPayments")
	defer span.End()

	return s.store.ListPayments(ctx, userID)
}

func (s *FinanceService) GetPayment(ctx context.Context, userID, id string) (*domain.ScheduledPayment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.GetPayment")
	defer span.End()

	return s.store.GetPayment(ctx, userID, id)
}

func (s *FinanceService) CreatePayment(ctx context.Context, userID string, in *domain.PaymentCreate) (*domain.ScheduledPayment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.CreatePayment")
	defer span.End()

	if in.Payee == "" {
		return nil, &domain.ErrValidation{Field: "payee", Message: "required"}
	}
	if !validAmount(in.Amount) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive with at most 2 decimal places"}
	}
	if !validDate(in.DueDate) {
		return nil, &domain.ErrValidation{Field: "due_date", Message: "invalid format, use YYYY-MM-DD"}
	}

	p, err := s.store.CreatePayment(ctx, userID, in)
	if err != nil {
		s.logger.Error("failed to create payment", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("scheduled payment created",
		zap.String("user_id", userID),
		zap.String("payment_id", p.ID),
		zap.String("payee", p.Payee),
		zap.String("due_date", p.DueDate),
	)
	return p, nil
}

func (s *FinanceService) UpdatePayment(ctx context.Context, userID, id string, patch *domain.PaymentPatch) (*domain.ScheduledPayment, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.UpdatePayment")
	defer span.End()

	if patch.Payee != nil && *patch.Payee == "" {
		return nil, &domain.ErrValidation{Field: "payee", Message: "required"}
	}
	if patch.Amount != nil && !validAmount(*patch.Amount) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be positive with at most 2 decimal places"}
	}
	if patch.DueDate != nil && !validDate(*patch.DueDate) {
		return nil, &domain.ErrValidation{Field: "due_date", Message: "invalid format, use YYYY-MM-DD"}
	}

	return s.store.UpdatePayment(ctx, userID, id, patch)
}

func (s *FinanceService) DeletePayment(ctx context.Context, userID, id string) error {
	ctx, span := financeTracer.Start(ctx, "FinanceService.DeletePayment")
	defer span.End()

	return s.store.SoftDeletePayment(ctx, userID, id)
}

// MarkPaid settles a pending payment: the store flips it to PAID and
// records the linked expense transaction atomically. Settling an
// already-paid payment is a conflict, never a second transaction.
func (s *FinanceService) MarkPaid(ctx context.Context, userID, id string) (*domain.ScheduledPayment, *domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.MarkPaid")
	defer span.End()

	payment, expense, err := s.store.SettlePayment(ctx, userID, id, time.Now().UTC())
	if err != nil {
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			s.metrics.IncrSettlement("conflict")
		} else {
			s.metrics.IncrSettlement("failure")
		}
		return nil, nil, err
	}

	s.metrics.IncrSettlement("success")
	s.logger.Info("payment marked paid",
		zap.String("user_id", userID),
		zap.String("payment_id", payment.ID),
		zap.String("transaction_id", expense.ID),
		zap.String("amount", expense.Amount.StringFixed(2)),
	)
	return payment, expense, nil
}
