package service

import (
	"context"
	"errors"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Sync
// ============================================================

// Pull returns the caller's full record set, soft-deleted rows
// included, regardless of the since cursor. The cursor is mandatory
// and echoed back in debug_info; it does not filter yet. Incremental
// filtering belongs in the store's Snapshot* methods, behind the same
// response shape.
func (s *FinanceService) Pull(ctx context.Context, userID, since string) (*domain.SyncSnapshot, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.Pull")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if since == "" {
		s.metrics.IncrSyncPull("rejected")
		return nil, &domain.ErrValidation{Field: "since", Message: "since parameter is required"}
	}

	if err := s.pulls.Acquire(ctx); err != nil {
		s.metrics.IncrSyncPull("failure")
		return nil, &domain.ErrStorage{Op: "sync pull", Err: err}
	}
	defer s.pulls.Release()

	result, err := s.snapshotBreaker.Execute(func() (interface{}, error) {
		var snap domain.SyncSnapshot
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			snap.Transactions, err = s.store.SnapshotTransactions(gctx, userID)
			return err
		})
		g.Go(func() error {
			var err error
			snap.Payments, err = s.store.SnapshotPayments(gctx, userID)
			return err
		})
		g.Go(func() error {
			var err error
			snap.Weeks, err = s.store.SnapshotWeeks(gctx, userID)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &snap, nil
	})
	if err != nil {
		s.metrics.IncrSyncPull("failure")
		s.logger.Error("sync pull failed", zap.String("user_id", userID), zap.Error(err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrStorage{Op: "sync pull", Err: err}
		}
		return nil, err
	}

	snap := result.(*domain.SyncSnapshot)
	snap.DebugInfo = domain.SyncDebugInfo{
		UserID:           userID,
		TransactionCount: len(snap.Transactions),
		PaymentCount:     len(snap.Payments),
		WeekCount:        len(snap.Weeks),
		ServerTime:       time.Now().UTC().Format(time.RFC3339),
		SinceParam:       since,
	}

	s.metrics.IncrSyncPull("success")
	s.logger.Info("sync pull served",
		zap.String("user_id", userID),
		zap.Int("transactions", snap.DebugInfo.TransactionCount),
		zap.Int("payments", snap.DebugInfo.PaymentCount),
		zap.Int("weeks", snap.DebugInfo.WeekCount),
	)
	return snap, nil
}

// Push accepts a batch of client mutations and acknowledges it. The
// batch is validated per item but not persisted; merge logic is a
// planned extension and the per-item result slice is the seam for it.
func (s *FinanceService) Push(ctx context.Context, userID string, req *domain.SyncPushRequest) (*domain.SyncPushAck, error) {
	_, span := financeTracer.Start(ctx, "FinanceService.Push")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("items", len(req.Items)))

	s.metrics.IncrSyncPush()

	results := make([]domain.SyncPushResult, 0, len(req.Items))
	for _, item := range req.Items {
		res := domain.SyncPushResult{EntityType: item.EntityType, ID: item.ID}
		switch {
		case item.EntityType != domain.SyncEntityTransaction &&
			item.EntityType != domain.SyncEntityPayment &&
			item.EntityType != domain.SyncEntityWeek:
			res.Outcome = domain.OutcomeRejected
			res.Reason = "unknown entity type"
		case item.ID == "":
			res.Outcome = domain.OutcomeRejected
			res.Reason = "missing id"
		case item.LastModified.IsZero():
			res.Outcome = domain.OutcomeRejected
			res.Reason = "missing last_modified"
		default:
			res.Outcome = domain.OutcomeAccepted
		}
		s.metrics.IncrSyncPushItem(res.Outcome)
		results = append(results, res)
	}

	s.logger.Info("sync push acknowledged",
		zap.String("user_id", userID),
		zap.Int("items", len(req.Items)),
	)
	return &domain.SyncPushAck{Status: "sync complete", Results: results}, nil
}
