// Package service provides the business logic layer (use cases).
// FinanceService handles transactions, scheduled payments, weekly
// periods, and sync; AuthService handles accounts and tokens.
package service

import (
	"context"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/infra/observability"
	"github.com/finlyapp/finly-api/internal/infra/resilience"
	"github.com/finlyapp/finly-api/internal/port"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var financeTracer = otel.Tracer("service/finance")

// FinanceService orchestrates all finance operations via the store.
type FinanceService struct {
	store   port.FinanceStore
	metrics *observability.Metrics
	logger  *zap.Logger

	// Pull reads the caller's entire record set in one request, so the
	// snapshot path is fenced off: a breaker against a struggling
	// database and a bulkhead capping concurrent pulls.
	snapshotBreaker *gobreaker.CircuitBreaker
	pulls           *resilience.Bulkhead
}

// NewFinanceService creates a new finance service.
func NewFinanceService(store port.FinanceStore, metrics *observability.Metrics, logger *zap.Logger, maxConcurrentPulls int) *FinanceService {
	return &FinanceService{
		store:           store,
		metrics:         metrics,
		logger:          logger,
		snapshotBreaker: resilience.NewCircuitBreaker("sync-snapshot"),
		pulls:           resilience.NewBulkhead(maxConcurrentPulls),
	}
}

// Ready reports whether the storage layer is reachable. Used by the
// readiness probe.
func (s *FinanceService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SyncMetrics returns the current sync counter snapshot.
func (s *FinanceService) SyncMetrics() *domain.SyncMetrics {
	return s.metrics.GetSyncSnapshot()
}

// ============================================================
// Shared validation
// ============================================================

const dateLayout = "2006-01-02"

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// maxAmount is the exclusive upper bound for money values, matching
// the NUMERIC(12,2) columns (10 integer digits).
var maxAmount = decimal.New(1, 10)

func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Exponent() >= -2 && d.LessThan(maxAmount)
}
