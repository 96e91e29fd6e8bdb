// Package port defines the interfaces (ports) for external
// dependencies. Following hexagonal architecture, these ports decouple
// the domain/service layer from concrete implementations.
//
// Every finance query method takes the owner's user id as a mandatory
// parameter and applies the filter internally — owner scoping is never
// left to the caller.
package port

import (
	"context"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
)

// FinanceStore defines all data operations for transactions, scheduled
// payments, and weekly periods. Implemented by the Postgres adapter
// (or any other persistence layer).
//
// List and Get exclude soft-deleted rows. Update targets a known id
// and intentionally does not filter on deleted_at, so sync clients can
// revive a record. Snapshot* include soft-deleted rows; they are the
// seam where an incremental since-filter can replace the full snapshot
// without changing the pull response shape.
//
// At most one transaction may reference a given payment via
// linked_payment. CreateTransaction, UpdateTransaction, and
// SettlePayment return ErrConflict when a second link is attempted.
type FinanceStore interface {
	// Transactions
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, userID string, in *domain.TransactionCreate) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, patch *domain.TransactionPatch) (*domain.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, userID, id string) error

	// Scheduled payments
	ListPayments(ctx context.Context, userID string) ([]domain.ScheduledPayment, error)
	GetPayment(ctx context.Context, userID, id string) (*domain.ScheduledPayment, error)
	CreatePayment(ctx context.Context, userID string, in *domain.PaymentCreate) (*domain.ScheduledPayment, error)
	UpdatePayment(ctx context.Context, userID, id string, patch *domain.PaymentPatch) (*domain.ScheduledPayment, error)
	// SoftDeletePayment also clears linked_payment on any transaction
	// referencing the payment; the transaction itself survives.
	SoftDeletePayment(ctx context.Context, userID, id string) error

	// SettlePayment transitions a PENDING payment to PAID and inserts
	// the linked expense transaction in a single storage transaction.
	// The payment row is locked for the duration so concurrent calls
	// serialize: exactly one succeeds, the rest get ErrConflict.
	SettlePayment(ctx context.Context, userID, id string, now time.Time) (*domain.ScheduledPayment, *domain.Transaction, error)

	// Weekly periods
	ListWeeks(ctx context.Context, userID string) ([]domain.WeeklyPeriod, error)
	GetWeek(ctx context.Context, userID, id string) (*domain.WeeklyPeriod, error)
	CreateWeek(ctx context.Context, userID string, in *domain.WeekCreate) (*domain.WeeklyPeriod, error)
	UpdateWeek(ctx context.Context, userID, id string, patch *domain.WeekPatch) (*domain.WeeklyPeriod, error)
	SoftDeleteWeek(ctx context.Context, userID, id string) error

	// Sync snapshots — include soft-deleted rows
	SnapshotTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	SnapshotPayments(ctx context.Context, userID string) ([]domain.ScheduledPayment, error)
	SnapshotWeeks(ctx context.Context, userID string) ([]domain.WeeklyPeriod, error)

	// Ping reports storage reachability for health checks.
	Ping(ctx context.Context) error
}

// UserStore defines data operations for account holders.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
