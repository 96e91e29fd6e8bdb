// Package domain defines the core business entities for Finly.
// These models are independent of the HTTP layer and the storage
// engine and represent the canonical data structures used throughout
// the service.
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Enumerations
// ============================================================

// TransactionType is the nature of a transaction.
type TransactionType string

const (
	TypeIncome  TransactionType = "INCOME"
	TypeExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Display returns the human-readable label for t.
func (t TransactionType) Display() string {
	switch t {
	case TypeIncome:
		return "Income"
	case TypeExpense:
		return "Expense"
	}
	return string(t)
}

// PaymentMethod is how money moved (or is expected to move).
type PaymentMethod string

const (
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodOther    PaymentMethod = "OTHER"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodTransfer, MethodCash, MethodCard, MethodOther:
		return true
	}
	return false
}

// Display returns the human-readable label for m.
func (m PaymentMethod) Display() string {
	switch m {
	case MethodTransfer:
		return "Transfer"
	case MethodCash:
		return "Cash"
	case MethodCard:
		return "Card"
	case MethodOther:
		return "Other"
	}
	return string(m)
}

// PaymentStatus is the lifecycle state of a scheduled payment.
// PAID is terminal in the normal flow.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
)

// Display returns the human-readable label for s.
func (s PaymentStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPaid:
		return "Paid"
	}
	return string(s)
}

// ============================================================
// Entities
// ============================================================

// Transaction is a single income or expense record. Amounts are
// fixed-point decimals with two fractional digits; dates are calendar
// dates in YYYY-MM-DD form. A transaction may reference at most one
// scheduled payment via LinkedPayment; the reference is cleared when
// the payment is soft-deleted, never cascaded.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Counterparty  string          `json:"counterparty"`
	Description   string          `json:"description"`
	Method        PaymentMethod   `json:"method"`
	LinkedPayment *string         `json:"linked_payment"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     *time.Time      `json:"deleted_at"`
}

// ScheduledPayment is a planned outgoing payment. PaidAt is set
// exactly when the status transitions to PAID. ExpectedMethod is
// advisory and becomes the settlement transaction's method when valid.
type ScheduledPayment struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user"`
	Payee          string          `json:"payee"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	Status         PaymentStatus   `json:"status"`
	PaidAt         *time.Time      `json:"paid_at"`
	Notes          string          `json:"notes"`
	ExpectedMethod string          `json:"expected_method"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at"`
}

// WeeklyPeriod is a budgeting week anchored at its start date.
// (UserID, WeekStartDate) is unique per owner.
type WeeklyPeriod struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user"`
	WeekStartDate  string          `json:"week_start_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at"`
}

// User is an account holder. Every finance entity is owned by exactly
// one user and all queries are scoped to the owner.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ============================================================
// Settlement
// ============================================================

// SettlementTransaction derives the expense transaction recorded when
// a scheduled payment is settled. The returned transaction carries no
// ID; the store assigns one on insert. The payment's expected method
// is used when it names a known method, otherwise OTHER.
func SettlementTransaction(p *ScheduledPayment, now time.Time) *Transaction {
	method := PaymentMethod(p.ExpectedMethod)
	if !method.Valid() {
		method = MethodOther
	}

	desc := "Payment for " + p.Payee
	if p.Notes != "" {
		desc += ". Notes: " + p.Notes
	}

	linked := p.ID
	return &Transaction{
		UserID:        p.UserID,
		Type:          TypeExpense,
		Amount:        p.Amount,
		Date:          now.Format("2006-01-02"),
		Counterparty:  p.Payee,
		Description:   desc,
		Method:        method,
		LinkedPayment: &linked,
	}
}

// ============================================================
// Create / patch payloads
// ============================================================

// TransactionCreate is the payload for creating a transaction. The
// owner is always stamped from the authenticated caller; any user
// field in the request body is ignored.
type TransactionCreate struct {
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Counterparty  string          `json:"counterparty"`
	Description   string          `json:"description"`
	Method        PaymentMethod   `json:"method"`
	LinkedPayment *string         `json:"linked_payment"`
}

// TransactionPatch is a partial update; nil fields are left unchanged.
type TransactionPatch struct {
	Type          *TransactionType `json:"type"`
	Amount        *decimal.Decimal `json:"amount"`
	Date          *string          `json:"date"`
	Counterparty  *string          `json:"counterparty"`
	Description   *string          `json:"description"`
	Method        *PaymentMethod   `json:"method"`
	LinkedPayment *string          `json:"linked_payment"`
}

// PaymentCreate is the payload for creating a scheduled payment.
// Payments always start PENDING.
type PaymentCreate struct {
	Payee          string          `json:"payee"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	Notes          string          `json:"notes"`
	ExpectedMethod string          `json:"expected_method"`
}

// PaymentPatch is a partial update; nil fields are left unchanged.
// Status and paid_at are not patchable — they only change through
// settlement.
type PaymentPatch struct {
	Payee          *string          `json:"payee"`
	Amount         *decimal.Decimal `json:"amount"`
	DueDate        *string          `json:"due_date"`
	Notes          *string          `json:"notes"`
	ExpectedMethod *string          `json:"expected_method"`
}

// WeekCreate is the payload for creating a weekly period.
type WeekCreate struct {
	WeekStartDate  string          `json:"week_start_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// WeekPatch is a partial update; nil fields are left unchanged. The
// week start date is immutable — it is the natural key.
type WeekPatch struct {
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
}

// ============================================================
// Sync
// ============================================================

// SyncSnapshot is the pull response: the caller's full record set,
// soft-deleted rows included, so offline clients can reconcile
// deletions.
type SyncSnapshot struct {
	Transactions []Transaction      `json:"transactions"`
	Payments     []ScheduledPayment `json:"payments"`
	Weeks        []WeeklyPeriod     `json:"weeks"`
	DebugInfo    SyncDebugInfo      `json:"debug_info"`
}

// SyncDebugInfo echoes the request cursor and per-set counts so
// clients can debug sync drift.
type SyncDebugInfo struct {
	UserID           string `json:"user_id"`
	TransactionCount int    `json:"transaction_count"`
	PaymentCount     int    `json:"payment_count"`
	WeekCount        int    `json:"week_count"`
	ServerTime       string `json:"server_time"`
	SinceParam       string `json:"since_param"`
}

// Push item outcomes. Only accepted and rejected are produced today;
// applied and conflicted are reserved for a real merge strategy so it
// can land without a wire-format break.
const (
	OutcomeAccepted   = "accepted"
	OutcomeApplied    = "applied"
	OutcomeConflicted = "conflicted"
	OutcomeRejected   = "rejected"
)

// Push entity types.
const (
	SyncEntityTransaction = "transaction"
	SyncEntityPayment     = "payment"
	SyncEntityWeek        = "week"
)

// SyncPushItem is one client-side mutation: a create, update, or
// soft-delete of a single entity, timestamped with the client's last
// modification time.
type SyncPushItem struct {
	EntityType   string          `json:"entity_type"`
	ID           string          `json:"id"`
	LastModified time.Time       `json:"last_modified"`
	Deleted      bool            `json:"deleted,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// SyncPushRequest is a batch of client mutations.
type SyncPushRequest struct {
	Items []SyncPushItem `json:"items"`
}

// SyncPushResult is the per-item acknowledgement.
type SyncPushResult struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
}

// SyncPushAck is the push response.
type SyncPushAck struct {
	Status  string           `json:"status"`
	Results []SyncPushResult `json:"results"`
}

// ============================================================
// Metrics API response
// ============================================================

// SyncMetrics is returned by GET /v1/metrics/sync.
type SyncMetrics struct {
	SettlementsTotal    float64 `json:"settlements_total"`
	SettlementConflicts float64 `json:"settlement_conflicts"`
	PullsTotal          float64 `json:"pulls_total"`
	PushesTotal         float64 `json:"pushes_total"`
	PushItemsAccepted   float64 `json:"push_items_accepted"`
	PushItemsRejected   float64 `json:"push_items_rejected"`
	RequestsTotal       float64 `json:"requests_total"`
	RequestErrorRate    float64 `json:"request_error_rate"`
}

// ============================================================
// Auth API request/response types
// ============================================================

// RegisterRequest is the body for POST /v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
}
