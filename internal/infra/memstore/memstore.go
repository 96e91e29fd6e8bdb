// Package memstore is an in-memory implementation of the finance and
// user store ports. It backs the test suites and local development
// without a database; a single mutex serializes all mutations, which
// gives settlement the same one-winner guarantee the SQL row lock
// provides.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"

	"github.com/google/uuid"
)

// Store holds all records in maps keyed by id.
type Store struct {
	mu           sync.Mutex
	transactions map[string]*domain.Transaction
	payments     map[string]*domain.ScheduledPayment
	weeks        map[string]*domain.WeeklyPeriod
	users        map[string]*domain.User

	// PingErr, when set, is returned by Ping. Lets tests exercise the
	// readiness path.
	PingErr error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		transactions: map[string]*domain.Transaction{},
		payments:     map[string]*domain.ScheduledPayment{},
		weeks:        map[string]*domain.WeeklyPeriod{},
		users:        map[string]*domain.User{},
	}
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(_ context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Transaction{}
	for _, t := range s.transactions {
		if t.UserID == userID && t.DeletedAt == nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	cp := *t
	return &cp, nil
}

// paymentLinked reports whether any transaction other than excludeID
// already references the payment. Callers must hold s.mu.
func (s *Store) paymentLinked(paymentID, excludeID string) bool {
	for _, t := range s.transactions {
		if t.ID != excludeID && t.LinkedPayment != nil && *t.LinkedPayment == paymentID {
			return true
		}
	}
	return false
}

func (s *Store) CreateTransaction(_ context.Context, userID string, in *domain.TransactionCreate) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.LinkedPayment != nil && s.paymentLinked(*in.LinkedPayment, "") {
		return nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
	}
	now := time.Now()
	t := &domain.Transaction{
		ID: uuid.NewString(), UserID: userID, Type: in.Type, Amount: in.Amount,
		Date: in.Date, Counterparty: in.Counterparty, Description: in.Description,
		Method: in.Method, LinkedPayment: in.LinkedPayment,
		CreatedAt: now, UpdatedAt: now,
	}
	s.transactions[t.ID] = t
	cp := *t
	return &cp, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, patch *domain.TransactionPatch) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.Counterparty != nil {
		t.Counterparty = *patch.Counterparty
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Method != nil {
		t.Method = *patch.Method
	}
	if patch.LinkedPayment != nil {
		if s.paymentLinked(*patch.LinkedPayment, t.ID) {
			return nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
		}
		t.LinkedPayment = patch.LinkedPayment
	}
	t.UpdatedAt = time.Now()
	cp := *t
	return &cp, nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok || t.UserID != userID || t.DeletedAt != nil {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	now := time.Now()
	t.DeletedAt = &now
	t.UpdatedAt = now
	return nil
}

// ============================================================
// Scheduled payments
// ============================================================

func (s *Store) ListPayments(_ context.Context, userID string) ([]domain.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ScheduledPayment{}
	for _, p := range s.payments {
		if p.UserID == userID && p.DeletedAt == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) GetPayment(_ context.Context, userID, id string) (*domain.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.UserID != userID || p.DeletedAt != nil {
		return nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (s *Store) CreatePayment(_ context.Context, userID string, in *domain.PaymentCreate) (*domain.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p := &domain.ScheduledPayment{
		ID: uuid.NewString(), UserID: userID, Payee: in.Payee, Amount: in.Amount,
		DueDate: in.DueDate, Status: domain.StatusPending,
		Notes: in.Notes, ExpectedMethod: in.ExpectedMethod,
		CreatedAt: now, UpdatedAt: now,
	}
	s.payments[p.ID] = p
	cp := *p
	return &cp, nil
}

func (s *Store) UpdatePayment(_ context.Context, userID, id string, patch *domain.PaymentPatch) (*domain.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	if patch.Payee != nil {
		p.Payee = *patch.Payee
	}
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.DueDate != nil {
		p.DueDate = *patch.DueDate
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.ExpectedMethod != nil {
		p.ExpectedMethod = *patch.ExpectedMethod
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *Store) SoftDeletePayment(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.UserID != userID || p.DeletedAt != nil {
		return &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	now := time.Now()
	p.DeletedAt = &now
	p.UpdatedAt = now
	for _, t := range s.transactions {
		if t.UserID == userID && t.LinkedPayment != nil && *t.LinkedPayment == id {
			t.LinkedPayment = nil
			t.UpdatedAt = now
		}
	}
	return nil
}

func (s *Store) SettlePayment(_ context.Context, userID, id string, now time.Time) (*domain.ScheduledPayment, *domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.UserID != userID || p.DeletedAt != nil {
		return nil, nil, &domain.ErrNotFound{Resource: "scheduled payment", ID: id}
	}
	if p.Status == domain.StatusPaid {
		return nil, nil, &domain.ErrConflict{Message: "Payment is already marked as paid"}
	}
	if s.paymentLinked(id, "") {
		return nil, nil, &domain.ErrConflict{Message: "A transaction is already linked to this payment"}
	}

	expense := domain.SettlementTransaction(p, now)
	expense.ID = uuid.NewString()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	s.transactions[expense.ID] = expense

	p.Status = domain.StatusPaid
	p.PaidAt = &now
	p.UpdatedAt = now

	cp, ce := *p, *expense
	return &cp, &ce, nil
}

// ============================================================
// Weekly periods
// ============================================================

func (s *Store) ListWeeks(_ context.Context, userID string) ([]domain.WeeklyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.WeeklyPeriod{}
	for _, w := range s.weeks {
		if w.UserID == userID && w.DeletedAt == nil {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *Store) GetWeek(_ context.Context, userID, id string) (*domain.WeeklyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok || w.UserID != userID || w.DeletedAt != nil {
		return nil, &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	cp := *w
	return &cp, nil
}

func (s *Store) CreateWeek(_ context.Context, userID string, in *domain.WeekCreate) (*domain.WeeklyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.weeks {
		if w.UserID == userID && w.WeekStartDate == in.WeekStartDate {
			return nil, &domain.ErrConflict{Message: "A weekly period already exists for " + in.WeekStartDate}
		}
	}
	now := time.Now()
	w := &domain.WeeklyPeriod{
		ID: uuid.NewString(), UserID: userID,
		WeekStartDate: in.WeekStartDate, OpeningBalance: in.OpeningBalance,
		CreatedAt: now, UpdatedAt: now,
	}
	s.weeks[w.ID] = w
	cp := *w
	return &cp, nil
}

func (s *Store) UpdateWeek(_ context.Context, userID, id string, patch *domain.WeekPatch) (*domain.WeeklyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok || w.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	if patch.OpeningBalance != nil {
		w.OpeningBalance = *patch.OpeningBalance
	}
	w.UpdatedAt = time.Now()
	cp := *w
	return &cp, nil
}

func (s *Store) SoftDeleteWeek(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok || w.UserID != userID || w.DeletedAt != nil {
		return &domain.ErrNotFound{Resource: "weekly period", ID: id}
	}
	now := time.Now()
	w.DeletedAt = &now
	w.UpdatedAt = now
	return nil
}

// ============================================================
// Snapshots (soft-deleted rows included)
// ============================================================

func (s *Store) SnapshotTransactions(_ context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Transaction{}
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *Store) SnapshotPayments(_ context.Context, userID string) ([]domain.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ScheduledPayment{}
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) SnapshotWeeks(_ context.Context, userID string) ([]domain.WeeklyPeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.WeeklyPeriod{}
	for _, w := range s.weeks {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *Store) Ping(_ context.Context) error {
	return s.PingErr
}

// ============================================================
// Users
// ============================================================

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, &domain.ErrConflict{Message: "An account with this email already exists"}
		}
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}
