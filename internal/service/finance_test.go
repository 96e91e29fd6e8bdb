package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/infra/memstore"
	"github.com/finlyapp/finly-api/internal/infra/observability"
	"github.com/finlyapp/finly-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestService() *service.FinanceService {
	return service.NewFinanceService(memstore.New(), observability.NewMetrics(), zap.NewNop(), 10)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const (
	alice = "11111111-1111-1111-1111-111111111111"
	bob   = "22222222-2222-2222-2222-222222222222"
)

// --- Settlement ---

func TestMarkPaid_Success(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee:   "Internet Provider",
		Amount:  dec("50.00"),
		DueDate: "2026-09-07",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	paid, expense, err := svc.MarkPaid(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if paid.Status != domain.StatusPaid {
		t.Errorf("expected status PAID, got %s", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}
	if !expense.Amount.Equal(dec("50.00")) {
		t.Errorf("expected amount 50.00, got %s", expense.Amount)
	}
	if expense.Counterparty != "Internet Provider" {
		t.Errorf("expected counterparty Internet Provider, got %s", expense.Counterparty)
	}
	if expense.Type != domain.TypeExpense {
		t.Errorf("expected type EXPENSE, got %s", expense.Type)
	}
	if expense.LinkedPayment == nil || *expense.LinkedPayment != p.ID {
		t.Error("expected transaction to link back to the payment")
	}
}

func TestMarkPaid_SecondCallConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Rent", Amount: dec("900.00"), DueDate: "2026-09-01",
	})

	if _, _, err := svc.MarkPaid(ctx, alice, p.ID); err != nil {
		t.Fatalf("first mark paid: %v", err)
	}

	_, _, err := svc.MarkPaid(ctx, alice, p.ID)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on second settle, got %v", err)
	}

	ts, _ := svc.ListTransactions(ctx, alice)
	if len(ts) != 1 {
		t.Fatalf("expected exactly one linked transaction, got %d", len(ts))
	}
}

func TestMarkPaid_ConcurrentRace(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Electric Co", Amount: dec("75.50"), DueDate: "2026-09-03",
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.MarkPaid(ctx, alice, p.ID)
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		var conflict *domain.ErrConflict
		switch {
		case err == nil:
			successes++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected 1 success and 1 conflict, got %d and %d", successes, conflicts)
	}

	ts, _ := svc.ListTransactions(ctx, alice)
	if len(ts) != 1 {
		t.Fatalf("expected exactly one transaction after race, got %d", len(ts))
	}
}

func TestMarkPaid_DeletedPaymentNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Gym", Amount: dec("30.00"), DueDate: "2026-09-10",
	})
	if err := svc.DeletePayment(ctx, alice, p.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}

	_, _, err := svc.MarkPaid(ctx, alice, p.ID)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found for deleted payment, got %v", err)
	}
}

func TestMarkPaid_CrossOwnerNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Water Co", Amount: dec("20.00"), DueDate: "2026-09-05",
	})

	_, _, err := svc.MarkPaid(ctx, bob, p.ID)
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found for another owner's payment, got %v", err)
	}
}

func TestMarkPaid_DescriptionIncludesNotes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Landlord", Amount: dec("900.00"), DueDate: "2026-09-01",
		Notes: "September rent", ExpectedMethod: "TRANSFER",
	})

	_, expense, err := svc.MarkPaid(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	want := "Payment for Landlord. Notes: September rent"
	if expense.Description != want {
		t.Errorf("expected description %q, got %q", want, expense.Description)
	}
	if expense.Method != domain.MethodTransfer {
		t.Errorf("expected method TRANSFER, got %s", expense.Method)
	}
}

// --- Transactions ---

func TestCreateTransaction_Validation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   domain.TransactionCreate
	}{
		{"bad type", domain.TransactionCreate{Type: "TRANSFER", Amount: dec("10.00"), Date: "2026-09-01", Counterparty: "x"}},
		{"zero amount", domain.TransactionCreate{Type: domain.TypeIncome, Amount: dec("0"), Date: "2026-09-01", Counterparty: "x"}},
		{"negative amount", domain.TransactionCreate{Type: domain.TypeIncome, Amount: dec("-5.00"), Date: "2026-09-01", Counterparty: "x"}},
		{"amount too large", domain.TransactionCreate{Type: domain.TypeIncome, Amount: dec("10000000000"), Date: "2026-09-01", Counterparty: "x"}},
		{"bad date", domain.TransactionCreate{Type: domain.TypeIncome, Amount: dec("10.00"), Date: "01/09/2026", Counterparty: "x"}},
		{"missing counterparty", domain.TransactionCreate{Type: domain.TypeIncome, Amount: dec("10.00"), Date: "2026-09-01"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, alice, &tc.in)
			var validation *domain.ErrValidation
			if !errors.As(err, &validation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateTransaction_LinkedPaymentMustExist(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	ghost := uuid.NewString()
	_, err := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("10.00"), Date: "2026-09-01",
		Counterparty: "x", LinkedPayment: &ghost,
	})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found for dangling linked payment, got %v", err)
	}
}

func TestCreateTransaction_SecondLinkToPaymentConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, err := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Internet Provider", Amount: dec("50.00"), DueDate: "2026-09-07",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, _, err := svc.MarkPaid(ctx, alice, p.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	_, err = svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("50.00"), Date: "2026-09-07",
		Counterparty: "Internet Provider", LinkedPayment: &p.ID,
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict linking a second transaction, got %v", err)
	}

	ts, _ := svc.ListTransactions(ctx, alice)
	linked := 0
	for _, tx := range ts {
		if tx.LinkedPayment != nil && *tx.LinkedPayment == p.ID {
			linked++
		}
	}
	if linked != 1 {
		t.Fatalf("expected exactly 1 transaction linked to the payment, got %d", linked)
	}
}

func TestUpdateTransaction_SecondLinkToPaymentConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Rent", Amount: dec("900.00"), DueDate: "2026-09-07",
	})
	svc.MarkPaid(ctx, alice, p.ID)

	tx, err := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("5.00"), Date: "2026-09-01", Counterparty: "Cafe",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	_, err = svc.UpdateTransaction(ctx, alice, tx.ID, &domain.TransactionPatch{LinkedPayment: &p.ID})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict relinking a settled payment, got %v", err)
	}
}

func TestMarkPaid_ManuallyLinkedPaymentConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "Gym", Amount: dec("30.00"), DueDate: "2026-09-07",
	})
	if _, err := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("30.00"), Date: "2026-09-05",
		Counterparty: "Gym", LinkedPayment: &p.ID,
	}); err != nil {
		t.Fatalf("create linked transaction: %v", err)
	}

	_, _, err := svc.MarkPaid(ctx, alice, p.ID)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict settling a manually linked payment, got %v", err)
	}

	ts, _ := svc.ListTransactions(ctx, alice)
	if len(ts) != 1 {
		t.Fatalf("expected no settlement transaction created, got %d transactions", len(ts))
	}
}

func TestUpdateTransaction_LinkedPaymentCrossOwnerNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	theirs, _ := svc.CreatePayment(ctx, bob, &domain.PaymentCreate{
		Payee: "Electric Co", Amount: dec("75.00"), DueDate: "2026-09-07",
	})
	tx, _ := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("75.00"), Date: "2026-09-01", Counterparty: "Electric Co",
	})

	_, err := svc.UpdateTransaction(ctx, alice, tx.ID, &domain.TransactionPatch{LinkedPayment: &theirs.ID})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found linking another user's payment, got %v", err)
	}

	got, _ := svc.GetTransaction(ctx, alice, tx.ID)
	if got.LinkedPayment != nil {
		t.Fatal("expected the rejected link to leave the transaction unlinked")
	}
}

func TestSoftDeleteTransaction_HiddenFromList(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tx, _ := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("12.30"), Date: "2026-09-01", Counterparty: "Cafe",
	})
	if err := svc.DeleteTransaction(ctx, alice, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ts, _ := svc.ListTransactions(ctx, alice)
	if len(ts) != 0 {
		t.Fatalf("expected deleted transaction hidden from list, got %d", len(ts))
	}

	var notFound *domain.ErrNotFound
	if _, err := svc.GetTransaction(ctx, alice, tx.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	// Still visible to pull
	snap, err := svc.Pull(ctx, alice, "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(snap.Transactions) != 1 {
		t.Fatalf("expected pull to include deleted row, got %d", len(snap.Transactions))
	}
	if snap.Transactions[0].DeletedAt == nil {
		t.Error("expected deleted_at set on pulled row")
	}
}

func TestGetTransaction_CrossOwnerNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tx, _ := svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeIncome, Amount: dec("100.00"), Date: "2026-09-01", Counterparty: "Employer",
	})

	var notFound *domain.ErrNotFound
	if _, err := svc.GetTransaction(ctx, bob, tx.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected not found for cross-owner read, got %v", err)
	}
}

func TestDeletePayment_ClearsLinkedReference(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p, _ := svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "ISP", Amount: dec("50.00"), DueDate: "2026-09-07",
	})
	_, expense, err := svc.MarkPaid(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if err := svc.DeletePayment(ctx, alice, p.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}

	// The settled transaction survives, with the reference detached.
	got, err := svc.GetTransaction(ctx, alice, expense.ID)
	if err != nil {
		t.Fatalf("get transaction after payment delete: %v", err)
	}
	if got.LinkedPayment != nil {
		t.Error("expected linked_payment cleared after payment delete")
	}
}

// --- Weekly periods ---

func TestCreateWeek_DuplicateConflicts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	in := &domain.WeekCreate{WeekStartDate: "2026-08-31", OpeningBalance: dec("500.00")}
	if _, err := svc.CreateWeek(ctx, alice, in); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.CreateWeek(ctx, alice, in)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict on duplicate week, got %v", err)
	}

	// Same week for a different owner is fine
	if _, err := svc.CreateWeek(ctx, bob, in); err != nil {
		t.Fatalf("create for other owner: %v", err)
	}
	// A different week for the same owner is fine
	if _, err := svc.CreateWeek(ctx, alice, &domain.WeekCreate{WeekStartDate: "2026-09-07", OpeningBalance: dec("600.00")}); err != nil {
		t.Fatalf("create next week: %v", err)
	}
}

// --- Sync ---

func TestPull_RequiresSince(t *testing.T) {
	svc := newTestService()

	_, err := svc.Pull(context.Background(), alice, "")
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error without since, got %v", err)
	}
}

func TestPull_FullSnapshotWithDebugInfo(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	svc.CreateTransaction(ctx, alice, &domain.TransactionCreate{
		Type: domain.TypeIncome, Amount: dec("100.00"), Date: "2026-09-01", Counterparty: "Employer",
	})
	svc.CreatePayment(ctx, alice, &domain.PaymentCreate{
		Payee: "ISP", Amount: dec("50.00"), DueDate: "2026-09-07",
	})
	svc.CreateWeek(ctx, alice, &domain.WeekCreate{WeekStartDate: "2026-08-31", OpeningBalance: dec("500.00")})

	// Another user's data never leaks into the snapshot
	svc.CreateTransaction(ctx, bob, &domain.TransactionCreate{
		Type: domain.TypeExpense, Amount: dec("9.99"), Date: "2026-09-01", Counterparty: "Stream Co",
	})

	snap, err := svc.Pull(ctx, alice, "2026-08-01T00:00:00Z")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(snap.Transactions) != 1 || len(snap.Payments) != 1 || len(snap.Weeks) != 1 {
		t.Fatalf("unexpected snapshot sizes: %d/%d/%d",
			len(snap.Transactions), len(snap.Payments), len(snap.Weeks))
	}
	di := snap.DebugInfo
	if di.SinceParam != "2026-08-01T00:00:00Z" {
		t.Errorf("expected since echoed back, got %q", di.SinceParam)
	}
	if di.UserID != alice || di.TransactionCount != 1 || di.PaymentCount != 1 || di.WeekCount != 1 {
		t.Errorf("unexpected debug info: %+v", di)
	}
	if di.ServerTime == "" {
		t.Error("expected server time in debug info")
	}
}

func TestPush_AcknowledgesBatch(t *testing.T) {
	svc := newTestService()

	ack, err := svc.Push(context.Background(), alice, &domain.SyncPushRequest{
		Items: []domain.SyncPushItem{
			{EntityType: domain.SyncEntityTransaction, ID: uuid.NewString(), LastModified: time.Now()},
			{EntityType: domain.SyncEntityPayment, ID: uuid.NewString(), LastModified: time.Now()},
			{EntityType: "category", ID: uuid.NewString(), LastModified: time.Now()},
			{EntityType: domain.SyncEntityWeek, LastModified: time.Now()},
		},
	})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if ack.Status != "sync complete" {
		t.Errorf("expected status 'sync complete', got %q", ack.Status)
	}
	if len(ack.Results) != 4 {
		t.Fatalf("expected 4 per-item results, got %d", len(ack.Results))
	}
	if ack.Results[0].Outcome != domain.OutcomeAccepted || ack.Results[1].Outcome != domain.OutcomeAccepted {
		t.Error("expected valid items accepted")
	}
	if ack.Results[2].Outcome != domain.OutcomeRejected {
		t.Error("expected unknown entity type rejected")
	}
	if ack.Results[3].Outcome != domain.OutcomeRejected {
		t.Error("expected item without id rejected")
	}
}
