package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"capsule-machine/internal/model"
	apperrors "capsule-machine/pkg/errors"
)

func TestLedger_LazyCreation(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	balance, err := mem.GetBalance(ctx, "new")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("unseen participant balance = %d, want 0", balance)
	}
}

func TestLedger_TryDebitInsufficient(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.TryDebit(ctx, "p1", 1); err != apperrors.ErrInsufficientCredits {
		t.Fatalf("got %v, want ErrInsufficientCredits", err)
	}

	if _, err := mem.Credit(ctx, "p1", 2); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := mem.TryDebit(ctx, "p1", 3); err != apperrors.ErrInsufficientCredits {
		t.Fatalf("over-debit: got %v, want ErrInsufficientCredits", err)
	}
	if balance, _ := mem.GetBalance(ctx, "p1"); balance != 2 {
		t.Fatalf("failed debit mutated balance to %d", balance)
	}
}

// Concurrent debits and credits on one participant must account exactly:
// final balance = credits granted - successful debits, and no debit may
// succeed against credits another debit already consumed.
func TestLedger_ConcurrentAccounting(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	const (
		creditOps  = 50
		creditEach = 2
		debitOps   = 200
	)

	var wg sync.WaitGroup
	var successfulDebits atomic.Int64
	for i := 0; i < creditOps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mem.Credit(ctx, "p1", creditEach); err != nil {
				t.Errorf("credit: %v", err)
			}
		}()
	}
	for i := 0; i < debitOps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			balance, err := mem.TryDebit(ctx, "p1", 1)
			switch {
			case err == nil:
				successfulDebits.Add(1)
				if balance < 0 {
					t.Errorf("observed negative balance %d", balance)
				}
			case errors.Is(err, apperrors.ErrInsufficientCredits):
			default:
				t.Errorf("debit: %v", err)
			}
		}()
	}
	wg.Wait()

	final, err := mem.GetBalance(ctx, "p1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	want := creditOps*creditEach - int(successfulDebits.Load())
	if final != want {
		t.Fatalf("final balance = %d, want %d (credits %d, successful debits %d)",
			final, want, creditOps*creditEach, successfulDebits.Load())
	}
	if final < 0 {
		t.Fatal("final balance is negative")
	}
}

func TestClaimCode_ExactlyOnce(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	err := mem.InsertCode(ctx, &model.RedemptionCode{
		Code:        "ONCE99",
		CreditValue: 5,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("insert code: %v", err)
	}

	const attempts = 64
	var succeeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := mem.ClaimCode(ctx, "ONCE99", "p1", time.Now())
			if err == nil {
				succeeded.Add(1)
			} else if !errors.Is(err, apperrors.ErrCodeAlreadyUsed) {
				t.Errorf("claim %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Fatalf("%d claims succeeded, want exactly 1", succeeded.Load())
	}
}

func TestParticipantsIndependent(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Credit(ctx, "a", 3); err != nil {
		t.Fatalf("credit a: %v", err)
	}
	if _, err := mem.TryDebit(ctx, "a", 1); err != nil {
		t.Fatalf("debit a: %v", err)
	}

	balance, err := mem.GetBalance(ctx, "b")
	if err != nil {
		t.Fatalf("get balance b: %v", err)
	}
	if balance != 0 {
		t.Fatalf("participant b balance = %d, want 0", balance)
	}
}
