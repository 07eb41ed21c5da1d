package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"capsule-machine/internal/model"
	apperrors "capsule-machine/pkg/errors"
)

func issueCode(t *testing.T, env *testEnv, code string, value int) *model.RedemptionCode {
	t.Helper()
	rc, err := env.redemption.Issue(context.Background(), &model.IssueCodeRequest{
		Code:        code,
		CreditValue: value,
	})
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	return rc
}

func TestRedeem_CreditsBalanceOnce(t *testing.T) {
	env := newTestEnv(t)
	issueCode(t, env, "ABC123", 5)
	ctx := context.Background()

	balance, err := env.redemption.Redeem(ctx, "ABC123", "p1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}

	got, err := env.draw.GetBalance(ctx, "p1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if got != 5 {
		t.Errorf("stored balance = %d, want 5", got)
	}

	codes, err := env.redemption.ListCodes(ctx)
	if err != nil {
		t.Fatalf("list codes: %v", err)
	}
	if len(codes) != 1 || !codes[0].Used || codes[0].UsedBy != "p1" {
		t.Errorf("code state after redeem: %+v", codes[0])
	}

	// A client retry after a timeout must observe AlreadyUsed, not a
	// second credit, even from a different participant.
	if _, err := env.redemption.Redeem(ctx, "ABC123", "p2"); err != apperrors.ErrCodeAlreadyUsed {
		t.Fatalf("second redeem: got %v, want ErrCodeAlreadyUsed", err)
	}
	if got, _ := env.draw.GetBalance(ctx, "p2"); got != 0 {
		t.Errorf("p2 balance = %d, want 0", got)
	}
	if got, _ := env.draw.GetBalance(ctx, "p1"); got != 5 {
		t.Errorf("p1 balance = %d after retry, want 5", got)
	}
}

func TestRedeem_CaseNormalized(t *testing.T) {
	env := newTestEnv(t)
	issueCode(t, env, "abc123", 3)

	balance, err := env.redemption.Redeem(context.Background(), "  abc123 ", "p1")
	if err != nil {
		t.Fatalf("redeem lower-case input: %v", err)
	}
	if balance != 3 {
		t.Errorf("balance = %d, want 3", balance)
	}
}

func TestRedeem_InvalidCode(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.redemption.Redeem(context.Background(), "NOPE", "p1")
	if err != apperrors.ErrInvalidCode {
		t.Fatalf("got %v, want ErrInvalidCode", err)
	}
}

func TestRedeem_Expired(t *testing.T) {
	env := newTestEnv(t)
	past := time.Now().Add(-time.Minute)
	_, err := env.redemption.Issue(context.Background(), &model.IssueCodeRequest{
		Code:        "OLD42",
		CreditValue: 5,
		ExpiresAt:   &past,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := env.redemption.Redeem(context.Background(), "OLD42", "p1"); err != apperrors.ErrCodeExpired {
		t.Fatalf("got %v, want ErrCodeExpired", err)
	}
	if balance, _ := env.draw.GetBalance(context.Background(), "p1"); balance != 0 {
		t.Errorf("balance = %d after expired redeem, want 0", balance)
	}
}

func TestRedeem_ConcurrentSameCode(t *testing.T) {
	env := newTestEnv(t)
	issueCode(t, env, "RACE88", 7)
	ctx := context.Background()

	const attempts = 32
	var succeeded, alreadyUsed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.redemption.Redeem(ctx, "RACE88", "p1")
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, apperrors.ErrCodeAlreadyUsed):
				alreadyUsed.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 {
		t.Fatalf("%d redemptions succeeded, want exactly 1", succeeded.Load())
	}
	if alreadyUsed.Load() != attempts-1 {
		t.Fatalf("%d saw AlreadyUsed, want %d", alreadyUsed.Load(), attempts-1)
	}

	// The credit was applied exactly once.
	balance, err := env.draw.GetBalance(ctx, "p1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 7 {
		t.Fatalf("balance = %d, want 7", balance)
	}
}

func TestIssue_GeneratedCode(t *testing.T) {
	env := newTestEnv(t)

	rc, err := env.redemption.Issue(context.Background(), &model.IssueCodeRequest{CreditValue: 10})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(rc.Code) != codeLength {
		t.Errorf("generated code %q has length %d, want %d", rc.Code, len(rc.Code), codeLength)
	}
	for _, ch := range rc.Code {
		if !strings.ContainsRune(codeAlphabet, ch) {
			t.Errorf("generated code %q contains %q outside the alphabet", rc.Code, ch)
		}
	}
	if rc.Used {
		t.Error("freshly issued code marked used")
	}
}

func TestIssue_ExistingWithoutReissue(t *testing.T) {
	env := newTestEnv(t)
	issueCode(t, env, "DUP55", 5)

	_, err := env.redemption.Issue(context.Background(), &model.IssueCodeRequest{
		Code:        "DUP55",
		CreditValue: 9,
	})
	if !errors.Is(err, apperrors.ErrCodeExists) {
		t.Fatalf("got %v, want ErrCodeExists", err)
	}
}

func TestIssue_ReissueResetsCode(t *testing.T) {
	env := newTestEnv(t)
	issueCode(t, env, "AGAIN2", 5)
	ctx := context.Background()

	if _, err := env.redemption.Redeem(ctx, "AGAIN2", "p1"); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	rc, err := env.redemption.Issue(ctx, &model.IssueCodeRequest{
		Code:        "AGAIN2",
		CreditValue: 8,
		Reissue:     true,
	})
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if rc.Used || rc.UsedBy != "" || rc.UsedAt != nil {
		t.Errorf("reissued code not reset: %+v", rc)
	}
	if rc.CreditValue != 8 {
		t.Errorf("reissued credit value = %d, want 8", rc.CreditValue)
	}

	// The re-armed code is claimable again.
	balance, err := env.redemption.Redeem(ctx, "AGAIN2", "p2")
	if err != nil {
		t.Fatalf("redeem reissued code: %v", err)
	}
	if balance != 8 {
		t.Errorf("balance = %d, want 8", balance)
	}
}

func TestIssue_RejectsNonPositiveValue(t *testing.T) {
	env := newTestEnv(t)

	for _, value := range []int{0, -3} {
		if _, err := env.redemption.Issue(context.Background(), &model.IssueCodeRequest{CreditValue: value}); err == nil {
			t.Errorf("issue with credit value %d succeeded", value)
		}
	}
}
