package store

import (
	"context"
	"errors"
	"testing"

	"github.com/luckypool/luckypool-service/internal/cryptogram"
	"github.com/luckypool/luckypool-service/internal/domain"
)

func TestInsertAirdropIsOneShot(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := domain.AccountID("alice")

	code, err := repo.NewLuckyCode(ctx, account)
	if err != nil {
		t.Fatalf("NewLuckyCode: %v", err)
	}
	if code == domain.BannedLuckyCode {
		t.Fatal("minted the banned sentinel code")
	}

	record, err := repo.InsertAirdrop(ctx, account, nil, 1000, 10*domain.Token1, 0, code)
	if err != nil {
		t.Fatalf("InsertAirdrop: %v", err)
	}
	if record.Amount != 10*domain.Token1 || record.LuckyCode != code {
		t.Fatalf("unexpected log record: %+v", record)
	}

	if _, err := repo.InsertAirdrop(ctx, account, nil, 1001, 10*domain.Token1, 0, code); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second insert: got %v, want ErrAlreadyRegistered", err)
	}

	state, err := repo.GetAirdropState(ctx, account)
	if err != nil {
		t.Fatalf("GetAirdropState: %v", err)
	}
	if state.Claimable != 10*domain.Token1 || state.Claimed != 0 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestNewLuckyCodeIsStable(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := domain.AccountID("alice")

	first, err := repo.NewLuckyCode(ctx, account)
	if err != nil {
		t.Fatalf("NewLuckyCode: %v", err)
	}
	second, err := repo.NewLuckyCode(ctx, account)
	if err != nil {
		t.Fatalf("NewLuckyCode again: %v", err)
	}
	if first != second {
		t.Fatalf("code changed between calls: %d then %d", first, second)
	}

	resolved, err := repo.ResolveLuckyCode(ctx, domain.LuckyCodeToString(first))
	if err != nil {
		t.Fatalf("ResolveLuckyCode: %v", err)
	}
	if resolved == nil || *resolved != account {
		t.Fatalf("resolved %v, want %s", resolved, account)
	}
}

func TestResolveLuckyCodeUnknownOrMalformed(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if got, err := repo.ResolveLuckyCode(ctx, "!!!!!!!"); err != nil || got != nil {
		t.Fatalf("malformed code: got (%v, %v), want (nil, nil)", got, err)
	}
	if got, err := repo.ResolveLuckyCode(ctx, domain.LuckyCodeToString(12345)); err != nil || got != nil {
		t.Fatalf("unknown code: got (%v, %v), want (nil, nil)", got, err)
	}
}

func TestRedeemPrizeIdempotencyAndQuantity(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	prize := cryptogram.Prize{IssuerCode: 7, IssuedAt: 1000, ExpireOffset: 60, ClaimableAmount: 5, Quantity: 2}

	amount, err := repo.RedeemPrize(ctx, "alice", prize)
	if err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if amount != 5*domain.Token1 {
		t.Fatalf("credited %d, want %d", amount, 5*domain.Token1)
	}

	if _, err := repo.RedeemPrize(ctx, "alice", prize); !errors.Is(err, ErrPrizeAlreadyRedeemed) {
		t.Fatalf("repeat redemption: got %v, want ErrPrizeAlreadyRedeemed", err)
	}

	if _, err := repo.RedeemPrize(ctx, "bob", prize); err != nil {
		t.Fatalf("second account: %v", err)
	}
	if _, err := repo.RedeemPrize(ctx, "carol", prize); !errors.Is(err, ErrPrizeExhausted) {
		t.Fatalf("third account: got %v, want ErrPrizeExhausted", err)
	}

	// A different voucher with the same issuer is tracked independently.
	other := prize
	other.IssuedAt = 2000
	if _, err := repo.RedeemPrize(ctx, "carol", other); err != nil {
		t.Fatalf("distinct voucher: %v", err)
	}
}

func TestHarvestEnforcesBalance(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := domain.AccountID("alice")

	code, _ := repo.NewLuckyCode(ctx, account)
	if _, err := repo.InsertAirdrop(ctx, account, nil, 1000, 10*domain.Token1, 0, code); err != nil {
		t.Fatalf("InsertAirdrop: %v", err)
	}

	if _, _, err := repo.Harvest(ctx, account, 1001, 11*domain.Token1); !errors.Is(err, ErrInsufficientClaimable) {
		t.Fatalf("over-harvest: got %v, want ErrInsufficientClaimable", err)
	}

	state, record, err := repo.Harvest(ctx, account, 1001, 4*domain.Token1)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if state.Claimable != 6*domain.Token1 || state.Claimed != 4*domain.Token1 {
		t.Fatalf("unexpected state after harvest: %+v", state)
	}
	if record.Amount != 4*domain.Token1 {
		t.Fatalf("unexpected log amount %d", record.Amount)
	}

	if _, _, err := repo.Harvest(ctx, "nobody", 1001, domain.Token1); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("unknown account: got %v, want ErrStateNotFound", err)
	}
}

func TestBannedAccountIsRefused(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := domain.AccountID("alice")

	code, _ := repo.NewLuckyCode(ctx, account)
	if _, err := repo.InsertAirdrop(ctx, account, nil, 1000, 10*domain.Token1, 0, code); err != nil {
		t.Fatalf("InsertAirdrop: %v", err)
	}
	repo.Ban(account)

	if _, _, err := repo.Harvest(ctx, account, 1001, domain.Token1); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("harvest while banned: got %v, want ErrAccountBanned", err)
	}
	if _, _, err := repo.GrantPrize(ctx, account, 1001, domain.Token1, 0); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("grant while banned: got %v, want ErrAccountBanned", err)
	}
	if got, _ := repo.ResolveLuckyCode(ctx, domain.LuckyCodeToString(code)); got != nil {
		t.Fatalf("banned code still resolves to %v", got)
	}
}

func TestActivityMarkIsExclusive(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	account := domain.AccountID("alice")

	ok, err := repo.TryMarkActive(ctx, account)
	if err != nil || !ok {
		t.Fatalf("first mark: (%v, %v)", ok, err)
	}
	ok, err = repo.TryMarkActive(ctx, account)
	if err != nil || ok {
		t.Fatalf("second mark should be refused: (%v, %v)", ok, err)
	}
	if err := repo.MarkInactive(ctx, account); err != nil {
		t.Fatalf("MarkInactive: %v", err)
	}
	ok, err = repo.TryMarkActive(ctx, account)
	if err != nil || !ok {
		t.Fatalf("mark after release: (%v, %v)", ok, err)
	}
}

func TestBindExternalIdentityOnce(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	ok, err := repo.BindExternalIdentity(ctx, "x-123", "alice", 1000)
	if err != nil || !ok {
		t.Fatalf("first bind: (%v, %v)", ok, err)
	}
	ok, err = repo.BindExternalIdentity(ctx, "x-123", "bob", 1001)
	if err != nil || ok {
		t.Fatalf("rebind should be refused: (%v, %v)", ok, err)
	}
	ok, err = repo.BindExternalIdentity(ctx, "x-456", "bob", 1001)
	if err != nil || !ok {
		t.Fatalf("distinct identity: (%v, %v)", ok, err)
	}
}
