package app

import (
	"testing"

	"github.com/google/uuid"

	"github.com/luckypool/luckypool-service/internal/domain"
)

func TestPoolHarvestConsumesBudget(t *testing.T) {
	pool := NewPoolState(10, 100*domain.Token1)

	pool.CommitHarvest(domain.AirdropLog{ID: uuid.New(), Account: "alice", Amount: 40 * domain.Token1})

	_, balance := pool.AirdropAmountBalance()
	if want := 100*domain.Token1 - 40*domain.Token1 - domain.TransFee; balance != want {
		t.Fatalf("budget after harvest: got %d, want %d", balance, want)
	}
	snap := pool.Snapshot()
	if snap.TotalAirdrop != 40*domain.Token1+domain.TransFee {
		t.Fatalf("total airdrop: got %d", snap.TotalAirdrop)
	}
	if snap.TotalAirdropCount != 1 {
		t.Fatalf("total airdrop count: got %d", snap.TotalAirdropCount)
	}

	// The budget saturates at zero rather than wrapping.
	pool.CommitHarvest(domain.AirdropLog{ID: uuid.New(), Account: "alice", Amount: 1000 * domain.Token1})
	if _, balance := pool.AirdropAmountBalance(); balance != 0 {
		t.Fatalf("budget should saturate at zero, got %d", balance)
	}
}

func TestPoolAirdropCommitLeavesBudgetUntouched(t *testing.T) {
	pool := NewPoolState(10, 100*domain.Token1)
	pool.CommitAirdrop(domain.AirdropLog{ID: uuid.New(), Account: "alice", Amount: 10 * domain.Token1})

	if _, balance := pool.AirdropAmountBalance(); balance != 100*domain.Token1 {
		t.Fatalf("airdrop registration must not consume budget, got %d", balance)
	}
	if snap := pool.Snapshot(); snap.TotalAirdropCount != 1 || len(snap.LatestAirdropLogs) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestPoolWindowsAreBoundedAndMostRecentFirst(t *testing.T) {
	pool := NewPoolState(10, 0)

	var last uuid.UUID
	for i := 0; i < 15; i++ {
		record := domain.AirdropLog{ID: uuid.New(), Account: "alice", Timestamp: uint64(i)}
		last = record.ID
		pool.CommitAirdrop(record)
	}
	for i := 0; i < 15; i++ {
		jackpot := i%2 == 0
		pool.CommitLuckyDraw(domain.LuckyDrawLog{ID: uuid.New(), Account: "bob", Timestamp: uint64(i)}, 1, 1, jackpot)
	}

	snap := pool.Snapshot()
	if len(snap.LatestAirdropLogs) != 10 {
		t.Fatalf("airdrop window: got %d entries", len(snap.LatestAirdropLogs))
	}
	if snap.LatestAirdropLogs[0].ID != last {
		t.Fatal("airdrop window is not most-recent-first")
	}
	if len(snap.LatestLuckyDraws) != 10 {
		t.Fatalf("draw window: got %d entries", len(snap.LatestLuckyDraws))
	}
	if len(snap.LuckiestLuckyDraws) != 3 {
		t.Fatalf("luckiest window: got %d entries", len(snap.LuckiestLuckyDraws))
	}
	if snap.LatestLuckyDraws[0].Timestamp != 14 {
		t.Fatal("draw window is not most-recent-first")
	}
}

func TestPoolSnapshotIsACopy(t *testing.T) {
	pool := NewPoolState(10, 0)
	pool.CommitAirdrop(domain.AirdropLog{ID: uuid.New(), Account: "alice"})

	snap := pool.Snapshot()
	snap.LatestAirdropLogs[0].Account = "mallory"

	if pool.Snapshot().LatestAirdropLogs[0].Account != "alice" {
		t.Fatal("snapshot mutation leaked into the ledger")
	}
}

func TestPoolLuckyDrawTotals(t *testing.T) {
	pool := NewPoolState(10, 0)
	pool.CommitLuckyDraw(domain.LuckyDrawLog{ID: uuid.New()}, 2000*domain.Token1+domain.TransFee, domain.ICP1-domain.TransFee, false)

	snap := pool.Snapshot()
	if snap.TotalLuckyDraw != 2000*domain.Token1+domain.TransFee {
		t.Fatalf("total draw: got %d", snap.TotalLuckyDraw)
	}
	if snap.TotalLuckyDrawICP != domain.ICP1-domain.TransFee {
		t.Fatalf("total draw icp: got %d", snap.TotalLuckyDrawICP)
	}
	if snap.TotalLuckyDrawCnt != 1 {
		t.Fatalf("total draw count: got %d", snap.TotalLuckyDrawCnt)
	}
	if pool.TotalLuckyDraw() != snap.TotalLuckyDraw {
		t.Fatal("TotalLuckyDraw disagrees with snapshot")
	}
}
