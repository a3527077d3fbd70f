/**
 * @description
 * The aggregate pool ledger: process-wide reward totals, the remaining
 * airdrop budget and the bounded recent-activity windows. All mutation goes
 * through the commit methods, each of which is one atomic step under the
 * ledger mutex; the orchestrator calls them only after the matching store
 * commit and external transfer succeeded.
 *
 * @dependencies
 * - sync, time: Standard Go libraries.
 * - internal/domain: Log records and the snapshot view.
 */

package app

import (
	"sync"
	"time"

	"github.com/luckypool/luckypool-service/internal/domain"
)

const (
	latestAirdropWindow   = 10
	latestLuckyDrawWindow = 10
	luckiestWindow        = 3
)

// PoolState is the in-process aggregate ledger.
type PoolState struct {
	mu sync.Mutex

	airdropAmount  uint64 // whole tokens granted per airdrop claim
	airdropBalance uint64 // minor units remaining in the airdrop budget

	totalAirdrop       uint64
	totalAirdropCount  uint64
	totalPrize         uint64
	totalPrizeCount    uint64
	totalLuckyDraw     uint64
	totalLuckyDrawICP  uint64
	totalLuckyDrawCnt  uint64
	latestAirdropLogs  []domain.AirdropLog
	latestLuckyDraws   []domain.LuckyDrawLog
	luckiestLuckyDraws []domain.LuckyDrawLog
}

// NewPoolState seeds the ledger with the per-claim airdrop amount (whole
// tokens) and the airdrop budget (minor units).
func NewPoolState(airdropAmount, airdropBalance uint64) *PoolState {
	return &PoolState{
		airdropAmount:  airdropAmount,
		airdropBalance: airdropBalance,
	}
}

// AirdropAmountBalance returns the per-claim amount (whole tokens) and the
// remaining airdrop budget (minor units).
func (p *PoolState) AirdropAmountBalance() (uint64, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.airdropAmount, p.airdropBalance
}

// TotalLuckyDraw returns the cumulative minor units paid out by draws.
func (p *PoolState) TotalLuckyDraw() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalLuckyDraw
}

// CommitAirdrop records a completed airdrop registration. The budget is not
// touched here; it is consumed when the tokens leave the pool at harvest.
func (p *PoolState) CommitAirdrop(record domain.AirdropLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalAirdropCount++
	p.latestAirdropLogs = prependAirdrop(p.latestAirdropLogs, record, latestAirdropWindow)
}

// CommitPrize records a granted prize voucher redemption.
func (p *PoolState) CommitPrize(record domain.AirdropLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalPrize += record.Amount
	p.totalPrizeCount++
	p.latestAirdropLogs = prependAirdrop(p.latestAirdropLogs, record, latestAirdropWindow)
}

// CommitHarvest records tokens leaving the pool, consuming the airdrop
// budget (amount plus the transfer fee).
func (p *PoolState) CommitHarvest(record domain.AirdropLog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	spent := record.Amount + domain.TransFee
	if spent > p.airdropBalance {
		p.airdropBalance = 0
	} else {
		p.airdropBalance -= spent
	}
	p.totalAirdrop += spent
	p.totalAirdropCount++
	p.latestAirdropLogs = prependAirdrop(p.latestAirdropLogs, record, latestAirdropWindow)
}

// CommitLuckyDraw records a settled draw. drawAmount and icpAmount are the
// actual ledger movements in minor units (fees already included by the
// caller); jackpot draws additionally enter the luckiest window.
func (p *PoolState) CommitLuckyDraw(record domain.LuckyDrawLog, drawAmount, icpAmount uint64, jackpot bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalLuckyDraw += drawAmount
	p.totalLuckyDrawICP += icpAmount
	p.totalLuckyDrawCnt++
	p.latestLuckyDraws = prependLuckyDraw(p.latestLuckyDraws, record, latestLuckyDrawWindow)
	if jackpot {
		p.luckiestLuckyDraws = prependLuckyDraw(p.luckiestLuckyDraws, record, luckiestWindow)
	}
}

// Snapshot returns a consistent copy of the ledger.
func (p *PoolState) Snapshot() domain.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.PoolSnapshot{
		AirdropAmount:      p.airdropAmount,
		AirdropBalance:     p.airdropBalance,
		TotalAirdrop:       p.totalAirdrop,
		TotalAirdropCount:  p.totalAirdropCount,
		TotalPrize:         p.totalPrize,
		TotalPrizeCount:    p.totalPrizeCount,
		TotalLuckyDraw:     p.totalLuckyDraw,
		TotalLuckyDrawICP:  p.totalLuckyDrawICP,
		TotalLuckyDrawCnt:  p.totalLuckyDrawCnt,
		LatestAirdropLogs:  append([]domain.AirdropLog(nil), p.latestAirdropLogs...),
		LatestLuckyDraws:   append([]domain.LuckyDrawLog(nil), p.latestLuckyDraws...),
		LuckiestLuckyDraws: append([]domain.LuckyDrawLog(nil), p.luckiestLuckyDraws...),
		ObservedAt:         time.Now().UTC(),
	}
}

func prependAirdrop(window []domain.AirdropLog, record domain.AirdropLog, limit int) []domain.AirdropLog {
	window = append([]domain.AirdropLog{record}, window...)
	if len(window) > limit {
		window = window[:limit]
	}
	return window
}

func prependLuckyDraw(window []domain.LuckyDrawLog, record domain.LuckyDrawLog, limit int) []domain.LuckyDrawLog {
	window = append([]domain.LuckyDrawLog{record}, window...)
	if len(window) > limit {
		window = window[:limit]
	}
	return window
}
