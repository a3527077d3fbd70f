/**
 * @description
 * Domain models for the airdrop / prize / harvest / lucky-draw flows: the
 * per-account airdrop state, the immutable activity log records retained in
 * the bounded recent-activity windows, and the request/response payloads of
 * the HTTP surface.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: Log record identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AirdropState is the per-account reward state tuple. All amounts are in
// token minor units. Claimed and Claimable are never negative; a harvest of
// amount a requires a <= Claimable and moves a from Claimable to Claimed.
type AirdropState struct {
	LuckyCode uint32 `json:"lucky_code"`
	Claimed   uint64 `json:"claimed"`
	Claimable uint64 `json:"claimable"`
}

// Banned reports whether the account has been banned (lucky code forced to
// the zero sentinel). Banned accounts accept no further reward transitions.
func (s AirdropState) Banned() bool {
	return s.LuckyCode == BannedLuckyCode
}

// AirdropLog is the immutable record of one completed airdrop, prize or
// harvest commit. Only a bounded most-recent-first window is retained.
type AirdropLog struct {
	ID        uuid.UUID  `json:"id"`
	Account   AccountID  `json:"account"`
	Referrer  *AccountID `json:"referrer,omitempty"`
	Timestamp uint64     `json:"ts"`
	Amount    uint64     `json:"amount"`
	Bonus     uint64     `json:"bonus"`
	LuckyCode uint32     `json:"lucky_code"`
}

// LuckyDrawLog is the immutable record of one successful draw. Random is the
// reduced draw value, retained for auditability of the outcome.
type LuckyDrawLog struct {
	ID        uuid.UUID `json:"id"`
	Account   AccountID `json:"account"`
	Timestamp uint64    `json:"ts"`
	Amount    uint64    `json:"amount"`
	ICPAmount uint64    `json:"icp_amount"`
	Random    uint64    `json:"random"`
}

// CaptchaOutput is the response of the challenge-request operation: a
// rendered image and a signed, time-boxed token binding the expected answer.
type CaptchaOutput struct {
	ImgBase64 string `json:"img_base64"`
	Challenge string `json:"challenge"`
}

// AirdropClaimRequest carries exactly one proof path: an identity-linkage
// challenge token, a prize voucher string, or a plain referral code.
type AirdropClaimRequest struct {
	Challenge string `json:"challenge,omitempty"`
	Code      string `json:"code,omitempty"`
	LuckyCode string `json:"lucky_code,omitempty"`
}

// AirdropStateOutput is the caller-facing view of an account's airdrop state.
type AirdropStateOutput struct {
	LuckyCode *string `json:"lucky_code,omitempty"`
	Claimed   uint64  `json:"claimed"`
	Claimable uint64  `json:"claimable"`
}

// HarvestRequest asks to withdraw part of the claimable balance, in minor
// units.
type HarvestRequest struct {
	Amount uint64 `json:"amount"`
}

// LuckyDrawRequest wagers either a direct ICP multiple (1..100) or a raw
// minor-unit amount; exactly one should be set.
type LuckyDrawRequest struct {
	ICP    uint8   `json:"icp"`
	Amount *uint64 `json:"amount,omitempty"`
}

// LuckyDrawOutput reports the outcome of one draw. PoolEmpty is set when the
// payout had to be clamped below the drawn amount because the pool could not
// cover it in full.
type LuckyDrawOutput struct {
	Amount            uint64  `json:"amount"`
	Random            uint64  `json:"random"`
	PoolEmpty         bool    `json:"luckypool_empty"`
	AirdropCryptogram *string `json:"airdrop_cryptogram,omitempty"`
}

// PrizeIssueRequest is the ops-facing request to mint a prize voucher.
// Amount is in whole tokens; Subject, when set, binds the voucher to one
// account. Consumed by the internal issuance endpoint only.
type PrizeIssueRequest struct {
	IssuerCode    uint32 `json:"issuer_code"`
	ExpireMinutes uint16 `json:"expire_minutes"`
	Amount        uint32 `json:"amount"`
	Quantity      uint16 `json:"quantity"`
	Subject       string `json:"subject,omitempty"`
}

// PoolSnapshot is the read-only view of the aggregate ledger: process-wide
// totals plus the bounded recent-activity and luckiest-draw windows.
type PoolSnapshot struct {
	AirdropAmount      uint64         `json:"airdrop_amount"`
	AirdropBalance     uint64         `json:"airdrop_balance"`
	TotalAirdrop       uint64         `json:"total_airdrop"`
	TotalAirdropCount  uint64         `json:"total_airdrop_count"`
	TotalPrize         uint64         `json:"total_prize"`
	TotalPrizeCount    uint64         `json:"total_prize_count"`
	TotalLuckyDraw     uint64         `json:"total_luckydraw"`
	TotalLuckyDrawICP  uint64         `json:"total_luckydraw_icp"`
	TotalLuckyDrawCnt  uint64         `json:"total_luckydraw_count"`
	LatestAirdropLogs  []AirdropLog   `json:"latest_airdrop_logs"`
	LatestLuckyDraws   []LuckyDrawLog `json:"latest_luckydraw_logs"`
	LuckiestLuckyDraws []LuckyDrawLog `json:"luckiest_luckydraw_logs"`
	ObservedAt         time.Time      `json:"observed_at"`
}
