/**
 * @description
 * The claim orchestrator. Each operation runs under a per-account exclusivity
 * guard held for the operation's full duration and released on every exit
 * path, which is the single mechanism preventing an account from
 * double-submitting a claim while its first request awaits an external call.
 * Pool-state mutation happens only in the synchronous commit step after the
 * matching store commit and external transfer succeeded.
 *
 * @dependencies
 * - context, errors, fmt, log, strings: Standard Go libraries.
 * - internal/captcha, internal/cryptogram, internal/domain, internal/draw,
 *   internal/store, internal/vault: Core domain packages.
 * - pkg/rabbitmq: Event publication after successful commits.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/luckypool/luckypool-service/internal/captcha"
	"github.com/luckypool/luckypool-service/internal/cryptogram"
	"github.com/luckypool/luckypool-service/internal/domain"
	"github.com/luckypool/luckypool-service/internal/draw"
	"github.com/luckypool/luckypool-service/internal/store"
	"github.com/luckypool/luckypool-service/internal/vault"
	"github.com/luckypool/luckypool-service/pkg/rabbitmq"
)

const (
	// drawLabel domain-separates draw randomness from every other MAC use.
	drawLabel = "LUCKYPOOL"

	// luckyDrawCap is the global payout cap in whole tokens.
	luckyDrawCap = 420_000_000

	// lowestDrawBalance is the pool balance required per 0.1 ICP wagered,
	// in whole tokens.
	lowestDrawBalance = 500

	// prizeFloor is the minimum combined balance (whole tokens) for low
	// balance accounts to claim a prize. Anti-abuse gate, not a reward rule.
	prizeFloor = 10

	// drawVoucherExpire is the validity of auto-issued referral vouchers,
	// in minutes.
	drawVoucherExpire = 4320
)

// Caller-facing operation errors.
var (
	ErrAirdropPoolEmpty  = errors.New("airdrop pool is empty")
	ErrDrawPoolExhausted = errors.New("the lucky draw pool has been drawn empty")
	ErrInvalidWager      = errors.New("invalid icp amount, should be in [0.1, 100]")
	ErrMissingClaimProof = errors.New("missing airdrop claim proof")
	ErrInvalidChallenge  = errors.New("invalid identity challenge or expired")
	ErrInvalidVoucher    = errors.New("invalid airdrop challenge code or expired")
	ErrInvalidPrize      = errors.New("invalid prize cryptogram or expired")
	ErrNoLuckyCode       = errors.New("no lucky code to claim prize")
	ErrPrizeFloor        = errors.New("the balance must be more than 10 tokens to claim prize")
	ErrHarvestTooSmall   = errors.New("amount must be at least 1 token")
)

// TokenLedger is the external ledger gateway contract. All amounts are in
// minor units; the ledger charges a fixed fee per transfer which the caller
// budgets for.
type TokenLedger interface {
	TransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error)
	TransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error)
	ICPTransferFrom(ctx context.Context, from string, amount uint64, memo string) (uint64, error)
	ICPTransferTo(ctx context.Context, to string, amount uint64, memo string) (uint64, error)
	BalanceOf(ctx context.Context, account string) (uint64, error)
}

// RandomSource supplies verifiable external randomness.
type RandomSource interface {
	RandomBytes(ctx context.Context) ([]byte, error)
}

// ActivityGuard is the per-account exclusivity mark. store.Repository
// satisfies it; a Redis-backed guard is available for clustered deployments.
type ActivityGuard interface {
	TryMarkActive(ctx context.Context, account domain.AccountID) (bool, error)
	MarkInactive(ctx context.Context, account domain.AccountID) error
}

// Service wires the orchestrator's collaborators together.
type Service struct {
	repo        store.Repository
	guard       ActivityGuard
	ledger      TokenLedger
	random      RandomSource
	vault       *vault.Vault
	pool        *PoolState
	events      rabbitmq.Publisher
	poolAccount string
	now         func() uint64
}

// NewService creates the orchestrator. now must return the current unix time
// in seconds.
func NewService(repo store.Repository, guard ActivityGuard, ledger TokenLedger, random RandomSource, v *vault.Vault, pool *PoolState, events rabbitmq.Publisher, poolAccount string, now func() uint64) *Service {
	return &Service{
		repo:        repo,
		guard:       guard,
		ledger:      ledger,
		random:      random,
		vault:       v,
		pool:        pool,
		events:      events,
		poolAccount: poolAccount,
		now:         now,
	}
}

// acquire takes the account's exclusivity mark, mapping contention to the
// caller-facing transient error.
func (s *Service) acquire(ctx context.Context, account domain.AccountID) (func(), error) {
	ok, err := s.guard.TryMarkActive(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to mark account active: %w", err)
	}
	if !ok {
		return nil, store.ErrTryAgainLater
	}
	release := func() {
		if err := s.guard.MarkInactive(context.WithoutCancel(ctx), account); err != nil {
			log.Printf("level=error component=service op=release_guard account=%s err=%v", account, err)
		}
	}
	return release, nil
}

// RequestChallenge generates a human-verification challenge from external
// randomness and returns the rendered image plus the signed, time-boxed
// token binding the expected answer.
func (s *Service) RequestChallenge(ctx context.Context, caller domain.AccountID) (*domain.CaptchaOutput, error) {
	release, err := s.acquire(ctx, caller)
	if err != nil {
		return nil, err
	}
	defer release()

	random, err := s.random.RandomBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get random bytes: %w", err)
	}
	code, err := captcha.CodeFromRandom(random)
	if err != nil {
		return nil, err
	}
	img, err := captcha.Render(code)
	if err != nil {
		return nil, fmt.Errorf("failed to render challenge: %w", err)
	}
	token, err := cryptogram.Challenge(cryptogram.ChallengeCode{Code: code}, s.vault.ChallengeSecret(), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	return &domain.CaptchaOutput{ImgBase64: img, Challenge: token}, nil
}

// ClaimAirdrop registers the caller through exactly one proof path: a signed
// identity-linkage challenge state, a system or user issued voucher, or a
// plain referral code. The call is idempotent once the account has state.
func (s *Service) ClaimAirdrop(ctx context.Context, caller domain.AccountID, req domain.AirdropClaimRequest) (*domain.AirdropStateOutput, error) {
	release, err := s.acquire(ctx, caller)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var (
		challengePath bool
		userPrize     *cryptogram.Prize
		luckyCodeStr  string
	)
	switch {
	case req.Challenge != "":
		state, err := cryptogram.VerifyMessage[cryptogram.ChallengeState](s.vault.VerifyKey(), req.Challenge)
		if err != nil || !state.Valid(caller.String(), now) {
			return nil, ErrInvalidChallenge
		}
		bound, err := s.repo.BindExternalIdentity(ctx, state.ExternalID, caller, now)
		if err != nil {
			return nil, fmt.Errorf("failed to bind external identity: %w", err)
		}
		if !bound {
			return nil, store.ErrIdentityAlreadyBound
		}
		challengePath = true
	case req.Code != "":
		prize, systemIssued, err := cryptogram.DecodePrizeForCaller(s.vault.AirdropKey(), caller.Bytes(), req.Code)
		if err != nil {
			return nil, ErrInvalidVoucher
		}
		if systemIssued {
			if prize.Expired(now) {
				return nil, ErrInvalidVoucher
			}
		} else {
			// user-issued referral voucher: eligibility-only, attributed
			if prize.Expired(now) || prize.ClaimableAmount != 0 || prize.IssuerCode == 0 {
				return nil, ErrInvalidVoucher
			}
			userPrize = &prize
			luckyCodeStr = domain.LuckyCodeToString(prize.IssuerCode)
		}
	case req.LuckyCode != "":
		luckyCodeStr = req.LuckyCode
	default:
		return nil, ErrMissingClaimProof
	}

	if state, err := s.repo.GetAirdropState(ctx, caller); err == nil {
		return stateOutput(state), nil
	} else if !errors.Is(err, store.ErrStateNotFound) {
		return nil, err
	}

	airdropAmount, airdropBalance := s.pool.AirdropAmountBalance()
	claimable := airdropAmount * domain.Token1
	if challengePath {
		claimable = 0
	}
	if airdropBalance < claimable+domain.TransFee {
		return nil, ErrAirdropPoolEmpty
	}

	var referrer *domain.AccountID
	var bonus uint64
	if !challengePath && luckyCodeStr != "" {
		referrer, err = s.repo.ResolveLuckyCode(ctx, luckyCodeStr)
		if err != nil {
			return nil, err
		}
		if referrer != nil {
			bonus = (airdropAmount / 2) * domain.Token1
			claimable += bonus
		}
	}

	if userPrize != nil {
		if _, err := s.repo.RedeemPrize(ctx, caller, *userPrize); err != nil {
			return nil, err
		}
	}

	code, err := s.repo.NewLuckyCode(ctx, caller)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.InsertAirdrop(ctx, caller, referrer, now, claimable, bonus, code)
	if err != nil {
		return nil, err
	}
	s.pool.CommitAirdrop(*record)
	s.publishClaim(ctx, "airdrop", *record)

	codeStr := domain.LuckyCodeToString(code)
	return &domain.AirdropStateOutput{LuckyCode: &codeStr, Claimed: 0, Claimable: claimable}, nil
}

// ClaimPrize redeems a quantity-limited prize voucher and credits its amount
// to the caller's claimable balance. Decode tries the caller's identity as
// subject first, then no subject, so both personal and open vouchers redeem.
func (s *Service) ClaimPrize(ctx context.Context, caller domain.AccountID, token string) (*domain.AirdropStateOutput, error) {
	token = strings.TrimPrefix(token, "PRIZE:")
	prize, _, err := cryptogram.DecodePrizeForCaller(s.vault.PrizeKey(), caller.Bytes(), token)
	if err != nil {
		return nil, ErrInvalidPrize
	}
	now := s.now()
	if prize.Expired(now) || prize.IssuerCode == 0 || prize.ClaimableAmount == 0 {
		return nil, ErrInvalidPrize
	}

	release, err := s.acquire(ctx, caller)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := s.repo.GetAirdropState(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return nil, ErrNoLuckyCode
		}
		return nil, err
	}
	if state.Banned() {
		return nil, store.ErrAccountBanned
	}
	if state.Claimable < prizeFloor*domain.Token1 {
		balance, err := s.ledger.BalanceOf(ctx, caller.String())
		if err != nil {
			balance = 0
		}
		if state.Claimable+balance < prizeFloor*domain.Token1 {
			return nil, ErrPrizeFloor
		}
	}

	amount, err := s.repo.RedeemPrize(ctx, caller, prize)
	if err != nil {
		return nil, err
	}
	newState, record, err := s.repo.GrantPrize(ctx, caller, now, amount, prize.IssuerCode)
	if err != nil {
		return nil, err
	}
	s.pool.CommitPrize(*record)
	s.publishClaim(ctx, "prize", *record)

	return stateOutput(newState), nil
}

// Harvest pays amount of the caller's claimable balance out through the
// external ledger. The transfer goes first; a transfer failure leaves local
// state untouched, and a commit failure after a successful transfer is
// logged for manual reconciliation.
func (s *Service) Harvest(ctx context.Context, caller domain.AccountID, amount uint64) (*domain.AirdropStateOutput, error) {
	release, err := s.acquire(ctx, caller)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	state, err := s.repo.GetAirdropState(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return nil, errors.New("no claimable tokens to harvest")
		}
		return nil, err
	}
	if state.Banned() {
		return nil, store.ErrAccountBanned
	}
	if amount < domain.Token1 {
		return nil, ErrHarvestTooSmall
	}
	if amount > state.Claimable {
		return nil, store.ErrInsufficientClaimable
	}

	if _, err := s.ledger.TransferTo(ctx, caller.String(), amount, "harvest"); err != nil {
		return nil, fmt.Errorf("failed to transfer tokens: %w", err)
	}
	newState, record, err := s.repo.Harvest(ctx, caller, now, amount)
	if err != nil {
		log.Printf("level=error component=service op=harvest account=%s amount=%d msg=\"transfer succeeded but local commit failed; manual reconciliation required\" err=%v", caller, amount, err)
		return nil, fmt.Errorf("harvest commit failed after transfer: %w", err)
	}
	s.pool.CommitHarvest(*record)
	s.publishClaim(ctx, "harvest", *record)

	return stateOutput(newState), nil
}

// LuckyDraw settles one draw: debit the wager in ICP, draw the reward from
// beacon randomness, pay out clamped to the pool's remaining balance, and
// auto-issue a referral voucher sized to the wager.
func (s *Service) LuckyDraw(ctx context.Context, caller domain.AccountID, req domain.LuckyDrawRequest) (*domain.LuckyDrawOutput, error) {
	var icp01 uint64
	if req.ICP == 0 {
		if req.Amount != nil {
			icp01 = *req.Amount * 10 / domain.Token1
		}
	} else {
		icp01 = uint64(req.ICP) * 10
	}
	if icp01 < 1 || icp01 > 1000 {
		return nil, ErrInvalidWager
	}
	if s.pool.TotalLuckyDraw() >= luckyDrawCap*domain.Token1 {
		return nil, ErrDrawPoolExhausted
	}

	release, err := s.acquire(ctx, caller)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	rr, err := s.random.RandomBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get random bytes: %w", err)
	}
	x, amount := draw.Amount(cryptogram.Mac256(rr, []byte(drawLabel)))
	jackpot := draw.IsJackpot(amount)
	icpAmount := icp01 * domain.ICP1 / 10
	amount = icp01 * amount / 10

	balance, err := s.ledger.BalanceOf(ctx, s.poolAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool balance: %w", err)
	}
	lowest := lowestDrawBalance*domain.Token1*icp01/10 + domain.TransFee
	if balance < lowest {
		return nil, fmt.Errorf("insufficient token balance (%d) for drawing with %.1f ICP", balance/domain.Token1, float64(icp01)/10)
	}

	if _, err := s.ledger.ICPTransferFrom(ctx, caller.String(), icpAmount-domain.TransFee, "luckydraw wager"); err != nil {
		return nil, fmt.Errorf("failed to debit wager: %w", err)
	}

	// Re-read after the debit: other accounts may have drawn the pool down
	// while the transfer was in flight.
	balance, err = s.ledger.BalanceOf(ctx, s.poolAccount)
	if err != nil {
		balance = 0
	}
	var drawAmount uint64
	if balance >= lowest {
		available := balance - domain.TransFee
		drawAmount = amount
		if available < amount {
			drawAmount = available
		}
		if _, err := s.ledger.TransferTo(ctx, caller.String(), drawAmount, "luckydraw reward"); err != nil {
			drawAmount = 0
		}
	}

	if drawAmount == 0 {
		// Compensate the debit that already happened; the refund leg costs
		// a second fee.
		if _, err := s.ledger.ICPTransferTo(ctx, caller.String(), icpAmount-2*domain.TransFee, "luckydraw refund"); err != nil {
			return nil, fmt.Errorf("failed to refund ICP: %w", err)
		}
		return nil, errors.New("insufficient token balance for luckydraw, ICP refunded")
	}

	record, err := s.repo.InsertLuckyDraw(ctx, caller, now, drawAmount, icpAmount, x)
	if err != nil {
		log.Printf("level=error component=service op=luckydraw account=%s amount=%d msg=\"payout succeeded but log insert failed; manual reconciliation required\" err=%v", caller, drawAmount, err)
		return nil, fmt.Errorf("luckydraw commit failed after payout: %w", err)
	}
	s.pool.CommitLuckyDraw(*record, drawAmount+domain.TransFee, icpAmount-domain.TransFee, jackpot)

	voucher := s.issueDrawVoucher(ctx, caller, now, icp01)

	if err := s.events.PublishLuckyDrawEvent(ctx, rabbitmq.LuckyDrawEvent{
		ID:        record.ID,
		Account:   caller.String(),
		Amount:    drawAmount,
		ICPAmount: icpAmount,
		Jackpot:   jackpot,
		Timestamp: now,
	}); err != nil {
		log.Printf("level=warn component=service op=luckydraw msg=\"event publish failed\" err=%v", err)
	}

	return &domain.LuckyDrawOutput{
		Amount:            drawAmount,
		Random:            x,
		PoolEmpty:         drawAmount < amount,
		AirdropCryptogram: voucher,
	}, nil
}

// issueDrawVoucher mints the post-draw referral voucher against the caller's
// lucky code, registering the account on the fly when it has no state yet.
// Best-effort: a nil return means no voucher, never a failed draw.
func (s *Service) issueDrawVoucher(ctx context.Context, caller domain.AccountID, now, icp01 uint64) *string {
	var code uint32
	state, err := s.repo.GetAirdropState(ctx, caller)
	switch {
	case err == nil:
		if state.Banned() {
			return nil
		}
		code = state.LuckyCode
	case errors.Is(err, store.ErrStateNotFound):
		airdropAmount, _ := s.pool.AirdropAmountBalance()
		minted, err := s.repo.NewLuckyCode(ctx, caller)
		if err != nil {
			return nil
		}
		record, err := s.repo.InsertAirdrop(ctx, caller, nil, now, airdropAmount*domain.Token1, 0, minted)
		if err != nil {
			return nil
		}
		s.pool.CommitAirdrop(*record)
		code = minted
	default:
		return nil
	}

	prize := cryptogram.Prize{
		IssuerCode:   code,
		IssuedAt:     uint32(now),
		ExpireOffset: drawVoucherExpire,
		Quantity:     uint16(icp01 * 5),
	}
	token, err := prize.Encode(s.vault.AirdropKey(), nil)
	if err != nil {
		log.Printf("level=warn component=service op=luckydraw msg=\"voucher encode failed\" err=%v", err)
		return nil
	}
	return &token
}

// IssuePrize mints a prize voucher for the ops surface. A non-empty subject
// binds the voucher to that single account; otherwise quantity bounds how
// many distinct accounts may redeem it.
func (s *Service) IssuePrize(req domain.PrizeIssueRequest) (string, error) {
	if req.IssuerCode == 0 || req.Amount == 0 || req.Quantity == 0 || req.ExpireMinutes == 0 {
		return "", errors.New("invalid prize parameters")
	}
	prize := cryptogram.Prize{
		IssuerCode:      req.IssuerCode,
		IssuedAt:        uint32(s.now()),
		ExpireOffset:    req.ExpireMinutes,
		ClaimableAmount: req.Amount,
		Quantity:        req.Quantity,
	}
	var subject []byte
	if req.Subject != "" {
		subject = domain.AccountID(req.Subject).Bytes()
	}
	token, err := prize.Encode(s.vault.PrizeKey(), subject)
	if err != nil {
		return "", fmt.Errorf("failed to encode prize voucher: %w", err)
	}
	return "PRIZE:" + token, nil
}

// State returns the aggregate pool snapshot.
func (s *Service) State() domain.PoolSnapshot {
	return s.pool.Snapshot()
}

// AirdropStateOf returns the caller's reward state; an unregistered account
// gets the zero view.
func (s *Service) AirdropStateOf(ctx context.Context, caller domain.AccountID) (*domain.AirdropStateOutput, error) {
	state, err := s.repo.GetAirdropState(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return &domain.AirdropStateOutput{}, nil
		}
		return nil, err
	}
	return stateOutput(state), nil
}

func (s *Service) publishClaim(ctx context.Context, kind string, record domain.AirdropLog) {
	if err := s.events.PublishClaimEvent(ctx, rabbitmq.ClaimEvent{
		ID:        record.ID,
		Kind:      kind,
		Account:   string(record.Account),
		Amount:    record.Amount,
		Timestamp: record.Timestamp,
	}); err != nil {
		log.Printf("level=warn component=service op=%s msg=\"event publish failed\" err=%v", kind, err)
	}
}

func stateOutput(state *domain.AirdropState) *domain.AirdropStateOutput {
	codeStr := domain.LuckyCodeToString(state.LuckyCode)
	return &domain.AirdropStateOutput{
		LuckyCode: &codeStr,
		Claimed:   state.Claimed,
		Claimable: state.Claimable,
	}
}
