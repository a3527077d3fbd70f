/**
 * @description
 * This file defines the `Repository` interface: the contract with the
 * external account/code store, prize-redemption registry, identity registry
 * and per-account activity marks. The orchestrator depends only on these
 * method contracts; two implementations ship with the service (PostgreSQL
 * for clustered deployments, in-memory for single-node ones) and tests use
 * embedded-interface stubs.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/cryptogram, internal/domain: Voucher and domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/luckypool/luckypool-service/internal/cryptogram"
	"github.com/luckypool/luckypool-service/internal/domain"
)

// Sentinel errors surfaced to the orchestrator. Validation failures carry
// caller-facing meaning; ErrTryAgainLater is the transient contention signal.
var (
	ErrTryAgainLater         = errors.New("try again later")
	ErrStateNotFound         = errors.New("airdrop state not found")
	ErrAccountBanned         = errors.New("account is banned")
	ErrPrizeExhausted        = errors.New("prize quantity exhausted")
	ErrPrizeAlreadyRedeemed  = errors.New("prize already redeemed by this account")
	ErrIdentityAlreadyBound  = errors.New("external identity already bound")
	ErrInsufficientClaimable = errors.New("insufficient claimable tokens")
	ErrAlreadyRegistered     = errors.New("account already registered")
)

// Repository is the set of operations the claim orchestrator needs from the
// external store. Implementations own the per-account state exclusively; the
// orchestrator never caches it across an external-call suspension point.
type Repository interface {
	// GetAirdropState returns the account's state, or ErrStateNotFound.
	GetAirdropState(ctx context.Context, account domain.AccountID) (*domain.AirdropState, error)

	// InsertAirdrop registers a previously-unseen account with an initial
	// claimable balance and its freshly minted lucky code, and returns the
	// commit log record. Fails with ErrAlreadyRegistered on a second insert.
	InsertAirdrop(ctx context.Context, account domain.AccountID, referrer *domain.AccountID, nowSec, claimable, bonus uint64, luckyCode uint32) (*domain.AirdropLog, error)

	// RedeemPrize records one redemption of the voucher by the account and
	// returns the credited amount in minor units. Idempotency per
	// (voucher, account) and the unbound-voucher quantity bound are enforced
	// here; the orchestrator calls this at most once per request.
	RedeemPrize(ctx context.Context, account domain.AccountID, prize cryptogram.Prize) (uint64, error)

	// GrantPrize credits a redeemed voucher's amount to the account's
	// claimable balance and returns the new state plus the log record.
	GrantPrize(ctx context.Context, account domain.AccountID, nowSec, amount uint64, referrerCode uint32) (*domain.AirdropState, *domain.AirdropLog, error)

	// Harvest moves amount from claimable to claimed, enforcing
	// amount <= claimable, and returns the new state plus the log record.
	Harvest(ctx context.Context, account domain.AccountID, nowSec, amount uint64) (*domain.AirdropState, *domain.AirdropLog, error)

	// InsertLuckyDraw appends the immutable record of one successful draw.
	InsertLuckyDraw(ctx context.Context, account domain.AccountID, nowSec, amount, icpAmount, random uint64) (*domain.LuckyDrawLog, error)

	// NewLuckyCode mints (or returns the existing) non-zero referral code
	// for the account and records the reverse mapping.
	NewLuckyCode(ctx context.Context, account domain.AccountID) (uint32, error)

	// ResolveLuckyCode maps a display-form referral string to its account,
	// or returns nil when unknown or banned.
	ResolveLuckyCode(ctx context.Context, code string) (*domain.AccountID, error)

	// TryMarkActive atomically sets the account's exclusivity mark; false
	// means another operation for the account is in flight.
	TryMarkActive(ctx context.Context, account domain.AccountID) (bool, error)

	// MarkInactive releases the exclusivity mark. Called on every exit path
	// of the holding operation.
	MarkInactive(ctx context.Context, account domain.AccountID) error

	// BindExternalIdentity records the one-time linkage of an external
	// identity to an account; false means the identity was already bound.
	BindExternalIdentity(ctx context.Context, externalID string, account domain.AccountID, nowSec uint64) (bool, error)
}
