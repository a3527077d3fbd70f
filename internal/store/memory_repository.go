/**
 * @description
 * In-memory Repository implementation for single-node deployments and local
 * development. All state lives behind one mutex; every method is a single
 * atomic step, which matches the orchestrator's requirement that store
 * commits contain no internal suspension points.
 *
 * @dependencies
 * - crypto/rand, encoding/hex, sync: Standard Go libraries.
 * - github.com/google/uuid: Log record identifiers.
 */

package store

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/luckypool/luckypool-service/internal/cryptogram"
	"github.com/luckypool/luckypool-service/internal/domain"
)

// MemoryRepository implements Repository entirely in process memory.
type MemoryRepository struct {
	mu          sync.Mutex
	states      map[domain.AccountID]*domain.AirdropState
	codes       map[uint32]domain.AccountID
	codeOf      map[domain.AccountID]uint32
	redemptions map[string]map[domain.AccountID]bool
	bindings    map[string]domain.AccountID
	active      map[domain.AccountID]bool
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states:      make(map[domain.AccountID]*domain.AirdropState),
		codes:       make(map[uint32]domain.AccountID),
		codeOf:      make(map[domain.AccountID]uint32),
		redemptions: make(map[string]map[domain.AccountID]bool),
		bindings:    make(map[string]domain.AccountID),
		active:      make(map[domain.AccountID]bool),
	}
}

func prizeKey(prize cryptogram.Prize) (string, error) {
	raw, err := cryptogram.Marshal(prize)
	if err != nil {
		return "", fmt.Errorf("failed to derive prize key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func (r *MemoryRepository) GetAirdropState(ctx context.Context, account domain.AccountID) (*domain.AirdropState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[account]
	if !ok {
		return nil, ErrStateNotFound
	}
	copied := *state
	return &copied, nil
}

func (r *MemoryRepository) InsertAirdrop(ctx context.Context, account domain.AccountID, referrer *domain.AccountID, nowSec, claimable, bonus uint64, luckyCode uint32) (*domain.AirdropLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[account]; ok {
		return nil, ErrAlreadyRegistered
	}
	r.states[account] = &domain.AirdropState{LuckyCode: luckyCode, Claimed: 0, Claimable: claimable}
	return &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Referrer:  referrer,
		Timestamp: nowSec,
		Amount:    claimable,
		Bonus:     bonus,
		LuckyCode: luckyCode,
	}, nil
}

func (r *MemoryRepository) RedeemPrize(ctx context.Context, account domain.AccountID, prize cryptogram.Prize) (uint64, error) {
	key, err := prizeKey(prize)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	redeemed := r.redemptions[key]
	if redeemed == nil {
		redeemed = make(map[domain.AccountID]bool)
		r.redemptions[key] = redeemed
	}
	if redeemed[account] {
		return 0, ErrPrizeAlreadyRedeemed
	}
	if uint64(len(redeemed)) >= uint64(prize.Quantity) {
		return 0, ErrPrizeExhausted
	}
	redeemed[account] = true
	return uint64(prize.ClaimableAmount) * domain.Token1, nil
}

func (r *MemoryRepository) GrantPrize(ctx context.Context, account domain.AccountID, nowSec, amount uint64, referrerCode uint32) (*domain.AirdropState, *domain.AirdropLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[account]
	if !ok {
		return nil, nil, ErrStateNotFound
	}
	if state.Banned() {
		return nil, nil, ErrAccountBanned
	}
	state.Claimable += amount

	var referrer *domain.AccountID
	if acct, ok := r.codes[referrerCode]; ok {
		referrer = &acct
	}
	copied := *state
	return &copied, &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Referrer:  referrer,
		Timestamp: nowSec,
		Amount:    amount,
		LuckyCode: state.LuckyCode,
	}, nil
}

func (r *MemoryRepository) Harvest(ctx context.Context, account domain.AccountID, nowSec, amount uint64) (*domain.AirdropState, *domain.AirdropLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[account]
	if !ok {
		return nil, nil, ErrStateNotFound
	}
	if state.Banned() {
		return nil, nil, ErrAccountBanned
	}
	if amount > state.Claimable {
		return nil, nil, ErrInsufficientClaimable
	}
	state.Claimable -= amount
	state.Claimed += amount

	copied := *state
	return &copied, &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Timestamp: nowSec,
		Amount:    amount,
		LuckyCode: state.LuckyCode,
	}, nil
}

func (r *MemoryRepository) InsertLuckyDraw(ctx context.Context, account domain.AccountID, nowSec, amount, icpAmount, random uint64) (*domain.LuckyDrawLog, error) {
	return &domain.LuckyDrawLog{
		ID:        uuid.New(),
		Account:   account,
		Timestamp: nowSec,
		Amount:    amount,
		ICPAmount: icpAmount,
		Random:    random,
	}, nil
}

func (r *MemoryRepository) NewLuckyCode(ctx context.Context, account domain.AccountID) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codeOf[account]; ok && code != domain.BannedLuckyCode {
		return code, nil
	}
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to mint lucky code: %w", err)
		}
		code := binary.BigEndian.Uint32(buf[:])
		if code == domain.BannedLuckyCode {
			continue
		}
		if _, taken := r.codes[code]; taken {
			continue
		}
		r.codes[code] = account
		r.codeOf[account] = code
		return code, nil
	}
}

func (r *MemoryRepository) ResolveLuckyCode(ctx context.Context, code string) (*domain.AccountID, error) {
	parsed, err := domain.LuckyCodeFromString(code)
	if err != nil || parsed == domain.BannedLuckyCode {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.codes[parsed]
	if !ok {
		return nil, nil
	}
	copied := account
	return &copied, nil
}

func (r *MemoryRepository) TryMarkActive(ctx context.Context, account domain.AccountID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[account] {
		return false, nil
	}
	r.active[account] = true
	return true, nil
}

func (r *MemoryRepository) MarkInactive(ctx context.Context, account domain.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, account)
	return nil
}

func (r *MemoryRepository) BindExternalIdentity(ctx context.Context, externalID string, account domain.AccountID, nowSec uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, bound := r.bindings[externalID]; bound {
		return false, nil
	}
	r.bindings[externalID] = account
	return true, nil
}

// Ban forces the account's lucky code to the banned sentinel and drops the
// reverse mapping so the code can no longer attribute referrals.
func (r *MemoryRepository) Ban(account domain.AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codeOf[account]; ok {
		delete(r.codes, code)
	}
	r.codeOf[account] = domain.BannedLuckyCode
	if state, ok := r.states[account]; ok {
		state.LuckyCode = domain.BannedLuckyCode
	}
}
