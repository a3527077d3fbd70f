/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed for airdrop states, lucky code
 * mappings, prize redemptions, external identity bindings, the per-account
 * activity marks and the insert-only log tables.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/cryptogram, internal/domain: Voucher and domain models.
 */

package store

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luckypool/luckypool-service/internal/cryptogram"
	"github.com/luckypool/luckypool-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetAirdropState(ctx context.Context, account domain.AccountID) (*domain.AirdropState, error) {
	var state domain.AirdropState
	query := `SELECT lucky_code, claimed, claimable FROM airdrop_states WHERE account = $1`
	err := r.db.QueryRow(ctx, query, string(account)).Scan(&state.LuckyCode, &state.Claimed, &state.Claimable)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return &state, nil
}

func (r *PostgresRepository) InsertAirdrop(ctx context.Context, account domain.AccountID, referrer *domain.AccountID, nowSec, claimable, bonus uint64, luckyCode uint32) (*domain.AirdropLog, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO airdrop_states (account, lucky_code, claimed, claimable)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (account) DO NOTHING
	`, string(account), luckyCode, claimable)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyRegistered
	}

	record := &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Referrer:  referrer,
		Timestamp: nowSec,
		Amount:    claimable,
		Bonus:     bonus,
		LuckyCode: luckyCode,
	}
	var referrerStr *string
	if referrer != nil {
		s := string(*referrer)
		referrerStr = &s
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO airdrop_logs (id, account, referrer, ts, amount, bonus, lucky_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID, string(account), referrerStr, nowSec, claimable, bonus, luckyCode)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PostgresRepository) RedeemPrize(ctx context.Context, account domain.AccountID, prize cryptogram.Prize) (uint64, error) {
	raw, err := cryptogram.Marshal(prize)
	if err != nil {
		return 0, fmt.Errorf("failed to derive prize key: %w", err)
	}
	key := fmt.Sprintf("%x", raw)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent redemptions of the same voucher so the quantity
	// bound holds without a table lock.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return 0, err
	}

	var already bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM prize_redemptions WHERE prize_key = $1 AND account = $2)
	`, key, string(account)).Scan(&already)
	if err != nil {
		return 0, err
	}
	if already {
		return 0, ErrPrizeAlreadyRedeemed
	}

	var count uint64
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM prize_redemptions WHERE prize_key = $1`, key).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count >= uint64(prize.Quantity) {
		return 0, ErrPrizeExhausted
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO prize_redemptions (prize_key, account, redeemed_at)
		VALUES ($1, $2, NOW())
	`, key, string(account))
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return uint64(prize.ClaimableAmount) * domain.Token1, nil
}

func (r *PostgresRepository) GrantPrize(ctx context.Context, account domain.AccountID, nowSec, amount uint64, referrerCode uint32) (*domain.AirdropState, *domain.AirdropLog, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var state domain.AirdropState
	err = tx.QueryRow(ctx, `
		UPDATE airdrop_states
		SET claimable = claimable + $2
		WHERE account = $1 AND lucky_code <> 0
		RETURNING lucky_code, claimed, claimable
	`, string(account), amount).Scan(&state.LuckyCode, &state.Claimed, &state.Claimable)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, r.classifyMissingState(ctx, account)
		}
		return nil, nil, err
	}

	var referrer *domain.AccountID
	if referrerCode != domain.BannedLuckyCode {
		var acct string
		err := tx.QueryRow(ctx, `SELECT account FROM lucky_codes WHERE code = $1`, referrerCode).Scan(&acct)
		if err == nil {
			id := domain.AccountID(acct)
			referrer = &id
		} else if err != pgx.ErrNoRows {
			return nil, nil, err
		}
	}

	record := &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Referrer:  referrer,
		Timestamp: nowSec,
		Amount:    amount,
		LuckyCode: state.LuckyCode,
	}
	var referrerStr *string
	if referrer != nil {
		s := string(*referrer)
		referrerStr = &s
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO airdrop_logs (id, account, referrer, ts, amount, bonus, lucky_code)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`, record.ID, string(account), referrerStr, nowSec, amount, state.LuckyCode)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &state, record, nil
}

func (r *PostgresRepository) Harvest(ctx context.Context, account domain.AccountID, nowSec, amount uint64) (*domain.AirdropState, *domain.AirdropLog, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var state domain.AirdropState
	err = tx.QueryRow(ctx, `
		UPDATE airdrop_states
		SET claimable = claimable - $2, claimed = claimed + $2
		WHERE account = $1 AND lucky_code <> 0 AND claimable >= $2
		RETURNING lucky_code, claimed, claimable
	`, string(account), amount).Scan(&state.LuckyCode, &state.Claimed, &state.Claimable)
	if err != nil {
		if err == pgx.ErrNoRows {
			fallbackErr := r.classifyMissingState(ctx, account)
			if errors.Is(fallbackErr, ErrStateNotFound) || errors.Is(fallbackErr, ErrAccountBanned) {
				return nil, nil, fallbackErr
			}
			return nil, nil, ErrInsufficientClaimable
		}
		return nil, nil, err
	}

	record := &domain.AirdropLog{
		ID:        uuid.New(),
		Account:   account,
		Timestamp: nowSec,
		Amount:    amount,
		LuckyCode: state.LuckyCode,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO airdrop_logs (id, account, referrer, ts, amount, bonus, lucky_code)
		VALUES ($1, $2, NULL, $3, $4, 0, $5)
	`, record.ID, string(account), nowSec, amount, state.LuckyCode)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &state, record, nil
}

// classifyMissingState distinguishes an unknown account from a banned one
// after a guarded UPDATE matched no rows.
func (r *PostgresRepository) classifyMissingState(ctx context.Context, account domain.AccountID) error {
	var luckyCode uint32
	err := r.db.QueryRow(ctx, `SELECT lucky_code FROM airdrop_states WHERE account = $1`, string(account)).Scan(&luckyCode)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrStateNotFound
		}
		return err
	}
	if luckyCode == domain.BannedLuckyCode {
		return ErrAccountBanned
	}
	return ErrStateNotFound
}

func (r *PostgresRepository) InsertLuckyDraw(ctx context.Context, account domain.AccountID, nowSec, amount, icpAmount, random uint64) (*domain.LuckyDrawLog, error) {
	record := &domain.LuckyDrawLog{
		ID:        uuid.New(),
		Account:   account,
		Timestamp: nowSec,
		Amount:    amount,
		ICPAmount: icpAmount,
		Random:    random,
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO luckydraw_logs (id, account, ts, amount, icp_amount, random)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, string(account), nowSec, amount, icpAmount, random)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PostgresRepository) NewLuckyCode(ctx context.Context, account domain.AccountID) (uint32, error) {
	var existing uint32
	err := r.db.QueryRow(ctx, `SELECT code FROM lucky_codes WHERE account = $1`, string(account)).Scan(&existing)
	if err == nil && existing != domain.BannedLuckyCode {
		return existing, nil
	}
	if err != nil && err != pgx.ErrNoRows {
		return 0, err
	}

	for attempt := 0; attempt < 16; attempt++ {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to mint lucky code: %w", err)
		}
		code := binary.BigEndian.Uint32(buf[:])
		if code == domain.BannedLuckyCode {
			continue
		}
		tag, err := r.db.Exec(ctx, `
			INSERT INTO lucky_codes (code, account)
			VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING
		`, code, string(account))
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 1 {
			return code, nil
		}
	}
	return 0, errors.New("failed to mint a unique lucky code")
}

func (r *PostgresRepository) ResolveLuckyCode(ctx context.Context, code string) (*domain.AccountID, error) {
	parsed, err := domain.LuckyCodeFromString(code)
	if err != nil || parsed == domain.BannedLuckyCode {
		return nil, nil
	}
	var acct string
	err = r.db.QueryRow(ctx, `SELECT account FROM lucky_codes WHERE code = $1`, parsed).Scan(&acct)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	id := domain.AccountID(acct)
	return &id, nil
}

func (r *PostgresRepository) TryMarkActive(ctx context.Context, account domain.AccountID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO active_accounts (account, marked_at)
		VALUES ($1, NOW())
		ON CONFLICT (account) DO NOTHING
	`, string(account))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) MarkInactive(ctx context.Context, account domain.AccountID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM active_accounts WHERE account = $1`, string(account))
	return err
}

func (r *PostgresRepository) BindExternalIdentity(ctx context.Context, externalID string, account domain.AccountID, nowSec uint64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO xauth_bindings (external_id, account, bound_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO NOTHING
	`, externalID, string(account), nowSec)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
