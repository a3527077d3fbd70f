/**
 * @description
 * The key vault derives the service's named keys from a single master secret
 * and hands them to the codec without ever exposing the master material:
 * the airdrop voucher key, the prize voucher key, the challenge MAC secret,
 * and the ed25519 pair used for challenge-state signatures (the public half
 * may be shared freely).
 *
 * @dependencies
 * - crypto/ed25519: Standard Go library.
 * - internal/cryptogram: HMAC-SHA3-256 derivation.
 * - golang.org/x/crypto/sha3: ed25519 seed derivation.
 */

package vault

import (
	"crypto/ed25519"
	"errors"

	"golang.org/x/crypto/sha3"

	"github.com/luckypool/luckypool-service/internal/cryptogram"
)

const (
	labelAirdropKey = "airdrop_key"
	labelPrizeKey   = "prize_key"
	labelSecretKey  = "challenge_secret"
	labelSignKey    = "challenge_sign_key"
)

// Vault holds the derived key material for one deployment.
type Vault struct {
	airdropKey []byte
	prizeKey   []byte
	secret     []byte
	signKey    ed25519.PrivateKey
	verifyKey  ed25519.PublicKey
}

// New derives all named keys from the master secret. The secret must carry
// real entropy; anything shorter than 16 bytes is refused.
func New(master []byte) (*Vault, error) {
	if len(master) < 16 {
		return nil, errors.New("master secret must be at least 16 bytes")
	}
	seed := sha3.Sum256(cryptogram.Mac256(master, []byte(labelSignKey)))
	sk := ed25519.NewKeyFromSeed(seed[:])
	return &Vault{
		airdropKey: cryptogram.Mac256(master, []byte(labelAirdropKey)),
		prizeKey:   cryptogram.Mac256(master, []byte(labelPrizeKey)),
		secret:     cryptogram.Mac256(master, []byte(labelSecretKey)),
		signKey:    sk,
		verifyKey:  sk.Public().(ed25519.PublicKey),
	}, nil
}

// AirdropKey is the MAC key for airdrop vouchers (system issuance is
// subject-bound; user referral vouchers are unbound).
func (v *Vault) AirdropKey() []byte { return v.airdropKey }

// PrizeKey is the MAC key for quantity-limited prize vouchers.
func (v *Vault) PrizeKey() []byte { return v.prizeKey }

// ChallengeSecret is the MAC key for time-boxed captcha challenges.
func (v *Vault) ChallengeSecret() []byte { return v.secret }

// SigningKey signs challenge states.
func (v *Vault) SigningKey() ed25519.PrivateKey { return v.signKey }

// VerifyKey verifies challenge states; safe to publish.
func (v *Vault) VerifyKey() ed25519.PublicKey { return v.verifyKey }
