/**
 * @description
 * Prize vouchers and challenge payloads carried inside cryptograms and signed
 * messages. A Prize is a compact 5-field authorization: who issued it (a
 * referral lucky code, 0 = no attribution), when, for how long, how many
 * tokens it carries (0 = eligibility-only voucher), and how many distinct
 * accounts may redeem it when it is not subject-bound.
 *
 * Vouchers are minted under two well-known keys: the airdrop key (system
 * issuance is subject-bound to the recipient; user referral vouchers are
 * unbound) and the prize key (unbound, quantity-limited). Callers decode with
 * their own identity as subject first and fall back to no subject; a voucher
 * never validates under both interpretations.
 *
 * @dependencies
 * - internal/cryptogram codec primitives.
 */

package cryptogram

// Prize is the wire payload of a reward voucher, serialized as a CBOR
// 5-tuple: (issuer code, issued at, expire offset, claimable amount,
// quantity). ClaimableAmount is in whole tokens; ExpireOffset in minutes.
type Prize struct {
	_               struct{} `cbor:",toarray"`
	IssuerCode      uint32
	IssuedAt        uint32
	ExpireOffset    uint16
	ClaimableAmount uint32
	Quantity        uint16
}

// ExpireAt returns the last second at which the voucher is still valid.
func (p Prize) ExpireAt() uint64 {
	return uint64(p.IssuedAt) + uint64(p.ExpireOffset)*60
}

// Expired reports whether the voucher's validity window has passed.
func (p Prize) Expired(nowSec uint64) bool {
	return nowSec > p.ExpireAt()
}

// Encode mints the voucher under key, optionally bound to a subject.
func (p Prize) Encode(key, subject []byte) (string, error) {
	return Encode(p, key, subject)
}

// DecodePrize decodes a voucher under key with an explicit subject choice.
func DecodePrize(key, subject []byte, token string) (Prize, error) {
	return Decode[Prize](key, subject, token)
}

// DecodePrizeForCaller implements the contractual decode order: the caller's
// own identity as subject first (system-issued voucher), then no subject
// (user-issued voucher). The returned flag reports which interpretation
// succeeded.
func DecodePrizeForCaller(key, caller []byte, token string) (Prize, bool, error) {
	if p, err := Decode[Prize](key, caller, token); err == nil {
		return p, true, nil
	}
	p, err := Decode[Prize](key, nil, token)
	if err != nil {
		return Prize{}, false, ErrInvalidCryptogram
	}
	return p, false, nil
}

// ChallengeCode binds the expected human-verification answer into a
// time-boxed challenge token.
type ChallengeCode struct {
	Code string `cbor:"code"`
}

// ChallengeState links an external identity (e.g. a social-account id) to an
// account with an expiry, signed by the service's ed25519 key so that it can
// be verified without the signing secret. Serialized as a CBOR 3-tuple.
type ChallengeState struct {
	_          struct{} `cbor:",toarray"`
	Account    string
	ExternalID string
	ExpireAt   uint64
}

// Valid reports whether the state belongs to the caller and has not expired.
func (s ChallengeState) Valid(caller string, nowSec uint64) bool {
	return s.Account == caller && s.ExpireAt > nowSec
}
