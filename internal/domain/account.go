/**
 * @description
 * This file defines the core identity and monetary unit types shared across the
 * luckypool-service. Accounts are opaque principals supplied by the caller's
 * authentication token; the service compares them by equality and never
 * interprets their contents.
 *
 * @dependencies
 * - None beyond the standard library.
 */

package domain

// AccountID is the opaque identity of a caller. Its canonical byte
// representation (used for cryptogram subject binding) is the raw UTF-8 bytes.
type AccountID string

// Bytes returns the canonical byte representation of the account identity.
func (a AccountID) Bytes() []byte {
	return []byte(a)
}

func (a AccountID) String() string {
	return string(a)
}

// Monetary constants. Both the reward token and the ICP settlement currency
// use 8 decimal places; amounts travel through the service in minor units.
const (
	// Token1 is one whole reward token in ledger minor units.
	Token1 uint64 = 100_000_000
	// ICP1 is one whole unit of the settlement currency in minor units.
	ICP1 uint64 = 100_000_000
	// TransFee is the fixed per-transfer fee charged by the external ledger,
	// in minor units. Debits and credits must budget for it.
	TransFee uint64 = 10_000
)
