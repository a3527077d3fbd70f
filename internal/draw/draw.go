/**
 * @description
 * The lucky-draw engine: a closed-form, stateless reduction of externally
 * supplied randomness to a reward tier. The orchestrator keys the raw
 * randomness through a MAC before calling in, scales the result by the wager,
 * and records the reduced value for auditability; none of that lives here.
 *
 * @dependencies
 * - encoding/binary: Standard Go library.
 * - internal/domain: Monetary unit constants.
 */

package draw

import (
	"encoding/binary"

	"github.com/luckypool/luckypool-service/internal/domain"
)

const (
	// Divisor bounds the reduced draw value; Divisor/Token1 is just under
	// 3447, which shapes the long-tailed payout distribution.
	Divisor uint64 = 344_693_032_001

	// JackpotAmount is the fixed jackpot-tier reward in whole tokens.
	JackpotAmount uint64 = 100_000
	// MinimumAmount is the fixed low-tier reward in whole tokens.
	MinimumAmount uint64 = 1_000

	jackpotThreshold uint64 = 5
	minimumThreshold uint64 = 1_000
)

// Amount reduces the first 8 bytes of random (big-endian) modulo Divisor and
// maps the result to a reward tier. It returns the reduced value x and the
// reward in token minor units: x/Token1 <= 5 pays the jackpot, <= 1000 pays
// the fixed minimum, anything above pays itself. Inputs shorter than 8 bytes
// are zero-extended.
func Amount(random []byte) (uint64, uint64) {
	var buf [8]byte
	copy(buf[:], random)
	x := binary.BigEndian.Uint64(buf[:]) % Divisor

	var amount uint64
	switch v := x / domain.Token1; {
	case v <= jackpotThreshold:
		amount = JackpotAmount
	case v <= minimumThreshold:
		amount = MinimumAmount
	default:
		amount = v
	}
	return x, amount * domain.Token1
}

// IsJackpot reports whether a reward (in minor units) is the jackpot tier.
func IsJackpot(amount uint64) bool {
	return amount == JackpotAmount*domain.Token1
}
