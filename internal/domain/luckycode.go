/**
 * @description
 * Lucky codes are per-account referral identifiers. They are non-zero 32-bit
 * integers internally; zero is the reserved sentinel for a banned account. The
 * display form shown to users (and accepted back as a referral string) is the
 * unpadded base32 encoding of the code's four big-endian bytes.
 *
 * @dependencies
 * - encoding/base32, encoding/binary: Standard Go libraries.
 */

package domain

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"strings"
)

// BannedLuckyCode marks an account that has been banned; no reward-granting
// operation is accepted for such an account.
const BannedLuckyCode uint32 = 0

var luckyCodeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrInvalidLuckyCode is returned when a referral string cannot be decoded.
var ErrInvalidLuckyCode = errors.New("invalid lucky code")

// LuckyCodeToString renders a lucky code in its display form.
func LuckyCodeToString(code uint32) string {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], code)
	return luckyCodeEncoding.EncodeToString(buf[:])
}

// LuckyCodeFromString parses a display-form referral string back into a code.
func LuckyCodeFromString(s string) (uint32, error) {
	raw, err := luckyCodeEncoding.DecodeString(strings.ToUpper(strings.TrimSpace(s)))
	if err != nil || len(raw) != 4 {
		return 0, ErrInvalidLuckyCode
	}
	return binary.BigEndian.Uint32(raw), nil
}
