/**
 * @description
 * Human-verification challenge rendering. The challenge text is derived
 * deterministically from externally supplied randomness (the verifiable
 * randomness source, not a local RNG) and rendered to a base64 PNG via the
 * base64Captcha drawing driver. Signing and verification of the expected
 * answer belong to the orchestrator, not here.
 *
 * @dependencies
 * - github.com/mojocn/base64Captcha: Image rendering only.
 */

package captcha

import (
	"errors"
	"strings"

	"github.com/mojocn/base64Captcha"
)

const (
	codeLength = 6
	charset    = "23456789abcdefghjkmnpqrstuvwxyz"
)

var driver = base64Captcha.NewDriverString(
	60,  // height
	160, // width
	6,   // noise count
	base64Captcha.OptionShowHollowLine|base64Captcha.OptionShowSineLine,
	codeLength,
	charset,
	nil, // background
	nil, // default embedded fonts
	nil,
)

// CodeFromRandom derives the challenge text from the supplied randomness.
// Each output character consumes one byte; at least codeLength bytes are
// required.
func CodeFromRandom(random []byte) (string, error) {
	if len(random) < codeLength {
		return "", errors.New("not enough randomness for a challenge code")
	}
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(charset[int(random[i])%len(charset)])
	}
	return b.String(), nil
}

// Render draws the challenge text and returns it as a base64 data URL.
func Render(code string) (string, error) {
	item, err := driver.DrawCaptcha(code)
	if err != nil {
		return "", err
	}
	return item.EncodeB64string(), nil
}
