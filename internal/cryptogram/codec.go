/**
 * @description
 * This package implements the authenticated encoding layer of the service:
 * compact, tamper-evident, optionally subject-bound, optionally time-boxed
 * tokens over arbitrary CBOR-serializable payloads.
 *
 * Three mechanisms share one canonical serialization:
 * - Challenge/Verify: time-boxed tokens carrying a truncated keyed MAC over
 *   the payload and an embedded issue timestamp.
 * - Encode/Decode: self-contained cryptograms carrying the payload bytes and
 *   a truncated keyed MAC, optionally bound to a subject identity so that a
 *   token minted for subject A never verifies for subject B or for "no
 *   subject".
 * - SignMessage/VerifyMessage: ed25519-signed messages verifiable with a
 *   public key, for tokens that must be checked without sharing a secret.
 *
 * MAC truncation (16 bytes for challenges, 8 for cryptograms) is a deliberate
 * size trade-off; the tokens are short-lived. All verification failures are
 * reported uniformly, with no detail that could serve as an oracle.
 *
 * @dependencies
 * - crypto/ed25519, crypto/hmac, crypto/subtle, encoding/base64: Standard Go libraries.
 * - github.com/fxamacker/cbor/v2: Deterministic CBOR serialization.
 * - golang.org/x/crypto/sha3: SHA3-256 for the keyed MAC.
 */

package cryptogram

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrInvalidChallenge covers every challenge failure mode: malformed
	// token, MAC mismatch, wrong key, or expired timestamp.
	ErrInvalidChallenge = errors.New("invalid challenge")
	// ErrInvalidCryptogram covers every cryptogram decode failure mode.
	ErrInvalidCryptogram = errors.New("invalid cryptogram")
	// ErrInvalidMessage covers every signed-message verification failure.
	ErrInvalidMessage = errors.New("invalid signed message")
)

const (
	challengeMACLen  = 16
	cryptogramMACLen = 8
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
	b64     = base64.RawURLEncoding
)

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// Marshal produces the canonical (deterministic) CBOR encoding of v. Every
// keyed or signed construction in this package MACs/signs these bytes, so the
// encoding must stay stable across releases.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Mac256 computes HMAC-SHA3-256 over the concatenation of parts.
func Mac256(key []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha3.New256, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return mac.Sum(nil)
}

// challengeEnvelope is the wire form of a challenge token: (timestamp, mac).
type challengeEnvelope struct {
	_         struct{} `cbor:",toarray"`
	Timestamp uint64
	MAC       []byte
}

// cryptogramEnvelope is the wire form of a cryptogram and of a signed
// message: (payload bytes, mac-or-signature).
type cryptogramEnvelope struct {
	_       struct{} `cbor:",toarray"`
	Payload []byte
	Auth    []byte
}

// Challenge produces a time-boxed token for the payload: a truncated keyed
// MAC over the canonical payload encoding concatenated with the encoded
// timestamp, wrapped with the timestamp itself.
func Challenge(payload any, key []byte, timestamp uint64) (string, error) {
	data, err := Marshal(payload)
	if err != nil {
		return "", err
	}
	ts, err := Marshal(timestamp)
	if err != nil {
		return "", err
	}
	mac := Mac256(key, data, ts)[:challengeMACLen]
	token, err := Marshal(challengeEnvelope{Timestamp: timestamp, MAC: mac})
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(token), nil
}

// Verify checks a challenge token against the payload and key. The token is
// accepted only while its embedded timestamp has not fallen below notBefore
// (the caller supplies now - TTL as the floor).
func Verify(payload any, key []byte, notBefore uint64, token string) error {
	raw, err := b64.DecodeString(token)
	if err != nil {
		return ErrInvalidChallenge
	}
	var env challengeEnvelope
	if err := decMode.Unmarshal(raw, &env); err != nil {
		return ErrInvalidChallenge
	}
	if env.Timestamp < notBefore {
		return ErrInvalidChallenge
	}
	data, err := Marshal(payload)
	if err != nil {
		return ErrInvalidChallenge
	}
	ts, err := Marshal(env.Timestamp)
	if err != nil {
		return ErrInvalidChallenge
	}
	mac := Mac256(key, data, ts)[:challengeMACLen]
	if subtle.ConstantTimeCompare(mac, env.MAC) != 1 {
		return ErrInvalidChallenge
	}
	return nil
}

// Encode produces a cryptogram for the payload. When subject is non-nil the
// MAC additionally covers the subject's canonical bytes, so the token only
// decodes for that same subject.
func Encode(payload any, key, subject []byte) (string, error) {
	data, err := Marshal(payload)
	if err != nil {
		return "", err
	}
	var mac []byte
	if subject != nil {
		mac = Mac256(key, data, subject)
	} else {
		mac = Mac256(key, data)
	}
	token, err := Marshal(cryptogramEnvelope{Payload: data, Auth: mac[:cryptogramMACLen]})
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(token), nil
}

// Decode verifies and decodes a cryptogram into T under the given key and
// optional subject. A subject-bound token never decodes without its subject
// and vice versa.
func Decode[T any](key, subject []byte, token string) (T, error) {
	var out T
	raw, err := b64.DecodeString(token)
	if err != nil {
		return out, ErrInvalidCryptogram
	}
	var env cryptogramEnvelope
	if err := decMode.Unmarshal(raw, &env); err != nil {
		return out, ErrInvalidCryptogram
	}
	var mac []byte
	if subject != nil {
		mac = Mac256(key, env.Payload, subject)
	} else {
		mac = Mac256(key, env.Payload)
	}
	if subtle.ConstantTimeCompare(mac[:cryptogramMACLen], env.Auth) != 1 {
		return out, ErrInvalidCryptogram
	}
	if err := decMode.Unmarshal(env.Payload, &out); err != nil {
		return out, ErrInvalidCryptogram
	}
	return out, nil
}

// SignMessage produces an ed25519-signed message for the payload, verifiable
// with the corresponding public key alone.
func SignMessage(payload any, key ed25519.PrivateKey) (string, error) {
	data, err := Marshal(payload)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(key, data)
	msg, err := Marshal(cryptogramEnvelope{Payload: data, Auth: sig})
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(msg), nil
}

// VerifyMessage checks an ed25519-signed message and decodes its payload.
func VerifyMessage[T any](pub ed25519.PublicKey, msg string) (T, error) {
	var out T
	raw, err := b64.DecodeString(msg)
	if err != nil {
		return out, ErrInvalidMessage
	}
	var env cryptogramEnvelope
	if err := decMode.Unmarshal(raw, &env); err != nil {
		return out, ErrInvalidMessage
	}
	if len(env.Auth) != ed25519.SignatureSize || !ed25519.Verify(pub, env.Payload, env.Auth) {
		return out, ErrInvalidMessage
	}
	if err := decMode.Unmarshal(env.Payload, &out); err != nil {
		return out, ErrInvalidMessage
	}
	return out, nil
}
