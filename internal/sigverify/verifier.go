// Package sigverify checks ed25519 wallet signatures over challenge text.
// Wallet extensions disagree on how they encode the 64 signature bytes, so the
// decoder accepts standard base64, base58, and hex. Everything fails closed:
// undecodable input is an invalid signature, never an error.
package sigverify

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// DecodeSignature tries standard base64, then base58, then hex. The first
// decode yielding exactly 64 bytes wins; anything else returns nil.
func DecodeSignature(signature string) []byte {
	if sig, err := base64.StdEncoding.DecodeString(signature); err == nil && len(sig) == ed25519.SignatureSize {
		return sig
	}
	if sig, err := base58.Decode(signature); err == nil && len(sig) == ed25519.SignatureSize {
		return sig
	}
	if sig, err := hex.DecodeString(signature); err == nil && len(sig) == ed25519.SignatureSize {
		return sig
	}
	return nil
}

// DecodeAddress decodes a base58 wallet address to its 32-byte ed25519 public
// key. Returns nil for malformed addresses.
func DecodeAddress(address string) ed25519.PublicKey {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil
	}
	return ed25519.PublicKey(decoded)
}

// ValidAddress reports whether address is a well-formed wallet public key.
func ValidAddress(address string) bool {
	return DecodeAddress(address) != nil
}

// Verify checks signature (in any accepted encoding) against the UTF-8 bytes
// of challengeText and the public key behind walletAddress.
func Verify(walletAddress, signature, challengeText string) bool {
	pub := DecodeAddress(walletAddress)
	if pub == nil {
		return false
	}

	sig := DecodeSignature(signature)
	if sig == nil {
		return false
	}

	return ed25519.Verify(pub, []byte(challengeText), sig)
}
