// Package signature implements the deterministic Ed25519 scheme used by the
// QQ guild open platform for webhook verification. The keypair is derived
// from the bot secret, so any process holding the secret produces identical
// signatures and public keys.
package signature

import (
	"crypto/ed25519"
	"encoding/hex"
)

// SignatureLength is the length in bytes of an Ed25519 signature.
const SignatureLength = ed25519.SignatureSize

// seed builds the 32-byte Ed25519 seed by repeating the secret's bytes
// cyclically. The byte-repeat rule is part of the platform contract; it must
// not be replaced with a hash. An empty secret maps to the all-zero seed so a
// misconfigured caller gets a failed verification instead of a panic.
func seed(botSecret string) []byte {
	out := make([]byte, ed25519.SeedSize)
	raw := []byte(botSecret)
	if len(raw) == 0 {
		return out
	}
	for i := range out {
		out[i] = raw[i%len(raw)]
	}
	return out
}

// Keys derives the signing and verifying keys for a bot secret. The
// derivation is deterministic: equal secrets yield equal keys.
func Keys(botSecret string) (ed25519.PrivateKey, ed25519.PublicKey) {
	private := ed25519.NewKeyFromSeed(seed(botSecret))
	return private, private.Public().(ed25519.PublicKey)
}

// Sign signs message with the key derived from botSecret and returns the
// 64-byte signature.
func Sign(botSecret string, message []byte) []byte {
	private, _ := Keys(botSecret)
	return ed25519.Sign(private, message)
}

// SignHex signs message and hex-encodes the signature, the form carried on
// the wire in webhook challenge responses.
func SignHex(botSecret string, message []byte) string {
	return hex.EncodeToString(Sign(botSecret, message))
}

// Verify reports whether sig is a valid signature of message under the key
// derived from botSecret. ed25519.Verify is constant time in the signature
// comparison.
func Verify(botSecret string, message, sig []byte) bool {
	if len(sig) != SignatureLength {
		return false
	}
	_, public := Keys(botSecret)
	return ed25519.Verify(public, message, sig)
}

// VerifyHex verifies a hex-encoded signature. Malformed hex or a signature of
// the wrong length verifies false.
func VerifyHex(botSecret string, message []byte, sigHex string) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	return Verify(botSecret, message, sig)
}
