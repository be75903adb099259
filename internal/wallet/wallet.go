// Package wallet implements the signature scheme Starkeep accepts for
// ownership proofs: ed25519 keys with addresses derived from the public key.
//
// A signature over a message is transmitted as base64(pubkey ‖ sig), so a
// verifier can check both that the signature is valid and that the signing
// key actually belongs to the claimed address.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// sigEnvelopeLen is the decoded length of a signature envelope:
// a 32-byte public key followed by a 64-byte ed25519 signature.
const sigEnvelopeLen = ed25519.PublicKeySize + ed25519.SignatureSize

// NewKeypair generates a fresh ed25519 wallet keypair.
func NewKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate keypair: %w", err)
	}
	return pub, priv, nil
}

// Address derives the wallet address for a public key:
// "0x" + hex of the last 20 bytes of SHA3-256(pubkey).
func Address(pub ed25519.PublicKey) string {
	sum := sha3.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[12:])
}

// Sign signs message with priv and returns the base64 signature envelope.
func Sign(priv ed25519.PrivateKey, message string) string {
	pub := priv.Public().(ed25519.PublicKey)
	sig := ed25519.Sign(priv, []byte(message))

	envelope := make([]byte, 0, sigEnvelopeLen)
	envelope = append(envelope, pub...)
	envelope = append(envelope, sig...)
	return base64.StdEncoding.EncodeToString(envelope)
}

// Ed25519Verifier checks signature envelopes against wallet addresses.
// It satisfies the challenge package's Verifier interface.
type Ed25519Verifier struct{}

// Verify reports whether signature is a valid envelope over message, signed
// by the key that owns address. Malformed input of any kind yields false,
// never a panic.
func (Ed25519Verifier) Verify(message, address, signature string) bool {
	envelope, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(envelope) != sigEnvelopeLen {
		return false
	}

	pub := ed25519.PublicKey(envelope[:ed25519.PublicKeySize])
	sig := envelope[ed25519.PublicKeySize:]

	if Address(pub) != address {
		return false
	}
	return ed25519.Verify(pub, []byte(message), sig)
}

// EncodePrivateKey renders a private key as hex for key files.
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return hex.EncodeToString(priv)
}

// DecodePrivateKey parses a hex-encoded private key.
func DecodePrivateKey(s string) (ed25519.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	return ed25519.PrivateKey(b), nil
}
