package wallet_test

import (
	"strings"
	"testing"

	"github.com/starkeep/starkeep/internal/wallet"
)

func TestSignVerify_roundTrip(t *testing.T) {
	pub, priv, err := wallet.NewKeypair()
	if err != nil {
		t.Fatal(err)
	}
	addr := wallet.Address(pub)
	sig := wallet.Sign(priv, "hello starkeep")

	var v wallet.Ed25519Verifier
	if !v.Verify("hello starkeep", addr, sig) {
		t.Error("valid signature must verify")
	}
}

func TestVerify_rejectsWrongAddress(t *testing.T) {
	_, priv, _ := wallet.NewKeypair()
	otherPub, _, _ := wallet.NewKeypair()

	sig := wallet.Sign(priv, "msg")

	var v wallet.Ed25519Verifier
	if v.Verify("msg", wallet.Address(otherPub), sig) {
		t.Error("signature must not verify against another wallet's address")
	}
}

func TestVerify_rejectsTamperedMessage(t *testing.T) {
	pub, priv, _ := wallet.NewKeypair()
	sig := wallet.Sign(priv, "msg")

	var v wallet.Ed25519Verifier
	if v.Verify("msg-tampered", wallet.Address(pub), sig) {
		t.Error("signature must not verify a different message")
	}
}

func TestVerify_malformedInputDoesNotPanic(t *testing.T) {
	var v wallet.Ed25519Verifier
	for _, sig := range []string{"", "not base64 !!!", "aGVsbG8=", strings.Repeat("A", 400)} {
		if v.Verify("msg", "0xabc", sig) {
			t.Errorf("malformed signature %q must not verify", sig)
		}
	}
}

func TestAddress_shapeAndDeterminism(t *testing.T) {
	pub, _, _ := wallet.NewKeypair()

	a1 := wallet.Address(pub)
	a2 := wallet.Address(pub)
	if a1 != a2 {
		t.Errorf("address derivation must be deterministic: %q vs %q", a1, a2)
	}
	if !strings.HasPrefix(a1, "0x") || len(a1) != 42 {
		t.Errorf("address shape: got %q, want 0x + 40 hex chars", a1)
	}
}

func TestPrivateKeyCodec_roundTrip(t *testing.T) {
	_, priv, _ := wallet.NewKeypair()

	decoded, err := wallet.DecodePrivateKey(wallet.EncodePrivateKey(priv))
	if err != nil {
		t.Fatal(err)
	}
	if !priv.Equal(decoded) {
		t.Error("private key must survive encode/decode")
	}

	if _, err := wallet.DecodePrivateKey("zz"); err == nil {
		t.Error("invalid hex must be rejected")
	}
	if _, err := wallet.DecodePrivateKey("abcd"); err == nil {
		t.Error("wrong-length key must be rejected")
	}
}
