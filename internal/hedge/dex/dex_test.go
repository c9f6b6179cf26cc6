package dex

import (
	"bytes"
	"strings"
	"testing"
)

// Address derived from the all-ones test key, fixed by secp256k1.
const (
	testKey     = "0101010101010101010101010101010101010101010101010101010101010101"
	testAddress = "0x1a642f0E3c3aF545E7AcBD38b07251B3990914F1"
)

func testAction() OrderAction {
	return OrderAction{
		Type: "order",
		Orders: []OrderWire{
			{Symbol: "BTC", IsBuy: true, Notional: "5000.00", Leverage: "1", ReduceOnly: false},
		},
		Grouping: "na",
	}
}

func TestEncodeOrderActionDeterministic(t *testing.T) {
	first, err := EncodeOrderAction(testAction())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	second, err := EncodeOrderAction(testAction())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("encoding is not deterministic")
	}
	if len(first) == 0 {
		t.Fatalf("empty encoding")
	}
}

func TestEncodeOrderActionValidation(t *testing.T) {
	action := testAction()
	action.Type = ""
	if _, err := EncodeOrderAction(action); err == nil {
		t.Fatalf("expected error for missing type")
	}
	action = testAction()
	action.Orders = nil
	if _, err := EncodeOrderAction(action); err == nil {
		t.Fatalf("expected error for empty orders")
	}
	action = testAction()
	action.Orders[0].Symbol = ""
	if _, err := EncodeOrderAction(action); err == nil {
		t.Fatalf("expected error for missing symbol")
	}
}

func TestEncodeOrderActionDefaultsGrouping(t *testing.T) {
	action := testAction()
	action.Grouping = ""
	withDefault, err := EncodeOrderAction(action)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	explicit, err := EncodeOrderAction(testAction())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !bytes.Equal(withDefault, explicit) {
		t.Fatalf("expected empty grouping to default to na")
	}
}

func TestNewSignerDerivesAddress(t *testing.T) {
	signer, err := NewSigner(testKey, true)
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}
	if got := signer.Address().Hex(); got != testAddress {
		t.Fatalf("expected address %s, got %s", testAddress, got)
	}
	// 0x prefix must be tolerated.
	prefixed, err := NewSigner("0x"+testKey, true)
	if err != nil {
		t.Fatalf("new signer with prefix failed: %v", err)
	}
	if prefixed.Address() != signer.Address() {
		t.Fatalf("prefix changed derived address")
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	if _, err := NewSigner("", true); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewSigner("zz", true); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}

func TestSignOrderAction(t *testing.T) {
	signer, err := NewSigner(testKey, true)
	if err != nil {
		t.Fatalf("new signer failed: %v", err)
	}
	sig, err := signer.SignOrderAction(testAction(), 1700000000000)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !strings.HasPrefix(sig.R, "0x") || len(sig.R) != 66 {
		t.Fatalf("unexpected r %s", sig.R)
	}
	if !strings.HasPrefix(sig.S, "0x") || len(sig.S) != 66 {
		t.Fatalf("unexpected s %s", sig.S)
	}
	if sig.V != 27 && sig.V != 28 {
		t.Fatalf("unexpected v %d", sig.V)
	}

	// Same action and nonce must produce the same signature; a different
	// nonce must not.
	again, err := signer.SignOrderAction(testAction(), 1700000000000)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if sig != again {
		t.Fatalf("signature is not deterministic")
	}
	other, err := signer.SignOrderAction(testAction(), 1700000000001)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if sig == other {
		t.Fatalf("nonce did not affect signature")
	}
}

func TestMainnetSourceAffectsDigest(t *testing.T) {
	hash := actionHash([]byte{0x01, 0x02}, 7)
	mainnet, err := agentTypedDataHash(hash, true)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	testnet, err := agentTypedDataHash(hash, false)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if bytes.Equal(mainnet, testnet) {
		t.Fatalf("expected mainnet and testnet digests to differ")
	}
}
