package transportcrypto

import (
	"crypto/x509"
	"strconv"
	"testing"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/relayconfig"
	"github.com/packfwd/relay/lib/relayerror"
	"github.com/packfwd/relay/lib/secret"
)

func newTestDecryptor(t *testing.T, mode relayconfig.CryptoMode) (*Decryptor, *secret.Buffer, v2TestFixture) {
	t.Helper()

	var v1Key *secret.Buffer
	var fixture v2TestFixture
	var v2DERBuffer *secret.Buffer
	keyID := ""

	if mode.AcceptsV1() {
		v1Key = newV1TestKey(t)
	}
	if mode.AcceptsV2() {
		fixture = newV2TestFixture(t, "key-1")
		keyID = fixture.keyID

		pkcs8, err := x509.MarshalPKCS8PrivateKey(fixture.serverPrivate)
		if err != nil {
			t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
		}
		v2DERBuffer, err = secret.NewFromBytes(pkcs8)
		if err != nil {
			t.Fatalf("secret.NewFromBytes: %v", err)
		}
		t.Cleanup(func() { v2DERBuffer.Close() })
	}

	decryptor, err := NewDecryptor(mode, v1Key, v2DERBuffer, keyID, 5*time.Minute, 30*time.Second, clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("NewDecryptor: %v", err)
	}
	return decryptor, v1Key, fixture
}

func TestDecryptor_V1Mode(t *testing.T) {
	decryptor, v1Key, _ := newTestDecryptor(t, relayconfig.CryptoModeV1)

	plaintext := buildFrame(`{"sessionId":"s1"}`, []byte("chunk data"))
	payload := sealV1(t, v1Key, plaintext)

	metadata, binaryData, err := decryptor.Decrypt(payload)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if metadata["sessionId"] != "s1" {
		t.Errorf("sessionId = %v, want s1", metadata["sessionId"])
	}
	if string(binaryData) != "chunk data" {
		t.Errorf("binary = %q, want %q", binaryData, "chunk data")
	}
}

func TestDecryptor_V1ModeRejectsV2Envelope(t *testing.T) {
	decryptor, _, _ := newTestDecryptor(t, relayconfig.CryptoModeV1)

	// A v2-shaped payload (just the magic bytes) handed to a v1-only
	// decryptor must fail before any key material is touched.
	_, _, err := decryptor.Decrypt([]byte(v2Magic))
	if err == nil {
		t.Fatal("expected error for v2 envelope in v1-only mode")
	}
	if _, ok := relayerror.As(err); !ok {
		t.Errorf("expected a relayerror.Error, got %T", err)
	}
}

func TestDecryptor_V2ModeAppliesReplayProtection(t *testing.T) {
	decryptor, _, fixture := newTestDecryptor(t, relayconfig.CryptoModeV2)

	now := decryptor.replay.clock.Now().UnixMilli()
	metadataJSON := []byte(`{"sessionId":"s1","timestamp":` + strconv.FormatInt(now, 10) + `,"nonce":"nonce-123456"}`)
	plaintext := buildFrame(string(metadataJSON), []byte("chunk data"))
	payload := sealV2(t, fixture, plaintext)

	metadata, _, err := decryptor.Decrypt(payload)
	if err != nil {
		t.Fatalf("first Decrypt: %v", err)
	}
	if _, present := metadata["nonce"]; present {
		t.Error("expected nonce to be stripped from returned metadata")
	}
	if _, present := metadata["timestamp"]; present {
		t.Error("expected timestamp to be stripped from returned metadata")
	}

	// Replaying the same envelope must fail on nonce reuse.
	if _, _, err := decryptor.Decrypt(payload); err == nil {
		t.Fatal("expected replay of the same nonce to fail")
	}
}

func TestDecryptor_V2ModeRejectsV1Envelope(t *testing.T) {
	decryptor, _, _ := newTestDecryptor(t, relayconfig.CryptoModeV2)

	payload := make([]byte, v1IVLen+v1TagLen+4)
	if _, _, err := decryptor.Decrypt(payload); err == nil {
		t.Fatal("expected error for v1 envelope in v2-only mode")
	}
}

func TestDecryptor_CompatModeAcceptsBoth(t *testing.T) {
	decryptor, v1Key, fixture := newTestDecryptor(t, relayconfig.CryptoModeCompat)

	v1Plaintext := buildFrame(`{"via":"v1"}`, nil)
	v1Payload := sealV1(t, v1Key, v1Plaintext)
	if _, _, err := decryptor.Decrypt(v1Payload); err != nil {
		t.Errorf("v1 Decrypt under compat mode: %v", err)
	}

	now := decryptor.replay.clock.Now().UnixMilli()
	v2MetadataJSON := `{"via":"v2","timestamp":` + strconv.FormatInt(now, 10) + `,"nonce":"nonce-654321"}`
	v2Plaintext := buildFrame(v2MetadataJSON, nil)
	v2Payload := sealV2(t, fixture, v2Plaintext)
	if _, _, err := decryptor.Decrypt(v2Payload); err != nil {
		t.Errorf("v2 Decrypt under compat mode: %v", err)
	}
}

