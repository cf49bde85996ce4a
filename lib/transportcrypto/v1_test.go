package transportcrypto

import (
	"crypto/rand"
	"testing"

	"github.com/packfwd/relay/lib/secret"
)

func newV1TestKey(t *testing.T) *secret.Buffer {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func sealV1(t *testing.T, key *secret.Buffer, plaintext []byte) []byte {
	t.Helper()
	iv := make([]byte, v1IVLen)
	if _, err := rand.Read(iv); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}

	gcm, err := newGCM(key.Bytes())
	if err != nil {
		t.Fatalf("newGCM: %v", err)
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-v1TagLen]
	authTag := sealed[len(sealed)-v1TagLen:]

	payload := make([]byte, 0, v1IVLen+v1TagLen+len(ciphertext))
	payload = append(payload, iv...)
	payload = append(payload, authTag...)
	payload = append(payload, ciphertext...)
	return payload
}

func TestDecryptV1_RoundTrip(t *testing.T) {
	key := newV1TestKey(t)
	plaintext := []byte("hello relay")
	payload := sealV1(t, key, plaintext)

	got, err := decryptV1(payload, key)
	if err != nil {
		t.Fatalf("decryptV1: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("got %q, want %q", got, plaintext)
	}
}

func TestDecryptV1_TamperedCiphertextFails(t *testing.T) {
	key := newV1TestKey(t)
	payload := sealV1(t, key, []byte("hello relay"))
	payload[len(payload)-1] ^= 0xFF

	if _, err := decryptV1(payload, key); err == nil {
		t.Fatal("expected authentication failure for tampered ciphertext")
	}
}

func TestDecryptV1_TruncatedPayload(t *testing.T) {
	key := newV1TestKey(t)
	if _, err := decryptV1([]byte("short"), key); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
