package transportcrypto

import (
	"crypto/ecdh"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfoPrefix is the fixed label mixed into every v2 key derivation,
// per the wire contract: "relay-transport-v2" || 0x00 || kid || 0x00 ||
// ephPubDER || 0x00 || serverPubDER.
const hkdfInfoPrefix = "relay-transport-v2"

var (
	errUnknownKeyID  = errors.New("transportcrypto: envelope key id does not match the configured transport key")
	errBadEphemeral  = errors.New("transportcrypto: malformed ephemeral public key")
	errDecryptFailed = errors.New("transportcrypto: envelope authentication failed")
)

// deriveV2ContentKey computes the per-request AES-256-GCM key for a v2
// envelope: HKDF-SHA256 over the X25519 shared secret, salted with the
// envelope's iv and bound to the key id and both public keys.
func deriveV2ContentKey(serverPrivate *ecdh.PrivateKey, serverPublicDER []byte, header v2Header) ([]byte, error) {
	ephPub, err := x509.ParsePKIXPublicKey(header.EphPubDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadEphemeral, err)
	}
	ephKey, ok := ephPub.(*ecdh.PublicKey)
	if !ok || ephKey.Curve() != ecdh.X25519() {
		return nil, errBadEphemeral
	}

	sharedSecret, err := serverPrivate.ECDH(ephKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadEphemeral, err)
	}

	info := buildHKDFInfo(header.KeyID, header.EphPubDER, serverPublicDER)
	reader := hkdf.New(sha256.New, sharedSecret, header.IV, info)

	contentKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, contentKey); err != nil {
		return nil, err
	}
	return contentKey, nil
}

func buildHKDFInfo(keyID string, ephPubDER, serverPubDER []byte) []byte {
	info := make([]byte, 0, len(hkdfInfoPrefix)+1+len(keyID)+1+len(ephPubDER)+1+len(serverPubDER))
	info = append(info, hkdfInfoPrefix...)
	info = append(info, 0)
	info = append(info, keyID...)
	info = append(info, 0)
	info = append(info, ephPubDER...)
	info = append(info, 0)
	info = append(info, serverPubDER...)
	return info
}

// decryptV2 opens a v2 envelope addressed to serverPrivate, verifying
// that the envelope's key id matches configuredKeyID before any
// cryptographic work is attempted.
func decryptV2(payload []byte, serverPrivate *ecdh.PrivateKey, serverPublicDER []byte, configuredKeyID string) ([]byte, error) {
	header, authTag, ciphertext, err := parseV2Header(payload)
	if err != nil {
		return nil, err
	}
	if header.Version != 2 {
		return nil, fmt.Errorf("transportcrypto: unsupported v2 header version %d", header.Version)
	}
	if header.KeyID != configuredKeyID {
		return nil, errUnknownKeyID
	}

	contentKey, err := deriveV2ContentKey(serverPrivate, serverPublicDER, header)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := gcm.Open(nil, header.IV, sealed, header.Raw)
	if err != nil {
		return nil, errDecryptFailed
	}
	return plaintext, nil
}
