package transportcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/packfwd/relay/lib/secret"
)

var errTruncatedEnvelope = errors.New("transportcrypto: envelope is shorter than its fixed header")

// decryptV1 opens a legacy envelope: iv(12) || authTag(16) || ciphertext,
// under AES-256-GCM with the static symmetric key.
func decryptV1(payload []byte, key *secret.Buffer) ([]byte, error) {
	if len(payload) < v1IVLen+v1TagLen {
		return nil, errTruncatedEnvelope
	}

	iv := payload[:v1IVLen]
	authTag := payload[v1IVLen : v1IVLen+v1TagLen]
	ciphertext := payload[v1IVLen+v1TagLen:]

	gcm, err := newGCM(key.Bytes())
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	return gcm.Open(nil, iv, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
