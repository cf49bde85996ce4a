package transportcrypto

import (
	"crypto/ecdh"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/relayconfig"
	"github.com/packfwd/relay/lib/relayerror"
	"github.com/packfwd/relay/lib/secret"
)

// Decryptor opens transport envelopes for whichever versions the
// configured [relayconfig.CryptoMode] accepts, and replay-checks the
// metadata of every v2 envelope it decrypts.
type Decryptor struct {
	mode relayconfig.CryptoMode

	v1Key *secret.Buffer

	v2PrivateKey   *ecdh.PrivateKey
	v2PublicKeyDER []byte
	v2KeyID        string

	replay *ReplayCache
}

// NewDecryptor builds a Decryptor from already-loaded configuration.
// v1Key may be nil when mode does not accept v1; v2PrivateKeyDER and
// keyID may be empty when mode does not accept v2.
func NewDecryptor(mode relayconfig.CryptoMode, v1Key *secret.Buffer, v2PrivateKeyDER *secret.Buffer, keyID string, replayTTL, clockSkew time.Duration, clk clock.Clock) (*Decryptor, error) {
	decryptor := &Decryptor{
		mode:  mode,
		v1Key: v1Key,
	}

	if mode.AcceptsV2() {
		parsed, err := x509.ParsePKCS8PrivateKey(v2PrivateKeyDER.Bytes())
		if err != nil {
			return nil, fmt.Errorf("transportcrypto: parsing v2 private key: %w", err)
		}
		privateKey, ok := parsed.(*ecdh.PrivateKey)
		if !ok || privateKey.Curve() != ecdh.X25519() {
			return nil, fmt.Errorf("transportcrypto: v2 private key is not an X25519 key")
		}

		publicDER, err := x509.MarshalPKIXPublicKey(privateKey.PublicKey())
		if err != nil {
			return nil, fmt.Errorf("transportcrypto: marshaling v2 public key: %w", err)
		}

		decryptor.v2PrivateKey = privateKey
		decryptor.v2PublicKeyDER = publicDER
		decryptor.v2KeyID = keyID
	}

	decryptor.replay = NewReplayCache(replayTTL, clockSkew, clk)
	return decryptor, nil
}

// ReplayCache exposes the decryptor's nonce cache so the caller can run
// its periodic sweep goroutine.
func (d *Decryptor) ReplayCache() *ReplayCache { return d.replay }

// Decrypt opens payload, parses its plaintext frame, and — for v2
// envelopes — validates and strips the replay-protection fields from
// the returned metadata. Every failure is reported as
// relayerror.CodeDecryptionFailed.
func (d *Decryptor) Decrypt(payload []byte) (metadata map[string]any, binary []byte, err error) {
	version := envelopeVersion(payload)

	var plaintext []byte
	switch version {
	case 1:
		if !d.mode.AcceptsV1() {
			return nil, nil, relayerror.DecryptionFailed("v1 envelopes are not accepted in this configuration")
		}
		plaintext, err = decryptV1(payload, d.v1Key)
	case 2:
		if !d.mode.AcceptsV2() {
			return nil, nil, relayerror.DecryptionFailed("v2 envelopes are not accepted in this configuration")
		}
		plaintext, err = decryptV2(payload, d.v2PrivateKey, d.v2PublicKeyDER, d.v2KeyID)
	default:
		return nil, nil, relayerror.DecryptionFailed("unrecognized envelope version")
	}
	if err != nil {
		return nil, nil, relayerror.DecryptionFailed(err.Error())
	}

	parsed, err := parseFrame(plaintext)
	if err != nil {
		return nil, nil, relayerror.DecryptionFailed(err.Error())
	}

	if version == 2 {
		timestampMs, nonce, err := extractReplayFields(parsed.Metadata)
		if err != nil {
			return nil, nil, relayerror.DecryptionFailed(err.Error())
		}
		if err := d.replay.Validate(nonce, timestampMs); err != nil {
			return nil, nil, relayerror.DecryptionFailed(err.Error())
		}
	}

	return parsed.Metadata, parsed.Binary, nil
}
