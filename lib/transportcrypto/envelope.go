package transportcrypto

import "encoding/binary"

// v2Magic identifies a v2 (ECDH-hybrid) envelope. Any payload not
// beginning with this magic is treated as a v1 envelope.
const v2Magic = "AWR2"

const (
	v1IVLen      = 12
	v1TagLen     = 16
	v2TagLen     = 16
	v2HeaderHead = 4 + 1 + 1 + 2 + v1IVLen // magic, version, kidLen, ephKeyLen, iv
)

// envelopeVersion reports which envelope shape payload uses.
func envelopeVersion(payload []byte) int {
	if len(payload) >= len(v2Magic) && string(payload[:len(v2Magic)]) == v2Magic {
		return 2
	}
	return 1
}

// v2Header is the parsed fixed- and variable-length prefix of a v2
// envelope. Raw is the exact header byte range, used verbatim as the
// AEAD additional authenticated data.
type v2Header struct {
	Version   byte
	KeyID     string
	EphPubDER []byte
	IV        []byte
	Raw       []byte
}

// parseV2Header splits payload into its header, auth tag, and
// ciphertext. It does not verify the tag or decrypt anything.
func parseV2Header(payload []byte) (header v2Header, authTag, ciphertext []byte, err error) {
	if len(payload) < v2HeaderHead {
		return v2Header{}, nil, nil, errTruncatedEnvelope
	}

	version := payload[4]
	kidLen := int(payload[5])
	ephKeyLen := int(binary.BigEndian.Uint16(payload[6:8]))
	iv := payload[8:20]

	headerLen := v2HeaderHead + kidLen + ephKeyLen
	if len(payload) < headerLen+v2TagLen {
		return v2Header{}, nil, nil, errTruncatedEnvelope
	}

	kid := payload[v2HeaderHead : v2HeaderHead+kidLen]
	ephPub := payload[v2HeaderHead+kidLen : headerLen]

	header = v2Header{
		Version:   version,
		KeyID:     string(kid),
		EphPubDER: ephPub,
		IV:        append([]byte(nil), iv...),
		Raw:       payload[:headerLen],
	}
	authTag = payload[headerLen : headerLen+v2TagLen]
	ciphertext = payload[headerLen+v2TagLen:]
	return header, authTag, ciphertext, nil
}
