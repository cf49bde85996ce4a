package transportcrypto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

var errMalformedFrame = errors.New("transportcrypto: malformed plaintext frame")

// frame is the decrypted payload shape: metadataLen(4 BE) || JSON ||
// binary. Metadata is decoded into a generic map so callers can pull
// out the fields they expect without a package-level schema.
type frame struct {
	Metadata map[string]any
	Binary   []byte
}

// parseFrame splits plaintext into its metadata object and trailing
// binary data.
func parseFrame(plaintext []byte) (frame, error) {
	if len(plaintext) < 4 {
		return frame{}, errMalformedFrame
	}
	metadataLen := int(binary.BigEndian.Uint32(plaintext[:4]))
	if metadataLen < 0 || 4+metadataLen > len(plaintext) {
		return frame{}, fmt.Errorf("%w: metadata length %d exceeds frame size", errMalformedFrame, metadataLen)
	}

	metadataJSON := plaintext[4 : 4+metadataLen]
	binaryData := plaintext[4+metadataLen:]

	var metadata map[string]any
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return frame{}, fmt.Errorf("%w: metadata is not a JSON object: %v", errMalformedFrame, err)
	}

	return frame{Metadata: metadata, Binary: binaryData}, nil
}
