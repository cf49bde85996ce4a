// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transportcrypto decrypts the hybrid transport envelope used
// by upload sessions.
//
// Two envelope versions exist on the wire simultaneously:
//
//   - v1: a static 32-byte AES-256-GCM key, payload shaped as
//     iv(12) || authTag(16) || ciphertext.
//   - v2: an X25519 ECDH handshake per request. The client generates an
//     ephemeral key pair, derives a content key against the server's
//     static public key via HKDF-SHA256, and encrypts under AES-256-GCM
//     with the envelope header bound as additional authenticated data.
//     v2 payloads begin with the 4-byte magic "AWR2".
//
// [Decryptor] picks the envelope version from the magic bytes, decrypts
// under whichever key material the configured [relayconfig.CryptoMode]
// makes available, parses the resulting plaintext frame
// (metadataLen(4 BE) || JSON || binary), and — for v2 envelopes —
// enforces replay protection over the decrypted metadata's nonce and
// timestamp fields via an in-memory [ReplayCache].
//
// Every decrypt failure, whether a bad tag, a disallowed envelope
// version, or a replay hit, is reported as a single stable
// relayerror.CodeDecryptionFailed so the wire response never leaks
// which check failed.
package transportcrypto
