// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relayconfig

import (
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/packfwd/relay/lib/secret"
)

// CryptoMode selects which transport envelope versions the relay will
// accept. See lib/transportcrypto for the decrypt-side logic gated by
// this value.
type CryptoMode string

const (
	CryptoModeV1     CryptoMode = "v1"
	CryptoModeCompat CryptoMode = "compat"
	CryptoModeV2     CryptoMode = "v2"
)

// AcceptsV1 reports whether sessions under this mode may present a v1
// (legacy symmetric) envelope.
func (mode CryptoMode) AcceptsV1() bool { return mode == CryptoModeV1 || mode == CryptoModeCompat }

// AcceptsV2 reports whether sessions under this mode may present a v2
// (ECDH-hybrid) envelope.
func (mode CryptoMode) AcceptsV2() bool { return mode == CryptoModeV2 || mode == CryptoModeCompat }

// Config is the relay's fully resolved, validated configuration.
// Secret fields are held in lib/secret.Buffer values for the process
// lifetime; call Close when the process is shutting down.
type Config struct {
	// Port is the TCP port the HTTP surface listens on.
	Port int

	// APIKey is the shared bearer secret required on the x-server-key
	// header of every /api/* request.
	APIKey *secret.Buffer

	// GitHubPAT is embedded into the HTTPS clone/push URL as the
	// x-access-token credential.
	GitHubPAT *secret.Buffer

	// GitAuthorName/GitAuthorEmail/GitCommitterName/GitCommitterEmail
	// populate GIT_AUTHOR_* / GIT_COMMITTER_* for every git invocation.
	// Committer identity defaults to the author identity when unset.
	GitAuthorName     string
	GitAuthorEmail    string
	GitCommitterName  string
	GitCommitterEmail string

	// ReposDir is the root of managed repository working copies
	// (<ReposDir>/<owner>/<repo>/).
	ReposDir string

	// SessionsDir is the root of on-disk chunk storage
	// (<SessionsDir>/<sessionId>/chunk-<i>.bin).
	SessionsDir string

	// FileStorageDir is the root of the dated file-store tree
	// (<FileStorageDir>/<YYYY>/<MM>/<DD>/<sessionId>-<sanitized>).
	FileStorageDir string

	// SessionTTL is the age at which an idle session becomes eligible
	// for garbage collection.
	SessionTTL time.Duration

	// MaxFileSizeBytes bounds the reassembled size storeFile will
	// accept.
	MaxFileSizeBytes int64

	// CryptoMode gates which envelope versions are accepted.
	CryptoMode CryptoMode

	// TransportKeyID is the server's v2 key identifier ("kid").
	// Only meaningful when CryptoMode.AcceptsV2().
	TransportKeyID string

	// TransportPrivateKeyDER holds the PEM-decoded DER bytes of the
	// server's static X25519 private key. Only meaningful when
	// CryptoMode.AcceptsV2(). Parsed into a usable key by
	// lib/transportcrypto, not here, to keep the crypto primitive
	// choice out of the config loader.
	TransportPrivateKeyDER *secret.Buffer

	// EncryptionKey is the 32-byte v1 symmetric AES-256-GCM key. Only
	// meaningful when CryptoMode.AcceptsV1().
	EncryptionKey *secret.Buffer

	// ReplayTTL and ClockSkew bound the v2 replay-validation window
	// (see lib/transportcrypto).
	ReplayTTL time.Duration
	ClockSkew time.Duration
}

// Close releases every secret.Buffer held by the config. Safe to call
// multiple times.
func (config *Config) Close() {
	for _, buffer := range []*secret.Buffer{
		config.APIKey,
		config.GitHubPAT,
		config.TransportPrivateKeyDER,
		config.EncryptionKey,
	} {
		if buffer != nil {
			buffer.Close()
		}
	}
}

// Load reads and validates the relay's configuration from the process
// environment, per the contract in the package doc comment.
func Load() (*Config, error) {
	config := &Config{
		Port:              envInt("PORT", 3000),
		GitAuthorName:     os.Getenv("GIT_AUTHOR_NAME"),
		GitAuthorEmail:    os.Getenv("GIT_AUTHOR_EMAIL"),
		GitCommitterName:  envOr("GIT_COMMITTER_NAME", os.Getenv("GIT_AUTHOR_NAME")),
		GitCommitterEmail: envOr("GIT_COMMITTER_EMAIL", os.Getenv("GIT_AUTHOR_EMAIL")),
		ReposDir:          envOr("REPOS_DIR", "/data/repos"),
		SessionsDir:       envOr("SESSIONS_DIR", "/tmp/relay-sessions"),
		FileStorageDir:    envOr("FILE_STORAGE_DIR", "/data/files"),
		SessionTTL:        envMillis("SESSION_TTL_MS", 600_000),
		MaxFileSizeBytes:  envInt64("MAX_FILE_SIZE_BYTES", 500<<20),
		CryptoMode:        CryptoMode(envOr("TRANSPORT_CRYPTO_MODE", string(CryptoModeCompat))),
		TransportKeyID:    os.Getenv("TRANSPORT_KEY_ID"),
		ReplayTTL:         envMillis("TRANSPORT_REPLAY_TTL_MS", 300_000),
		ClockSkew:         envMillis("TRANSPORT_CLOCK_SKEW_MS", 30_000),
	}

	switch config.CryptoMode {
	case CryptoModeV1, CryptoModeCompat, CryptoModeV2:
	default:
		return nil, fmt.Errorf("relayconfig: TRANSPORT_CRYPTO_MODE %q must be one of v1, compat, v2", config.CryptoMode)
	}

	var err error
	if config.APIKey, err = requireSecret("API_KEY"); err != nil {
		return nil, err
	}
	if config.GitHubPAT, err = requireSecret("GITHUB_PAT"); err != nil {
		config.Close()
		return nil, err
	}
	if config.GitAuthorName == "" {
		config.Close()
		return nil, fmt.Errorf("relayconfig: GIT_AUTHOR_NAME is required")
	}
	if config.GitAuthorEmail == "" {
		config.Close()
		return nil, fmt.Errorf("relayconfig: GIT_AUTHOR_EMAIL is required")
	}

	if config.CryptoMode.AcceptsV1() {
		keyB64 := os.Getenv("ENCRYPTION_KEY")
		if keyB64 == "" {
			config.Close()
			return nil, fmt.Errorf("relayconfig: ENCRYPTION_KEY is required in mode %q", config.CryptoMode)
		}
		keyBytes, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			config.Close()
			return nil, fmt.Errorf("relayconfig: ENCRYPTION_KEY is not valid base64: %w", err)
		}
		if len(keyBytes) != 32 {
			config.Close()
			return nil, fmt.Errorf("relayconfig: ENCRYPTION_KEY must decode to exactly 32 bytes, got %d", len(keyBytes))
		}
		if config.EncryptionKey, err = secret.NewFromBytes(keyBytes); err != nil {
			config.Close()
			return nil, fmt.Errorf("relayconfig: securing ENCRYPTION_KEY: %w", err)
		}
	}

	if config.CryptoMode.AcceptsV2() {
		if config.TransportKeyID == "" {
			config.Close()
			return nil, fmt.Errorf("relayconfig: TRANSPORT_KEY_ID is required in mode %q", config.CryptoMode)
		}
		if len(config.TransportKeyID) > 255 {
			config.Close()
			return nil, fmt.Errorf("relayconfig: TRANSPORT_KEY_ID must be at most 255 bytes")
		}

		pemRaw := os.Getenv("TRANSPORT_PRIVATE_KEY_PEM")
		if pemRaw == "" {
			config.Close()
			return nil, fmt.Errorf("relayconfig: TRANSPORT_PRIVATE_KEY_PEM is required in mode %q", config.CryptoMode)
		}
		// Environment variable conventions frequently can't carry
		// literal newlines; accept the escaped form and unescape it.
		pemText := strings.ReplaceAll(pemRaw, `\n`, "\n")

		block, _ := pem.Decode([]byte(pemText))
		if block == nil {
			config.Close()
			return nil, fmt.Errorf("relayconfig: TRANSPORT_PRIVATE_KEY_PEM does not contain a PEM block")
		}
		if config.TransportPrivateKeyDER, err = secret.NewFromBytes(block.Bytes); err != nil {
			config.Close()
			return nil, fmt.Errorf("relayconfig: securing TRANSPORT_PRIVATE_KEY_PEM: %w", err)
		}
	}

	return config, nil
}

// requireSecret reads a required environment variable directly into a
// secret.Buffer, so the plaintext value never outlives this call.
func requireSecret(name string) (*secret.Buffer, error) {
	value := os.Getenv(name)
	if value == "" {
		return nil, fmt.Errorf("relayconfig: %s is required", name)
	}
	raw := []byte(value)
	buffer, err := secret.NewFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("relayconfig: securing %s: %w", name, err)
	}
	return buffer, nil
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt64(name string, fallback int64) int64 {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envMillis(name string, fallbackMs int64) time.Duration {
	return time.Duration(envInt64(name, fallbackMs)) * time.Millisecond
}
