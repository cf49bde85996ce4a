// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relayconfig

// redactedPlaceholder is substituted for every secret field in a
// Redacted dump. It is never a valid value for any of these fields,
// so its presence in --print-config output is unambiguous.
const redactedPlaceholder = "[redacted]"

// Redacted is a YAML-serializable snapshot of Config with every secret
// field replaced by a fixed placeholder. Used by `relay-server
// --print-config` so an operator can verify the resolved configuration
// without ever printing key material.
type Redacted struct {
	Port               int    `yaml:"port"`
	APIKey             string `yaml:"api_key"`
	GitHubPAT          string `yaml:"github_pat"`
	GitAuthorName      string `yaml:"git_author_name"`
	GitAuthorEmail     string `yaml:"git_author_email"`
	GitCommitterName   string `yaml:"git_committer_name"`
	GitCommitterEmail  string `yaml:"git_committer_email"`
	ReposDir           string `yaml:"repos_dir"`
	SessionsDir        string `yaml:"sessions_dir"`
	FileStorageDir     string `yaml:"file_storage_dir"`
	SessionTTLMs       int64  `yaml:"session_ttl_ms"`
	MaxFileSizeBytes   int64  `yaml:"max_file_size_bytes"`
	CryptoMode         string `yaml:"transport_crypto_mode"`
	TransportKeyID     string `yaml:"transport_key_id,omitempty"`
	TransportKeyPEM    string `yaml:"transport_private_key_pem,omitempty"`
	EncryptionKey      string `yaml:"encryption_key,omitempty"`
	ReplayTTLMs        int64  `yaml:"transport_replay_ttl_ms"`
	ClockSkewMs        int64  `yaml:"transport_clock_skew_ms"`
}

// Redacted produces a secret-redacted snapshot of the configuration
// suitable for YAML serialization and operator-facing display.
func (config *Config) Redacted() Redacted {
	redacted := Redacted{
		Port:              config.Port,
		APIKey:            redactedPlaceholder,
		GitHubPAT:         redactedPlaceholder,
		GitAuthorName:     config.GitAuthorName,
		GitAuthorEmail:    config.GitAuthorEmail,
		GitCommitterName:  config.GitCommitterName,
		GitCommitterEmail: config.GitCommitterEmail,
		ReposDir:          config.ReposDir,
		SessionsDir:       config.SessionsDir,
		FileStorageDir:    config.FileStorageDir,
		SessionTTLMs:      config.SessionTTL.Milliseconds(),
		MaxFileSizeBytes:  config.MaxFileSizeBytes,
		CryptoMode:        string(config.CryptoMode),
		ReplayTTLMs:       config.ReplayTTL.Milliseconds(),
		ClockSkewMs:       config.ClockSkew.Milliseconds(),
	}

	if config.CryptoMode.AcceptsV2() {
		redacted.TransportKeyID = config.TransportKeyID
		redacted.TransportKeyPEM = redactedPlaceholder
	}
	if config.CryptoMode.AcceptsV1() {
		redacted.EncryptionKey = redactedPlaceholder
	}

	return redacted
}
