// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relayconfig loads and validates the relay's environment into
// a typed [Config].
//
// Required: API_KEY, GITHUB_PAT, GIT_AUTHOR_NAME, GIT_AUTHOR_EMAIL.
// TRANSPORT_CRYPTO_MODE selects which envelope versions are accepted
// ("v1", "compat", or "v2"; default "compat") and gates which of
// ENCRYPTION_KEY (v1 symmetric key) and TRANSPORT_KEY_ID /
// TRANSPORT_PRIVATE_KEY_PEM (v2 key material) are required. Secret
// values are decoded once in [Load] and immediately copied into
// lib/secret.Buffer — mmap-backed, mlocked, zeroed on Close — rather
// than retained as plain strings for the process lifetime.
//
// [Config.Redacted] produces a copy safe to print or dump as YAML
// (via the relay-server --print-config flag) with every secret field
// replaced by a fixed placeholder.
package relayconfig
