// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command relay-server accepts chunked, encrypted uploads from
// authenticated clients, reassembles them, and either applies them to
// a managed clone of a GitHub repository and pushes the result, or
// stores them as durable files under a dated directory tree.
//
// Configuration is environment-driven; see lib/relayconfig. Run with
// --print-config to inspect the resolved, secret-redacted configuration,
// or --version to print build information.
package main
