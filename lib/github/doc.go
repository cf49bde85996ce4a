// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github provides a minimal typed Go client for the GitHub REST
// API: personal-access-token authentication, rate limiting (X-RateLimit-*
// headers with automatic backoff), and structured error mapping.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base URLs.
//
// The relay uses this client for exactly one endpoint — posting a commit
// status after a successful push — so the surface is deliberately narrow
// rather than a general-purpose GitHub API binding.
package github
