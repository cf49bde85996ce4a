// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionstore tracks the lifecycle of a chunked upload
// session from first chunk through finalization.
//
// A session is identified by a client-supplied sessionId and moves
// through a small state machine: receiving -> complete -> processing,
// then terminally to pushed, stored, or failed. [Store.StartProcessing]
// is the single compare-and-set choke point that guarantees at most
// one finalization task ever runs for a given session, even under
// concurrent callers.
//
// Chunk bytes are written to <sessionsRoot>/<sessionId>/chunk-<i>.bin
// as they arrive; [Store.Reassemble] concatenates them in order once
// every chunk has been seen and removes the on-disk directory,
// retaining only the in-memory status record for polling.
//
// Sessions are held entirely in memory; [Store.Run] sweeps sessions
// whose last update is older than the configured TTL, deleting their
// chunk directories along with the in-memory record. Session state
// does not survive a process restart, by design.
package sessionstore
