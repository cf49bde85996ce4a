// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package repolock provides a FIFO mutex keyed by repository identifier
// ("owner/repo"). Git operations against the same repository must never
// race on its working tree; operations against distinct repositories
// must proceed concurrently. Locker provides exactly that: one
// per-key critical section, with keys created lazily on first use and
// reclaimed once their last waiter has released them.
package repolock
