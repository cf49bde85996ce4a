// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package filestore reassembles a completed upload session into a
// single file on disk, verified against the size and SHA-256 digest
// the client declared up front.
//
// Destinations are dated: <root>/<YYYY>/<MM>/<DD>/<sessionId>-<name>,
// where name is fileName run through [sanitizeFileName] and the date
// is the day the store call runs, per [github.com/packfwd/relay/lib/clock].
// A destination that already exists is left untouched and reported as
// FILE_EXISTS rather than overwritten.
package filestore
