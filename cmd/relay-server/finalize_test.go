// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"testing"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/sessionstore"
	"github.com/packfwd/relay/lib/testutil"
)

func newTestSessionStore(t *testing.T) *sessionstore.Store {
	t.Helper()
	store, err := sessionstore.New(t.TempDir(), 10*time.Minute, clock.Fake(time.Now()), testLogger())
	if err != nil {
		t.Fatalf("sessionstore.New: %v", err)
	}
	return store
}

func TestFailSession_MarksSessionFailed(t *testing.T) {
	sessions := newTestSessionStore(t)
	sessionID := testutil.UniqueID("s")
	if _, err := sessions.StoreChunk(sessionID, 0, 1, []byte("data")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	srv := &server{sessions: sessions, logger: testLogger()}
	srv.failSession(sessionID, errors.New("reassembly exploded"), testLogger())

	snapshot, err := sessions.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if snapshot.Status != sessionstore.StatusFailed {
		t.Errorf("Status = %q, want failed", snapshot.Status)
	}
	if snapshot.Details["error"] != "reassembly exploded" {
		t.Errorf("Details[error] = %v, want %q", snapshot.Details["error"], "reassembly exploded")
	}
}

func TestFailSession_UnknownSessionIsNoop(t *testing.T) {
	sessions := newTestSessionStore(t)
	srv := &server{sessions: sessions, logger: testLogger()}

	srv.failSession("missing", errors.New("boom"), testLogger())
}
