package sessionstore

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/relayerror"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store, err := New(t.TempDir(), 10*time.Minute, fake, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, fake
}

func TestStoreChunk_CreatesSessionOnFirstChunk(t *testing.T) {
	store, _ := newTestStore(t)

	received, err := store.StoreChunk("s1", 0, 3, []byte("chunk0"))
	if err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if received != 1 {
		t.Errorf("received = %d, want 1", received)
	}

	snapshot, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if snapshot.Status != StatusReceiving {
		t.Errorf("Status = %q, want receiving", snapshot.Status)
	}
}

func TestStoreChunk_DuplicateIndexDoesNotGrowCount(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.StoreChunk("s1", 0, 2, []byte("first")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	received, err := store.StoreChunk("s1", 0, 2, []byte("second"))
	if err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if received != 1 {
		t.Errorf("received = %d, want 1 (duplicate index should not grow the count)", received)
	}

	if _, err := store.StoreChunk("s1", 1, 2, []byte("chunk1")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	data, err := store.Reassemble("s1")
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if string(data) != "secondchunk1" {
		t.Errorf("Reassemble = %q, want the second write's bytes to have won", data)
	}
}

func TestStoreChunk_RejectsAfterTerminal(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.StoreChunk("s1", 0, 1, []byte("chunk0")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if started, err := store.StartProcessing("s1", ""); err != nil || !started {
		t.Fatalf("StartProcessing: started=%v err=%v", started, err)
	}
	if err := store.SetStatus("s1", StatusPushed, "", nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	_, err := store.StoreChunk("s1", 0, 1, []byte("too late"))
	if err == nil {
		t.Fatal("expected error writing a chunk to a terminalized session")
	}
	relayErr, ok := relayerror.As(err)
	if !ok || relayErr.Code != relayerror.CodeSessionCompleted {
		t.Errorf("expected CodeSessionCompleted, got %v", err)
	}
}

func TestStoreChunk_ValidatesBounds(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.StoreChunk("s1", 0, 0, []byte("x")); err == nil {
		t.Error("expected error for non-positive totalChunks")
	}
	if _, err := store.StoreChunk("s1", 5, 3, []byte("x")); err == nil {
		t.Error("expected error for out-of-range chunkIndex")
	}
}

func TestMarkComplete_UnknownSession(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.MarkComplete("missing")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	relayErr, ok := relayerror.As(err)
	if !ok || relayErr.Code != relayerror.CodeSessionNotFound {
		t.Errorf("expected CodeSessionNotFound, got %v", err)
	}
}

func TestStartProcessing_ExactlyOneWinnerUnderConcurrency(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	const attempts = 50
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			started, err := store.StartProcessing("s1", "")
			if err != nil {
				t.Errorf("StartProcessing: %v", err)
				return
			}
			if started {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestReassemble_IncompleteChunksFails(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 3, []byte("a")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := store.StoreChunk("s1", 2, 3, []byte("c")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	_, err := store.Reassemble("s1")
	if err == nil {
		t.Fatal("expected error for incomplete chunks")
	}
	relayErr, ok := relayerror.As(err)
	if !ok || relayErr.Code != relayerror.CodeIncompleteChunks {
		t.Errorf("expected CodeIncompleteChunks, got %v", err)
	}
}

func TestReassemble_ConcatenatesInOrderAndCleansUpDisk(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.StoreChunk("s1", 1, 3, []byte("B")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := store.StoreChunk("s1", 0, 3, []byte("A")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := store.StoreChunk("s1", 2, 3, []byte("C")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	data, err := store.Reassemble("s1")
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if string(data) != "ABC" {
		t.Errorf("Reassemble = %q, want ABC", data)
	}

	// The in-memory record survives for status polling even though the
	// chunk directory is gone.
	if _, err := store.GetSession("s1"); err != nil {
		t.Errorf("GetSession after Reassemble: %v", err)
	}
}

func TestSetFailed_MissingSessionIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	store.SetFailed("missing", "boom") // must not panic
}

func TestSetFailed_RecordsErrorAndRemovesDisk(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	store.SetFailed("s1", "git push failed")

	snapshot, err := store.GetSession("s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if snapshot.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", snapshot.Status)
	}
	if snapshot.Details["error"] != "git push failed" {
		t.Errorf("Details[error] = %v, want git push failed", snapshot.Details["error"])
	}
}

func TestActiveSessions_CountsOnlyNonTerminal(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := store.StoreChunk("s2", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}
	if _, err := store.StartProcessing("s2", ""); err != nil {
		t.Fatalf("StartProcessing: %v", err)
	}
	if err := store.SetStatus("s2", StatusPushed, "", nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if got := store.ActiveSessions(); got != 1 {
		t.Errorf("ActiveSessions = %d, want 1", got)
	}
}

func TestSweep_RemovesExpiredSessions(t *testing.T) {
	store, fake := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	fake.Advance(11 * time.Minute)
	store.sweep()

	if _, err := store.GetSession("s1"); err == nil {
		t.Fatal("expected expired session to be gone after sweep")
	}
}

func TestSweep_KeepsFreshSessions(t *testing.T) {
	store, fake := newTestStore(t)
	if _, err := store.StoreChunk("s1", 0, 1, []byte("x")); err != nil {
		t.Fatalf("StoreChunk: %v", err)
	}

	fake.Advance(1 * time.Minute)
	store.sweep()

	if _, err := store.GetSession("s1"); err != nil {
		t.Errorf("expected fresh session to survive sweep: %v", err)
	}
}
