package sessionstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/relayerror"
)

// Store tracks every in-flight upload session and the chunk files
// backing it. A single mutex guards the whole map: every operation is
// O(1) over in-memory state, so the coarse lock never becomes a
// bottleneck even though chunk writes happen while it is held.
type Store struct {
	root   string
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Store rooted at root, creating the directory if it
// does not exist.
func New(root string, ttl time.Duration, clk clock.Clock, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("sessionstore: creating root %s: %w", root, err)
	}
	return &Store{
		root:     root,
		ttl:      ttl,
		clock:    clk,
		logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

func (s *Store) chunkPath(sessionID string, chunkIndex int) string {
	return filepath.Join(s.sessionDir(sessionID), fmt.Sprintf("chunk-%d.bin", chunkIndex))
}

// StoreChunk writes chunk chunkIndex of totalChunks for sessionID,
// creating the session with status receiving on first sight. Writing
// the same (sessionID, chunkIndex) again overwrites the chunk on disk
// without growing the received count.
//
// totalChunks is last-writer-wins across calls for the same session:
// the source behavior this is grounded on did not specify strict
// enforcement, so later calls simply update the expectation.
func (s *Store) StoreChunk(sessionID string, chunkIndex, totalChunks int, data []byte) (receivedCount int, err error) {
	if totalChunks <= 0 {
		return 0, relayerror.InvalidInput("totalChunks must be positive, got %d", totalChunks)
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		return 0, relayerror.InvalidInput("chunkIndex %d out of range [0, %d)", chunkIndex, totalChunks)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[sessionID]
	if !exists {
		if err := os.MkdirAll(s.sessionDir(sessionID), 0o755); err != nil {
			return 0, fmt.Errorf("sessionstore: creating session directory: %w", err)
		}
		now := s.clock.Now()
		sess = &session{
			id:             sessionID,
			status:         StatusReceiving,
			totalChunks:    totalChunks,
			receivedChunks: make(map[int]struct{}),
			details:        make(map[string]any),
			createdAt:      now,
			updatedAt:      now,
		}
		s.sessions[sessionID] = sess
	} else if sess.status != StatusReceiving && sess.status != StatusComplete {
		return 0, relayerror.SessionCompleted(sessionID)
	}

	sess.totalChunks = totalChunks

	if err := writeChunkFile(s.chunkPath(sessionID, chunkIndex), data); err != nil {
		return 0, fmt.Errorf("sessionstore: writing chunk %d: %w", chunkIndex, err)
	}

	sess.receivedChunks[chunkIndex] = struct{}{}
	sess.updatedAt = s.clock.Now()

	return len(sess.receivedChunks), nil
}

// writeChunkFile writes data to path via a temp-file-then-rename, so a
// crash mid-write never leaves a partially written chunk at its final
// path.
func writeChunkFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "chunk-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	success = true
	return nil
}

// MarkComplete transitions a session from receiving to complete.
// Implementations may call this before every chunk has arrived;
// Reassemble re-verifies completeness before acting on it.
func (s *Store) MarkComplete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return relayerror.SessionNotFound(sessionID)
	}
	if sess.status != StatusReceiving && sess.status != StatusComplete {
		return relayerror.SessionCompleted(sessionID)
	}

	sess.status = StatusComplete
	sess.updatedAt = s.clock.Now()
	return nil
}

// StartProcessing performs the session store's single compare-and-set
// choke point: if sessionID is currently receiving or complete, it
// transitions to processing and returns true. A concurrent caller that
// loses the race (or that arrives after processing has already begun)
// gets false and should report "already processing" rather than start
// a second finalize.
func (s *Store) StartProcessing(sessionID, message string) (started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, relayerror.SessionNotFound(sessionID)
	}
	if sess.status != StatusReceiving && sess.status != StatusComplete {
		return false, nil
	}

	sess.status = StatusProcessing
	sess.message = message
	sess.updatedAt = s.clock.Now()
	return true, nil
}

// Reassemble concatenates chunks 0..totalChunks-1 for sessionID and
// deletes the on-disk chunk directory. The in-memory record survives
// for status polling. Fails with relayerror.CodeIncompleteChunks if
// not every chunk has arrived.
func (s *Store) Reassemble(sessionID string) ([]byte, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, relayerror.SessionNotFound(sessionID)
	}
	if len(sess.receivedChunks) != sess.totalChunks {
		expected, received := sess.totalChunks, len(sess.receivedChunks)
		s.mu.Unlock()
		return nil, relayerror.IncompleteChunks(expected, received)
	}
	totalChunks := sess.totalChunks
	s.mu.Unlock()

	data := make([]byte, 0)
	for i := 0; i < totalChunks; i++ {
		chunk, err := os.ReadFile(s.chunkPath(sessionID, i))
		if err != nil {
			return nil, fmt.Errorf("sessionstore: reading chunk %d: %w", i, err)
		}
		data = append(data, chunk...)
	}

	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		s.logger.Warn("sessionstore: failed to remove session directory after reassemble",
			"sessionId", sessionID, "error", err)
	}

	return data, nil
}

// SetStatus merges detailsPatch into the session's details and sets
// its status, message, and updatedAt.
func (s *Store) SetStatus(sessionID string, status Status, message string, detailsPatch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return relayerror.SessionNotFound(sessionID)
	}

	sess.status = status
	sess.message = message
	for key, value := range detailsPatch {
		sess.details[key] = value
	}
	sess.updatedAt = s.clock.Now()
	return nil
}

// SetFailed marks sessionID as failed and records errMessage in its
// details. Best-effort: a missing session is silently ignored, since
// the TTL sweep may have already reclaimed it while a background
// finalize task was still running.
func (s *Store) SetFailed(sessionID, errMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	sess.status = StatusFailed
	sess.details["error"] = errMessage
	sess.updatedAt = s.clock.Now()

	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		s.logger.Warn("sessionstore: failed to remove session directory after failure",
			"sessionId", sessionID, "error", err)
	}
}

// ActiveSessions returns the number of sessions that have not reached
// a terminal status.
func (s *Store) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, sess := range s.sessions {
		if !sess.status.terminal() {
			count++
		}
	}
	return count
}

// GetSession returns a snapshot of sessionID's current state.
func (s *Store) GetSession(sessionID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Snapshot{}, relayerror.SessionNotFound(sessionID)
	}
	return sess.snapshot(), nil
}

// sweep removes sessions whose last update is older than the TTL,
// along with their on-disk chunk directories.
func (s *Store) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if now.Sub(sess.updatedAt) > s.ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, id := range expired {
		if err := os.RemoveAll(s.sessionDir(id)); err != nil {
			s.logger.Warn("sessionstore: failed to remove expired session directory",
				"sessionId", id, "error", err)
			continue
		}
		s.logger.Info("sessionstore: session expired", "sessionId", id)
	}
}

// Run sweeps expired sessions on interval until ctx is done. The sweep
// never blocks request handlers: it runs on its own ticker goroutine
// and takes the same short-lived lock every other Store method takes.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}
