// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/packfwd/relay/lib/relayerror"
)

var sha256HexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{
		"status":          "ok",
		"timestamp":       s.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"sessions_active": s.sessions.ActiveSessions(),
		"uptime_seconds":  int(s.clock.Now().Sub(s.startedAt).Seconds()),
	})
}

func (s *server) handleDataChunk(w http.ResponseWriter, r *http.Request) {
	body, _ := requestBodyFrom(r)
	logger := requestLogger(r)

	sessionID, err := getString(body.Metadata, "sessionId")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	totalChunks, err := getInt(body.Metadata, "totalChunks")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	chunkIndex, err := getInt(body.Metadata, "chunkIndex")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if totalChunks <= 0 {
		writeError(w, logger, relayerror.InvalidInput("totalChunks must be positive, got %d", totalChunks))
		return
	}
	if chunkIndex < 0 || chunkIndex >= totalChunks {
		writeError(w, logger, relayerror.InvalidInput("chunkIndex %d out of range [0, %d)", chunkIndex, totalChunks))
		return
	}
	if len(body.Binary) == 0 {
		writeError(w, logger, relayerror.InvalidInput("chunk binary attachment must not be empty"))
		return
	}

	received, err := s.sessions.StoreChunk(sessionID, chunkIndex, totalChunks, body.Binary)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, 200, map[string]any{"success": true, "received": received})
}

func (s *server) handleDataComplete(w http.ResponseWriter, r *http.Request) {
	body, _ := requestBodyFrom(r)
	logger := requestLogger(r)

	sessionID, err := getString(body.Metadata, "sessionId")
	if err != nil {
		writeError(w, logger, err)
		return
	}

	if err := s.sessions.MarkComplete(sessionID); err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, 202, map[string]any{"success": true})
}

func (s *server) handleGRProcess(w http.ResponseWriter, r *http.Request) {
	body, _ := requestBodyFrom(r)
	logger := requestLogger(r)

	sessionID, err := getString(body.Metadata, "sessionId")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	repoField, err := getString(body.Metadata, "repo")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	branch, err := getString(body.Metadata, "branch")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	baseBranch, err := getString(body.Metadata, "baseBranch")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	owner, repo, err := splitRepo(repoField)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	started, err := s.sessions.StartProcessing(sessionID, "processing")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if started {
		go s.finalizePush(sessionID, owner, repo, branch, baseBranch, logger)
	}

	writeJSON(w, 202, map[string]any{"status": "processing"})
}

func (s *server) handleFileStore(w http.ResponseWriter, r *http.Request) {
	body, _ := requestBodyFrom(r)
	logger := requestLogger(r)

	sessionID, err := getString(body.Metadata, "sessionId")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	fileName, err := getString(body.Metadata, "fileName")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	size, err := getInt64(body.Metadata, "size")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	sha256Hex, err := getString(body.Metadata, "sha256")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if size <= 0 {
		writeError(w, logger, relayerror.InvalidInput("size must be positive, got %d", size))
		return
	}
	if size > s.cfg.MaxFileSizeBytes {
		writeError(w, logger, relayerror.FileTooLarge(size, s.cfg.MaxFileSizeBytes))
		return
	}
	if !sha256HexPattern.MatchString(strings.ToLower(sha256Hex)) {
		writeError(w, logger, relayerror.InvalidInput("sha256 %q is not a 64-character hex digest", sha256Hex))
		return
	}

	started, err := s.sessions.StartProcessing(sessionID, "processing")
	if err != nil {
		writeError(w, logger, err)
		return
	}
	if started {
		go s.finalizeStore(sessionID, fileName, size, sha256Hex, logger)
	}

	writeJSON(w, 202, map[string]any{"status": "processing"})
}

func (s *server) handleRemoteInfo(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r)

	repoField := r.URL.Query().Get("repo")
	branch := r.URL.Query().Get("branch")
	if repoField == "" || branch == "" {
		writeError(w, logger, relayerror.InvalidInput("repo and branch query parameters are required"))
		return
	}
	owner, repo, err := splitRepo(repoField)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	sha, err := s.repos.RemoteInfo(r.Context(), owner, repo, branch)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, 200, map[string]string{"sha": sha})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r)

	sessionID := r.PathValue("sessionId")
	snapshot, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, 200, map[string]any{
		"sessionId": snapshot.SessionID,
		"status":    snapshot.Status,
		"message":   snapshot.Message,
		"details":   snapshot.Details,
	})
}

// splitRepo parses a "owner/repo" string into its two components.
func splitRepo(repoField string) (owner, repo string, err error) {
	parts := strings.Split(repoField, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", relayerror.InvalidInput("repo %q must be in owner/repo form", repoField)
	}
	return parts[0], parts[1], nil
}
