// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/packfwd/relay/lib/github"
	"github.com/packfwd/relay/lib/sessionstore"
)

// finalizePush runs the background task scheduled by POST
// /api/gr/process: reassemble the session's bundle, serialize it
// against every other finalize task for the same repository, apply
// and push it, and record the outcome on the session. It outlives the
// HTTP request that scheduled it, so it carries its own context and
// reports everything through the session store rather than a response
// writer.
func (s *server) finalizePush(sessionID, owner, repo, branch, baseBranch string, logger *slog.Logger) {
	ctx := context.Background()
	logger = logger.With("session_id", sessionID, "owner", owner, "repo", repo)

	bundle, err := s.sessions.Reassemble(sessionID)
	if err != nil {
		s.failSession(sessionID, err, logger)
		return
	}

	repoKey := owner + "/" + repo
	unlock, err := s.locks.Lock(ctx, repoKey)
	if err != nil {
		s.failSession(sessionID, err, logger)
		return
	}
	defer unlock()

	workingDir, err := s.repos.GetRepo(ctx, owner, repo, branch, baseBranch)
	if err != nil {
		s.failSession(sessionID, err, logger)
		return
	}

	sha, err := s.repos.ApplyBundle(ctx, workingDir, bundle, branch, sessionID)
	if err != nil {
		s.failSession(sessionID, err, logger)
		return
	}

	commitURL := fmt.Sprintf("https://github.com/%s/%s/commit/%s", owner, repo, sha)
	if err := s.sessions.SetStatus(sessionID, sessionstore.StatusPushed, "pushed", map[string]any{
		"commitSha": sha,
		"commitUrl": commitURL,
	}); err != nil {
		logger.Warn("setStatus after push failed", "error", err)
	}
	logger.Info("finalize push succeeded", "commit_sha", sha)

	s.postCommitStatus(ctx, owner, repo, sha, commitURL, logger)
}

// postCommitStatus posts a best-effort GitHub commit status. The push
// itself already succeeded by the time this runs, so any failure here
// (e.g. the PAT lacks repo:status scope) is logged and swallowed.
func (s *server) postCommitStatus(ctx context.Context, owner, repo, sha, commitURL string, logger *slog.Logger) {
	_, err := s.github.CreateCommitStatus(ctx, owner, repo, sha, github.CreateStatusRequest{
		State:       "success",
		TargetURL:   commitURL,
		Description: "applied and pushed by relay",
		Context:     "relay/finalize",
	})
	if err != nil {
		logger.Warn("posting commit status failed", "error", err)
	}
}

// finalizeStore runs the background task scheduled by POST
// /api/file/store: reassemble the session's chunks, validate and
// write them under the dated file-store tree, and record the outcome.
func (s *server) finalizeStore(sessionID, fileName string, size int64, sha256Hex string, logger *slog.Logger) {
	logger = logger.With("session_id", sessionID, "file_name", fileName)

	result, err := s.files.StoreFile(s.sessions, sessionID, fileName, size, sha256Hex)
	if err != nil {
		s.failSession(sessionID, err, logger)
		return
	}

	if err := s.sessions.SetStatus(sessionID, sessionstore.StatusStored, "stored", map[string]any{
		"storedPath": result.StoredPath,
		"storedSize": result.StoredSize,
	}); err != nil {
		logger.Warn("setStatus after store failed", "error", err)
	}
	logger.Info("finalize store succeeded", "stored_path", result.StoredPath)
}

func (s *server) failSession(sessionID string, err error, logger *slog.Logger) {
	logger.Error("finalize failed", "error", err)
	s.sessions.SetFailed(sessionID, err.Error())
}
