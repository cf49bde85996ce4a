// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/filestore"
	"github.com/packfwd/relay/lib/gitrelay"
	"github.com/packfwd/relay/lib/github"
	"github.com/packfwd/relay/lib/relayconfig"
	"github.com/packfwd/relay/lib/repolock"
	"github.com/packfwd/relay/lib/sessionstore"
	"github.com/packfwd/relay/lib/transportcrypto"
)

// server holds every dependency a route handler or background finalize
// task needs. One server is built in main and lives for the process
// lifetime.
type server struct {
	cfg       *relayconfig.Config
	logger    *slog.Logger
	clock     clock.Clock
	sessions  *sessionstore.Store
	decryptor *transportcrypto.Decryptor
	repos     *gitrelay.Manager
	locks     *repolock.Locker
	files     *filestore.Store
	github    *github.Client
	startedAt time.Time
}

func newServer(
	cfg *relayconfig.Config,
	logger *slog.Logger,
	clk clock.Clock,
	sessions *sessionstore.Store,
	decryptor *transportcrypto.Decryptor,
	repos *gitrelay.Manager,
	locks *repolock.Locker,
	files *filestore.Store,
	githubClient *github.Client,
) *server {
	return &server{
		cfg:       cfg,
		logger:    logger,
		clock:     clk,
		sessions:  sessions,
		decryptor: decryptor,
		repos:     repos,
		locks:     locks,
		files:     files,
		github:    githubClient,
		startedAt: clk.Now(),
	}
}
