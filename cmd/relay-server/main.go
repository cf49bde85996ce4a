// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packfwd/relay/lib/clock"
	"github.com/packfwd/relay/lib/filestore"
	"github.com/packfwd/relay/lib/gitrelay"
	"github.com/packfwd/relay/lib/github"
	"github.com/packfwd/relay/lib/process"
	"github.com/packfwd/relay/lib/relayconfig"
	"github.com/packfwd/relay/lib/repolock"
	"github.com/packfwd/relay/lib/service"
	"github.com/packfwd/relay/lib/sessionstore"
	"github.com/packfwd/relay/lib/transportcrypto"
	"github.com/packfwd/relay/lib/version"
	"github.com/spf13/pflag"
)

const sweepInterval = 60 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion, showConfig bool
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.BoolVar(&showConfig, "print-config", false, "print the resolved configuration (secrets redacted) and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("relay-server %s\n", version.Info())
		return nil
	}

	cfg, err := relayconfig.Load()
	if err != nil {
		return err
	}
	defer cfg.Close()

	if showConfig {
		return printConfig(cfg)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	clk := clock.Real()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := sessionstore.New(cfg.SessionsDir, cfg.SessionTTL, clk, logger)
	if err != nil {
		return fmt.Errorf("starting session store: %w", err)
	}

	decryptor, err := transportcrypto.NewDecryptor(
		cfg.CryptoMode, cfg.EncryptionKey, cfg.TransportPrivateKeyDER, cfg.TransportKeyID,
		cfg.ReplayTTL, cfg.ClockSkew, clk,
	)
	if err != nil {
		return fmt.Errorf("starting transport decryptor: %w", err)
	}

	repos := gitrelay.NewManager(
		cfg.ReposDir, cfg.GitHubPAT,
		cfg.GitAuthorName, cfg.GitAuthorEmail, cfg.GitCommitterName, cfg.GitCommitterEmail,
	)
	locks := repolock.New()
	files := filestore.New(cfg.FileStorageDir, cfg.MaxFileSizeBytes, clk)

	githubClient, err := github.NewClient(github.Config{
		Token:  cfg.GitHubPAT.String(),
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("starting GitHub client: %w", err)
	}

	srv := newServer(cfg, logger, clk, sessions, decryptor, repos, locks, files, githubClient)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address: fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.routes(),
		Logger:  logger,
	})

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.Serve(ctx)
	}()

	go sessions.Run(ctx, sweepInterval)
	go decryptor.ReplayCache().Run(ctx, sweepInterval)

	select {
	case <-httpServer.Ready():
		logger.Info("relay-server ready", "address", httpServer.Addr().String())
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-httpDone; err != nil {
		logger.Error("http server error", "error", err)
	}

	return nil
}
