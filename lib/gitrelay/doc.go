// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitrelay drives the installed git binary to clone, fetch,
// bundle-import, and push managed repository clones.
//
// Manager.GetRepo clones a repository on first use and fetches+resets
// it on every later call, returning the working-directory path for the
// caller to act on under a [github.com/packfwd/relay/lib/repolock]
// critical section keyed by "owner/repo". ApplyBundle, ApplyPatch,
// PushBranch, and RemoteInfo are the individual git-subprocess
// collaborators a caller composes inside that section; every one of
// them reports failure as relayerror.GitError, and every temp file or
// directory they create is removed on every exit path, including
// error returns.
//
// Command execution is abstracted behind the commandRunner interface
// so unit tests can substitute a scripted fake instead of shelling out
// to git; a second layer of tests runs these operations against a real
// git binary and a throwaway bare repository.
package gitrelay
