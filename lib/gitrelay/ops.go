package gitrelay

import (
	"context"
	"os"
	"strings"

	"github.com/packfwd/relay/lib/relayerror"
)

// ApplyPatch writes mboxBytes to a temp file inside repoDir and applies
// it with "git am --3way --committer-date-is-author-date". On failure
// it runs "git am --abort" (ignoring that command's own failure) to
// leave the working copy clean before surfacing a GIT_ERROR.
func (m *Manager) ApplyPatch(ctx context.Context, repoDir string, mboxBytes []byte) error {
	tmpFile, err := os.CreateTemp(repoDir, "relay-patch-*.mbox")
	if err != nil {
		return relayerror.GitError("am", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(mboxBytes); err != nil {
		tmpFile.Close()
		return relayerror.GitError("am", err)
	}
	if err := tmpFile.Close(); err != nil {
		return relayerror.GitError("am", err)
	}

	if _, err := m.runner.run(ctx, repoDir, m.identityEnv(), "am", "--3way", "--committer-date-is-author-date", tmpPath); err != nil {
		m.runner.run(ctx, repoDir, nil, "am", "--abort")
		return relayerror.GitError("am", m.redact(err))
	}
	return nil
}

// PushBranch force-with-lease pushes branch to origin and returns the
// resulting HEAD SHA.
func (m *Manager) PushBranch(ctx context.Context, repoDir, branch string) (string, error) {
	if _, err := m.runner.run(ctx, repoDir, m.identityEnv(), "push", "--force-with-lease", "origin", branch); err != nil {
		return "", relayerror.GitError("push", m.redact(err))
	}
	sha, err := m.runner.run(ctx, repoDir, nil, "rev-parse", "HEAD")
	if err != nil {
		return "", relayerror.GitError("rev-parse", m.redact(err))
	}
	return strings.TrimSpace(sha), nil
}

// ApplyBundle imports bundleBytes into a session-scoped ref without
// touching the working tree, then pushes that ref onto branch and
// deletes it. The returned SHA is the commit pushed to branch.
func (m *Manager) ApplyBundle(ctx context.Context, repoDir string, bundleBytes []byte, branch, sessionID string) (string, error) {
	tmpFile, err := os.CreateTemp(repoDir, "relay-bundle-*.bundle")
	if err != nil {
		return "", relayerror.GitError("bundle-verify", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(bundleBytes); err != nil {
		tmpFile.Close()
		return "", relayerror.GitError("bundle-verify", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", relayerror.GitError("bundle-verify", err)
	}

	if _, err := m.runner.run(ctx, repoDir, nil, "bundle", "verify", tmpPath); err != nil {
		return "", relayerror.GitError("bundle-verify", m.redact(err))
	}

	relayRef := "refs/relay/" + sessionID
	if _, err := m.runner.run(ctx, repoDir, nil, "fetch", tmpPath, branch+":"+relayRef); err != nil {
		return "", relayerror.GitError("bundle-fetch", m.redact(err))
	}

	sha, err := m.runner.run(ctx, repoDir, nil, "rev-parse", relayRef)
	if err != nil {
		return "", relayerror.GitError("rev-parse", m.redact(err))
	}
	sha = strings.TrimSpace(sha)

	if _, err := m.runner.run(ctx, repoDir, m.identityEnv(), "push", "origin", relayRef+":refs/heads/"+branch); err != nil {
		return "", relayerror.GitError("push", m.redact(err))
	}

	// Cleanup of the scratch ref is non-fatal to a push that already
	// succeeded.
	m.runner.run(ctx, repoDir, nil, "update-ref", "-d", relayRef)

	return sha, nil
}

// RemoteInfo returns the SHA that branch currently points to on
// owner/repo's remote, or "" if the branch does not exist there.
func (m *Manager) RemoteInfo(ctx context.Context, owner, repo, branch string) (string, error) {
	url := m.authenticatedURL(owner, repo)
	output, err := m.runner.run(ctx, "", nil, "ls-remote", url, "refs/heads/"+branch)
	if err != nil {
		return "", relayerror.GitError("ls-remote", m.redact(err))
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return "", nil
	}
	tabIndex := strings.IndexByte(output, '\t')
	if tabIndex < 0 {
		return "", nil
	}
	return output[:tabIndex], nil
}

// RepoDir exposes the working-directory path a prior GetRepo call for
// owner/repo returned, for callers that need to recompute it without
// threading the string through every call.
func (m *Manager) RepoDir(owner, repo string) string {
	return m.repoDir(owner, repo)
}
