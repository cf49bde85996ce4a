package gitrelay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packfwd/relay/lib/relayerror"
	"github.com/packfwd/relay/lib/secret"
)

// Manager clones, fetches, and checks out managed repository working
// copies under reposRoot. Callers are responsible for serializing all
// operations against the same "owner/repo" key, typically with
// [github.com/packfwd/relay/lib/repolock].
type Manager struct {
	reposRoot string
	pat       *secret.Buffer

	authorName     string
	authorEmail    string
	committerName  string
	committerEmail string

	runner commandRunner
}

// NewManager returns a Manager rooted at reposRoot, authenticating
// clone/push URLs with pat and stamping commits with the given
// identity. pat is read for the lifetime of the Manager; the caller
// retains ownership and must Close it on shutdown.
func NewManager(reposRoot string, pat *secret.Buffer, authorName, authorEmail, committerName, committerEmail string) *Manager {
	return &Manager{
		reposRoot:      reposRoot,
		pat:            pat,
		authorName:     authorName,
		authorEmail:    authorEmail,
		committerName:  committerName,
		committerEmail: committerEmail,
		runner:         execRunner{},
	}
}

// identityEnv returns the GIT_AUTHOR_*/GIT_COMMITTER_* environment
// entries every git invocation that creates a commit needs.
func (m *Manager) identityEnv() []string {
	return []string{
		"GIT_AUTHOR_NAME=" + m.authorName,
		"GIT_AUTHOR_EMAIL=" + m.authorEmail,
		"GIT_COMMITTER_NAME=" + m.committerName,
		"GIT_COMMITTER_EMAIL=" + m.committerEmail,
	}
}

// repoDir returns the working-directory path for owner/repo.
func (m *Manager) repoDir(owner, repo string) string {
	return filepath.Join(m.reposRoot, owner, repo)
}

// authenticatedURL embeds the configured PAT into an HTTPS clone/push
// URL as the x-access-token credential.
func (m *Manager) authenticatedURL(owner, repo string) string {
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", m.pat.String(), owner, repo)
}

// redact strips the configured PAT out of an error's text before it is
// allowed to propagate, since git prints the full remote URL (PAT
// included) into its own error and progress output on failure.
func (m *Manager) redact(err error) error {
	if err == nil {
		return nil
	}
	patValue := m.pat.String()
	if patValue == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), patValue, "***"))
}

// GetRepo clones owner/repo on first use, or fetches and resets it on
// every subsequent call, then checks out branch reset to
// origin/baseBranch. It returns the working-directory path. Callers
// must hold the per-repo lock for "owner/repo" across this call and
// anything done with the returned directory.
func (m *Manager) GetRepo(ctx context.Context, owner, repo, branch, baseBranch string) (string, error) {
	dir := m.repoDir(owner, repo)
	url := m.authenticatedURL(owner, repo)

	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return "", relayerror.GitError("mkdir", err)
		}
		if _, err := m.runner.run(ctx, filepath.Dir(dir), nil, "clone", url, repo); err != nil {
			return "", relayerror.GitError("clone", m.redact(err))
		}
	} else {
		if _, err := m.runner.run(ctx, dir, nil, "fetch", "origin"); err != nil {
			return "", relayerror.GitError("fetch", m.redact(err))
		}
	}

	if _, err := m.runner.run(ctx, dir, nil, "checkout", "-B", branch, "origin/"+baseBranch); err != nil {
		return "", relayerror.GitError("checkout", m.redact(err))
	}

	return dir, nil
}
