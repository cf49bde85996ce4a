package gitrelay

import (
	"context"
	"strings"
	"testing"

	"github.com/packfwd/relay/lib/relayerror"
)

func TestApplyPatch_Success(t *testing.T) {
	spy := &applyPatchSpy{}
	manager, _ := newTestManager(t, spy)
	repoDir := t.TempDir()

	if err := manager.ApplyPatch(context.Background(), repoDir, []byte("From abc\n")); err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if len(spy.amArgs) == 0 {
		t.Fatal("expected an am invocation")
	}
	if !strings.Contains(spy.amArgs[len(spy.amArgs)-1], ".mbox") {
		t.Errorf("am args = %v, want last arg to reference the temp mbox file", spy.amArgs)
	}
	if spy.abortCalled {
		t.Error("am --abort should not run on success")
	}
}

func TestApplyPatch_AbortsOnFailure(t *testing.T) {
	spy := &applyPatchSpy{amErr: &fakeGitError{msg: "patch does not apply"}}
	manager, _ := newTestManager(t, spy)
	repoDir := t.TempDir()

	err := manager.ApplyPatch(context.Background(), repoDir, []byte("From abc\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !spy.abortCalled {
		t.Error("expected git am --abort to run after a failed am")
	}
	relayErr, ok := relayerror.As(err)
	if !ok || relayErr.Code != relayerror.CodeGitError {
		t.Errorf("expected CodeGitError, got %v", err)
	}
}

// applyPatchSpy is a narrow fake that records am/am-abort invocations
// without needing to predict the generated temp file path.
type applyPatchSpy struct {
	amArgs      []string
	amErr       error
	abortCalled bool
}

func (s *applyPatchSpy) run(_ context.Context, _ string, _ []string, args ...string) (string, error) {
	if len(args) > 0 && args[0] == "am" {
		if len(args) > 1 && args[1] == "--abort" {
			s.abortCalled = true
			return "", nil
		}
		s.amArgs = args
		return "", s.amErr
	}
	return "", nil
}

func TestPushBranch_ReturnsHeadSHA(t *testing.T) {
	runner := newScriptedRunner()
	manager, _ := newTestManager(t, runner)
	repoDir := t.TempDir()

	runner.on("push --force-with-lease origin feature", "", nil)
	runner.on("rev-parse HEAD", "deadbeef\n", nil)

	sha, err := manager.PushBranch(context.Background(), repoDir, "feature")
	if err != nil {
		t.Fatalf("PushBranch: %v", err)
	}
	if sha != "deadbeef" {
		t.Errorf("sha = %q, want deadbeef", sha)
	}
}

func TestPushBranch_PushFailureSurfacesGitError(t *testing.T) {
	runner := newScriptedRunner()
	manager, _ := newTestManager(t, runner)
	repoDir := t.TempDir()

	runner.on("push --force-with-lease origin feature", "", &fakeGitError{msg: "stale info"})

	_, err := manager.PushBranch(context.Background(), repoDir, "feature")
	if err == nil {
		t.Fatal("expected error")
	}
	relayErr, ok := relayerror.As(err)
	if !ok || relayErr.Code != relayerror.CodeGitError {
		t.Errorf("expected CodeGitError, got %v", err)
	}
}

func TestApplyBundle_FullSequence(t *testing.T) {
	spy := &applyBundleSpy{sha: "cafef00d"}
	manager, _ := newTestManager(t, spy)
	repoDir := t.TempDir()

	sha, err := manager.ApplyBundle(context.Background(), repoDir, []byte("bundle bytes"), "feature", "sess-1")
	if err != nil {
		t.Fatalf("ApplyBundle: %v", err)
	}
	if sha != "cafef00d" {
		t.Errorf("sha = %q, want cafef00d", sha)
	}
	if !spy.verified || !spy.fetched || !spy.pushed || !spy.refDeleted {
		t.Errorf("spy state = %+v, want every step to have run", spy)
	}
}

func TestApplyBundle_CleansUpRefOnlyAfterPush(t *testing.T) {
	spy := &applyBundleSpy{sha: "cafef00d", pushErr: &fakeGitError{msg: "rejected"}}
	manager, _ := newTestManager(t, spy)
	repoDir := t.TempDir()

	_, err := manager.ApplyBundle(context.Background(), repoDir, []byte("bundle bytes"), "feature", "sess-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if spy.refDeleted {
		t.Error("ref cleanup should not run when push itself fails")
	}
}

type applyBundleSpy struct {
	sha        string
	verifyErr  error
	fetchErr   error
	pushErr    error
	verified   bool
	fetched    bool
	pushed     bool
	refDeleted bool
}

func (s *applyBundleSpy) run(_ context.Context, _ string, _ []string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	switch args[0] {
	case "bundle":
		s.verified = true
		return "", s.verifyErr
	case "fetch":
		s.fetched = true
		return "", s.fetchErr
	case "rev-parse":
		return s.sha + "\n", nil
	case "push":
		s.pushed = true
		return "", s.pushErr
	case "update-ref":
		s.refDeleted = true
		return "", nil
	}
	return "", nil
}
