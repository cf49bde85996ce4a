package gitrelay

import (
	"context"
	"fmt"
	"strings"
)

// scriptedRunner is a fake commandRunner for narrow unit tests that
// don't need a real git binary. Each call is matched against script by
// its full argument list (joined with spaces); handlers run in the
// order they were registered for a given key and are consumed on use,
// so a command invoked twice can return different results each time.
type scriptedRunner struct {
	handlers map[string][]func(dir string) (string, error)
	calls    []string
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{handlers: make(map[string][]func(dir string) (string, error))}
}

func (r *scriptedRunner) on(args string, result string, err error) *scriptedRunner {
	r.handlers[args] = append(r.handlers[args], func(string) (string, error) { return result, err })
	return r
}

func (r *scriptedRunner) run(_ context.Context, dir string, _ []string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)

	queue := r.handlers[key]
	if len(queue) == 0 {
		return "", fmt.Errorf("scriptedRunner: no handler registered for %q", key)
	}
	r.handlers[key] = queue[1:]
	return queue[0](dir)
}
