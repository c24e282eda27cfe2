package gitx_test

import (
	"context"
	"fmt"
	"strings"
)

// MockRunner implements gitx.Runner for testing.
type MockRunner struct {
	// Responses maps "dir:args" keys to canned results.
	Responses map[string]MockResponse
	// Calls records every key that was requested, in order.
	Calls []string
}

type MockResponse struct {
	Stdout string
	Stderr string
	Err    error
}

func (m *MockRunner) Run(_ context.Context, dir string, args ...string) (string, string, error) {
	key := dir + ":" + strings.Join(args, " ")
	m.Calls = append(m.Calls, key)
	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}
	// Also try without dir for convenience
	keyNoDir := ":" + strings.Join(args, " ")
	if resp, ok := m.Responses[keyNoDir]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}
	return "", "", fmt.Errorf("unexpected call: dir=%q args=%v", dir, args)
}
