// SPDX-License-Identifier: MIT
package gitx

import (
	"context"
	"errors"
	"strings"
)

// Error classes reported alongside failed operations.
const (
	ClassAuth          = "auth"
	ClassNetwork       = "network"
	ClassTimeout       = "timeout"
	ClassCorrupt       = "corrupt"
	ClassMissingRemote = "missing_remote"
	ClassUnknown       = "unknown"
)

var (
	// ErrAuthFailure marks authentication/authorization failures.
	ErrAuthFailure = errors.New("git auth error")
	// ErrNetworkFailure marks network/transport failures.
	ErrNetworkFailure = errors.New("git network error")
	// ErrCorruptRepo marks corrupt or invalid-repository failures.
	ErrCorruptRepo = errors.New("git corrupt repository")
	// ErrMissingRemoteRef marks missing upstream/ref/remote failures.
	ErrMissingRemoteRef = errors.New("git missing remote")
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{ErrAuthFailure, ClassAuth},
	{ErrNetworkFailure, ClassNetwork},
	{ErrCorruptRepo, ClassCorrupt},
	{ErrMissingRemoteRef, ClassMissingRemote},
}

// Checked in order; the first rule with a matching needle wins.
var messageRules = []struct {
	class   string
	needles []string
}{
	{ClassAuth, []string{"permission denied", "authentication failed", "access denied", "publickey", "could not read username", "credential", "terminal prompts disabled"}},
	{ClassNetwork, []string{"could not resolve host", "network is unreachable", "connection timed out", "connection refused", "failed to connect", "temporary failure in name resolution", "tls handshake timeout"}},
	{ClassTimeout, []string{"timeout", "timed out", "deadline exceeded", "signal: killed"}},
	{ClassCorrupt, []string{"not a git repository", "bad object", "corrupt", "object file"}},
	{ClassMissingRemote, []string{"repository not found", "couldn't find remote ref", "remote ref does not exist", "no such remote", "no upstream configured", "no tracking information", "does not appear to be a git repository"}},
}

// ClassifyError maps git/process errors into broad actionable categories.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout
	}
	for _, s := range sentinelClasses {
		if errors.Is(err, s.err) {
			return s.class
		}
	}
	return ClassifyText(err.Error())
}

// ClassifyText applies the message heuristics of ClassifyError to raw tool output.
func ClassifyText(text string) string {
	msg := strings.ToLower(text)
	for _, rule := range messageRules {
		if containsAny(msg, rule.needles...) {
			return rule.class
		}
	}
	return ClassUnknown
}

func containsAny(msg string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
