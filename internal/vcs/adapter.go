// Package vcs is the boundary between the fleet engine and the version
// control tool. Adapter methods never return raw tool faults: queries degrade
// to empty values and mutations report an Outcome.
package vcs

import (
	"context"
	"log/slog"
	"time"

	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/logging"
	"github.com/skaphos/gitfleet/internal/model"
)

// Outcome is the result of a mutating call: either success with the tool's
// message, or failure with its error text and class.
type Outcome struct {
	OK         bool
	Message    string
	Error      string
	ErrorClass string
}

// Succeeded builds a successful Outcome.
func Succeeded(message string) Outcome { return Outcome{OK: true, Message: message} }

// Failed builds a failed Outcome.
func Failed(text, class string) Outcome {
	return Outcome{Error: text, ErrorClass: class}
}

// Adapter defines the VCS operations gitfleet relies on.
type Adapter interface {
	Name() string
	// MetadataDir is the directory name that marks a working-copy root.
	MetadataDir() string

	StatusProbe(ctx context.Context, dir string) (model.Probe, error)
	AheadBehind(ctx context.Context, dir string) (ahead, behind int, ok bool)
	HasRemotes(ctx context.Context, dir string) bool
	IsDetached(ctx context.Context, dir string) bool
	CurrentBranch(ctx context.Context, dir string) string
	LastCommitDate(ctx context.Context, dir string) *time.Time

	StagedFiles(ctx context.Context, dir string) []model.FileChange
	UnstagedFiles(ctx context.Context, dir string) []model.FileChange
	UntrackedFiles(ctx context.Context, dir string) []string

	ConfigWithOrigin(ctx context.Context, dir, key string) model.ConfigValue
	LocalConfig(ctx context.Context, dir, key string) string
	GlobalConfig(ctx context.Context, key string) string

	MergeBase(ctx context.Context, dir string) (string, bool)
	ChangedFiles(ctx context.Context, dir, from, to string) []string
	DirtyFiles(ctx context.Context, dir string) []string
	// UpstreamRef names the current branch's upstream in ChangedFiles calls.
	UpstreamRef() string

	Remotes(ctx context.Context, dir string) []model.Remote

	Fetch(ctx context.Context, dir string) Outcome
	Pull(ctx context.Context, dir string) Outcome
	Push(ctx context.Context, dir string) Outcome
}

// GitAdapter implements Adapter using the git CLI via gitx.
type GitAdapter struct {
	Runner gitx.Runner
	Logger *slog.Logger
}

// NewGitAdapter wraps runner. A nil runner shells out to git with no timeout;
// a nil logger discards query failures.
func NewGitAdapter(runner gitx.Runner, logger *slog.Logger) *GitAdapter {
	if runner == nil {
		runner = &gitx.GitRunner{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &GitAdapter{Runner: runner, Logger: logger}
}

func (g *GitAdapter) Name() string { return "git" }

func (g *GitAdapter) MetadataDir() string { return ".git" }

func (g *GitAdapter) UpstreamRef() string { return gitx.UpstreamRef }

func classify(text string, err error) string {
	if class := gitx.ClassifyError(err); class != gitx.ClassUnknown {
		return class
	}
	return gitx.ClassifyText(text)
}

func (g *GitAdapter) queryFailed(dir, op string, err error) {
	g.Logger.Debug("git query failed", "repo", dir, "op", op, "error", err)
}

func (g *GitAdapter) StatusProbe(ctx context.Context, dir string) (model.Probe, error) {
	return gitx.Status(ctx, g.Runner, dir)
}

func (g *GitAdapter) AheadBehind(ctx context.Context, dir string) (int, int, bool) {
	ahead, behind, err := gitx.AheadBehind(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "rev-list", err)
		return 0, 0, false
	}
	return ahead, behind, true
}

func (g *GitAdapter) HasRemotes(ctx context.Context, dir string) bool {
	names, err := gitx.RemoteNames(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "remote", err)
		return false
	}
	return len(names) > 0
}

func (g *GitAdapter) IsDetached(ctx context.Context, dir string) bool {
	detached, err := gitx.IsDetached(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "symbolic-ref", err)
		return false
	}
	return detached
}

func (g *GitAdapter) CurrentBranch(ctx context.Context, dir string) string {
	branch, err := gitx.CurrentBranch(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "rev-parse", err)
		return ""
	}
	return branch
}

func (g *GitAdapter) LastCommitDate(ctx context.Context, dir string) *time.Time {
	ts, err := gitx.LastCommitDate(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "log", err)
		return nil
	}
	return ts
}

func (g *GitAdapter) StagedFiles(ctx context.Context, dir string) []model.FileChange {
	changes, err := gitx.StagedFiles(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "diff --cached", err)
		return nil
	}
	return changes
}

func (g *GitAdapter) UnstagedFiles(ctx context.Context, dir string) []model.FileChange {
	changes, err := gitx.UnstagedFiles(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "diff", err)
		return nil
	}
	return changes
}

func (g *GitAdapter) UntrackedFiles(ctx context.Context, dir string) []string {
	files, err := gitx.UntrackedFiles(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "ls-files", err)
		return nil
	}
	return files
}

// ConfigWithOrigin returns an empty value when key is unset.
func (g *GitAdapter) ConfigWithOrigin(ctx context.Context, dir, key string) model.ConfigValue {
	value, err := gitx.ConfigWithOrigin(ctx, g.Runner, dir, key)
	if err != nil {
		// git config exits 1 for unset keys.
		if gitx.ExitCode(err) != 1 {
			g.queryFailed(dir, "config "+key, err)
		}
		return model.ConfigValue{}
	}
	return value
}

func (g *GitAdapter) LocalConfig(ctx context.Context, dir, key string) string {
	value, err := gitx.LocalConfig(ctx, g.Runner, dir, key)
	if err != nil {
		return ""
	}
	return value
}

func (g *GitAdapter) GlobalConfig(ctx context.Context, key string) string {
	value, err := gitx.GlobalConfig(ctx, g.Runner, key)
	if err != nil {
		return ""
	}
	return value
}

func (g *GitAdapter) MergeBase(ctx context.Context, dir string) (string, bool) {
	base, err := gitx.MergeBase(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "merge-base", err)
		return "", false
	}
	return base, true
}

func (g *GitAdapter) ChangedFiles(ctx context.Context, dir, from, to string) []string {
	files, err := gitx.ChangedFiles(ctx, g.Runner, dir, from, to)
	if err != nil {
		g.queryFailed(dir, "diff --name-only", err)
		return nil
	}
	return files
}

func (g *GitAdapter) DirtyFiles(ctx context.Context, dir string) []string {
	files, err := gitx.DirtyFiles(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "dirty files", err)
		return nil
	}
	return files
}

func (g *GitAdapter) Remotes(ctx context.Context, dir string) []model.Remote {
	remotes, err := gitx.Remotes(ctx, g.Runner, dir)
	if err != nil {
		g.queryFailed(dir, "remote", err)
		return nil
	}
	return remotes
}

func (g *GitAdapter) Fetch(ctx context.Context, dir string) Outcome {
	text, err := gitx.FetchAll(ctx, g.Runner, dir)
	if err != nil {
		return Failed(text, classify(text, err))
	}
	return Succeeded("Fetched successfully")
}

func (g *GitAdapter) Pull(ctx context.Context, dir string) Outcome {
	text, err := gitx.Pull(ctx, g.Runner, dir)
	if err != nil {
		return Failed(text, classify(text, err))
	}
	return Succeeded(text)
}

func (g *GitAdapter) Push(ctx context.Context, dir string) Outcome {
	text, err := gitx.Push(ctx, g.Runner, dir)
	if err != nil {
		return Failed(text, classify(text, err))
	}
	return Succeeded(text)
}
