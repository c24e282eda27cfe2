// Package gitx provides helpers for executing git commands and parsing
// their output. It shells out to the installed git binary.
package gitx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skaphos/gitfleet/internal/model"
)

// UpstreamRef is the revision syntax for the current branch's upstream.
const UpstreamRef = "@{u}"

// FetchAll fetches every remote and prunes deleted remote branches. On
// failure the returned text is the tool's error output.
func FetchAll(ctx context.Context, r Runner, dir string) (string, error) {
	stdout, stderr, err := r.Run(ctx, dir, "fetch", "--all", "--prune")
	if err != nil {
		return OutputText(stdout, stderr, err), err
	}
	return strings.TrimSpace(stdout), nil
}

// Status runs one combined status invocation and parses it.
func Status(ctx context.Context, r Runner, dir string) (model.Probe, error) {
	out, _, err := r.Run(ctx, dir, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return model.Probe{}, fmt.Errorf("git status: %w", err)
	}
	return ParsePorcelainV2(out), nil
}

// CurrentBranch returns the abbreviated name of HEAD ("HEAD" when detached).
func CurrentBranch(ctx context.Context, r Runner, dir string) (string, error) {
	out, _, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Upstream returns the upstream of the current branch, e.g. "origin/main".
func Upstream(ctx context.Context, r Runner, dir string) (string, error) {
	out, _, err := r.Run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", UpstreamRef)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// AheadBehind counts commits on each side of the current branch and its upstream.
func AheadBehind(ctx context.Context, r Runner, dir string) (int, int, error) {
	out, _, err := r.Run(ctx, dir, "rev-list", "--left-right", "--count", UpstreamRef+"...HEAD")
	if err != nil {
		return 0, 0, err
	}
	ahead, behind, ok := ParseRevListCount(out)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(out))
	}
	return ahead, behind, nil
}

// StagedFiles lists changes in the index.
func StagedFiles(ctx context.Context, r Runner, dir string) ([]model.FileChange, error) {
	out, _, err := r.Run(ctx, dir, "diff", "--cached", "--name-status")
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(out), nil
}

// UnstagedFiles lists changes in the working tree that are not staged.
func UnstagedFiles(ctx context.Context, r Runner, dir string) ([]model.FileChange, error) {
	out, _, err := r.Run(ctx, dir, "diff", "--name-status")
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(out), nil
}

// UntrackedFiles lists untracked files, honoring ignore rules.
func UntrackedFiles(ctx context.Context, r Runner, dir string) ([]string, error) {
	out, _, err := r.Run(ctx, dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}

// LastCommitDate returns the committer date of HEAD.
func LastCommitDate(ctx context.Context, r Runner, dir string) (*time.Time, error) {
	out, _, err := r.Run(ctx, dir, "log", "-1", "--format=%cI")
	if err != nil {
		return nil, err
	}
	return ParseCommitDate(out), nil
}

// ConfigWithOrigin looks up key together with the file that set it.
func ConfigWithOrigin(ctx context.Context, r Runner, dir, key string) (model.ConfigValue, error) {
	out, _, err := r.Run(ctx, dir, "config", "--show-origin", key)
	if err != nil {
		return model.ConfigValue{}, err
	}
	value, ok := ParseShowOrigin(out)
	if !ok {
		return model.ConfigValue{}, fmt.Errorf("unexpected show-origin output %q", strings.TrimSpace(out))
	}
	return value, nil
}

// LocalConfig reads key from the repository's own config file only.
func LocalConfig(ctx context.Context, r Runner, dir, key string) (string, error) {
	out, _, err := r.Run(ctx, dir, "config", "--local", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GlobalConfig reads key from the user's global config.
func GlobalConfig(ctx context.Context, r Runner, key string) (string, error) {
	out, _, err := r.Run(ctx, "", "config", "--global", key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// MergeBase returns the common ancestor of HEAD and its upstream.
func MergeBase(ctx context.Context, r Runner, dir string) (string, error) {
	out, _, err := r.Run(ctx, dir, "merge-base", "HEAD", UpstreamRef)
	if err != nil {
		return "", err
	}
	base := strings.TrimSpace(out)
	if base == "" {
		return "", fmt.Errorf("git merge-base: empty output")
	}
	return base, nil
}

// ChangedFiles lists file names that differ between two revisions.
func ChangedFiles(ctx context.Context, r Runner, dir, from, to string) ([]string, error) {
	out, _, err := r.Run(ctx, dir, "diff", "--name-only", from, to)
	if err != nil {
		return nil, err
	}
	return ParseLines(out), nil
}

// DirtyFiles lists every file with a staged, unstaged, or untracked change.
func DirtyFiles(ctx context.Context, r Runner, dir string) ([]string, error) {
	out, _, err := r.Run(ctx, dir, "diff", "--name-only", "HEAD")
	if err != nil {
		return nil, err
	}
	files := ParseLines(out)
	untracked, err := UntrackedFiles(ctx, r, dir)
	if err != nil {
		return nil, err
	}
	return append(files, untracked...), nil
}

// RemoteNames lists the configured remote names.
func RemoteNames(ctx context.Context, r Runner, dir string) ([]string, error) {
	out, _, err := r.Run(ctx, dir, "remote")
	if err != nil {
		return nil, fmt.Errorf("git remote: %w", err)
	}
	return ParseLines(out), nil
}

// Remotes returns all configured remotes for the repo. A remote without a
// separate push URL reports its fetch URL for both.
func Remotes(ctx context.Context, r Runner, dir string) ([]model.Remote, error) {
	names, err := RemoteNames(ctx, r, dir)
	if err != nil {
		return nil, err
	}
	var remotes []model.Remote
	for _, name := range names {
		fetchOut, _, err := r.Run(ctx, dir, "remote", "get-url", name)
		if err != nil {
			continue
		}
		fetchURL := strings.TrimSpace(fetchOut)
		pushURL := fetchURL
		if pushOut, _, err := r.Run(ctx, dir, "remote", "get-url", "--push", name); err == nil {
			if trimmed := strings.TrimSpace(pushOut); trimmed != "" {
				pushURL = trimmed
			}
		}
		remotes = append(remotes, model.Remote{
			Name:     name,
			FetchURL: fetchURL,
			PushURL:  pushURL,
			Protocol: DetectProtocol(fetchURL),
		})
	}
	return remotes, nil
}

// IsDetached reports whether HEAD points at a commit instead of a branch.
func IsDetached(ctx context.Context, r Runner, dir string) (bool, error) {
	_, _, err := r.Run(ctx, dir, "symbolic-ref", "-q", "HEAD")
	if err == nil {
		return false, nil
	}
	// symbolic-ref exits 1 for a detached HEAD; anything else is a failure.
	if ExitCode(err) == 1 {
		return true, nil
	}
	return false, err
}

// Pull runs a plain pull. The returned text is stdout on success and the
// tool's error output on failure.
func Pull(ctx context.Context, r Runner, dir string) (string, error) {
	stdout, stderr, err := r.Run(ctx, dir, "pull")
	if err != nil {
		return OutputText(stdout, stderr, err), err
	}
	return strings.TrimSpace(stdout), nil
}

// Push runs a plain push. git reports push results on stderr, so the
// returned text prefers stderr over stdout either way.
func Push(ctx context.Context, r Runner, dir string) (string, error) {
	stdout, stderr, err := r.Run(ctx, dir, "push")
	return OutputText(stdout, stderr, err), err
}
