package engine

import (
	"context"

	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/parallel"
)

const (
	keyUserName  = "user.name"
	keyUserEmail = "user.email"
)

// Identities reports the effective commit identity of every repository
// together with the config scope it came from.
func (e *Engine) Identities(ctx context.Context) ([]model.RepoIdentity, error) {
	repos, err := e.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return parallel.MapOr(ctx, repos, e.parallelOpts(), e.identity, func(repo model.Repo) model.RepoIdentity {
		return model.RepoIdentity{Path: repo.Path, Name: repo.Name, Source: model.SourceUnknown}
	}), nil
}

func (e *Engine) identity(ctx context.Context, repo model.Repo) model.RepoIdentity {
	name := e.adapter.ConfigWithOrigin(ctx, repo.Path, keyUserName)
	email := e.adapter.ConfigWithOrigin(ctx, repo.Path, keyUserEmail)

	// The email's file decides the source; the name's is a fallback.
	origin := email.File
	if origin == "" {
		origin = name.File
	}
	local := e.adapter.LocalConfig(ctx, repo.Path, keyUserName) != "" ||
		e.adapter.LocalConfig(ctx, repo.Path, keyUserEmail) != ""

	return model.RepoIdentity{
		Path:          repo.Path,
		Name:          repo.Name,
		UserName:      name.Value,
		UserEmail:     email.Value,
		LocalOverride: local,
		Source:        gitx.ClassifyConfigSource(origin),
		SourceFile:    origin,
	}
}

// GlobalIdentity returns the identity configured in the global git config.
func (e *Engine) GlobalIdentity(ctx context.Context) model.GlobalIdentity {
	return model.GlobalIdentity{
		UserName:  e.adapter.GlobalConfig(ctx, keyUserName),
		UserEmail: e.adapter.GlobalConfig(ctx, keyUserEmail),
	}
}

// Remotes lists the configured remotes of every repository.
func (e *Engine) Remotes(ctx context.Context) ([]model.RepoRemotes, error) {
	repos, err := e.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return parallel.MapOr(ctx, repos, e.parallelOpts(), func(ctx context.Context, repo model.Repo) model.RepoRemotes {
		return model.RepoRemotes{Path: repo.Path, Name: repo.Name, Remotes: nonNil(e.adapter.Remotes(ctx, repo.Path))}
	}, func(repo model.Repo) model.RepoRemotes {
		return model.RepoRemotes{Path: repo.Path, Name: repo.Name, Remotes: []model.Remote{}}
	}), nil
}

// DiffOptions configures Diffs.
type DiffOptions struct {
	// All includes repositories with a clean working tree.
	All bool
}

// Diffs lists the staged, unstaged and untracked files of each repository.
// Only dirty repositories are returned unless opts.All is set.
func (e *Engine) Diffs(ctx context.Context, opts DiffOptions) ([]model.RepoDiff, error) {
	repos, err := e.Discover(ctx)
	if err != nil {
		return nil, err
	}
	diffs := parallel.MapOr(ctx, repos, e.parallelOpts(), func(ctx context.Context, repo model.Repo) model.RepoDiff {
		return model.RepoDiff{
			Path:      repo.Path,
			Name:      repo.Name,
			Branch:    e.adapter.CurrentBranch(ctx, repo.Path),
			Staged:    nonNil(e.adapter.StagedFiles(ctx, repo.Path)),
			Unstaged:  nonNil(e.adapter.UnstagedFiles(ctx, repo.Path)),
			Untracked: nonNil(e.adapter.UntrackedFiles(ctx, repo.Path)),
		}
	}, func(repo model.Repo) model.RepoDiff {
		return model.RepoDiff{Path: repo.Path, Name: repo.Name, Staged: []model.FileChange{}, Unstaged: []model.FileChange{}, Untracked: []string{}}
	})
	if opts.All {
		return diffs, nil
	}
	dirty := diffs[:0]
	for _, d := range diffs {
		if d.Dirty() {
			dirty = append(dirty, d)
		}
	}
	return dirty, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
