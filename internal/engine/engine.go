// Package engine orchestrates fleet operations: discovery, status, fetch,
// pull, push and the composite sync. It coordinates between discovery,
// the vcs adapter, the status classifier and the conflict resolver.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/skaphos/gitfleet/internal/discovery"
	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/logging"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/parallel"
	"github.com/skaphos/gitfleet/internal/status"
	"github.com/skaphos/gitfleet/internal/vcs"
)

// ErrNoRoot is returned by New when Options.Root is empty.
var ErrNoRoot = errors.New("engine: root directory is required")

// Options configures an Engine. Root is explicit; the engine never falls
// back to the working directory.
type Options struct {
	Root    string
	Exclude []string
	// Concurrency caps in-flight git operations. Values <= 0 use parallel.DefaultConcurrency.
	Concurrency int
	Sequential  bool
	// IncludeNoRemote keeps repositories without any configured remote.
	IncludeNoRemote bool
	// IncludeDetached keeps repositories whose HEAD is detached.
	IncludeDetached bool
	Logger          *slog.Logger
}

// Engine is the fleet orchestrator for a single root directory.
type Engine struct {
	opts    Options
	adapter vcs.Adapter
	logger  *slog.Logger

	cacheMu    sync.Mutex
	discovered []model.Repo
	scanned    bool
}

// New creates an Engine for opts.Root. A nil adapter shells out to git.
func New(opts Options, adapter vcs.Adapter) (*Engine, error) {
	if opts.Root == "" {
		return nil, ErrNoRoot
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if adapter == nil {
		adapter = vcs.NewGitAdapter(nil, logger)
	}
	return &Engine{
		opts:    opts,
		adapter: adapter,
		logger:  logger.With("root", opts.Root),
	}, nil
}

// Root returns the directory this engine manages.
func (e *Engine) Root() string { return e.opts.Root }

// Adapter returns the engine VCS adapter.
func (e *Engine) Adapter() vcs.Adapter { return e.adapter }

func (e *Engine) parallelOpts() parallel.Options {
	return parallel.Options{
		Concurrency: e.opts.Concurrency,
		Sequential:  e.opts.Sequential,
		OnPanic: func(repo model.Repo, recovered any) {
			e.logger.Error("repository task panicked", "repo", repo.Path, "panic", recovered)
		},
	}
}

// Discover returns the working copies under the root, sorted by path and
// filtered by the remote/detached options. The first successful call is
// cached for the lifetime of the Engine; build a new Engine to re-scan.
func (e *Engine) Discover(ctx context.Context) ([]model.Repo, error) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if e.scanned {
		return append([]model.Repo(nil), e.discovered...), nil
	}

	paths, err := discovery.Walk(ctx, e.opts.Root, discovery.Options{
		Exclude:     e.opts.Exclude,
		MetadataDir: e.adapter.MetadataDir(),
	})
	if err != nil {
		return nil, err
	}
	repos := lo.Map(paths, func(p string, _ int) model.Repo { return model.NewRepo(p) })
	if !e.opts.IncludeNoRemote || !e.opts.IncludeDetached {
		repos = parallel.Filter(ctx, repos, e.parallelOpts(), e.keepRepo)
	}
	e.logger.Debug("discovered repositories", "count", len(repos))

	e.discovered = repos
	e.scanned = true
	return append([]model.Repo(nil), repos...), nil
}

func (e *Engine) keepRepo(ctx context.Context, repo model.Repo) bool {
	if !e.opts.IncludeNoRemote && !e.adapter.HasRemotes(ctx, repo.Path) {
		return false
	}
	if !e.opts.IncludeDetached && e.adapter.IsDetached(ctx, repo.Path) {
		return false
	}
	return true
}

// StatusOptions configures a status scan.
type StatusOptions struct {
	// Fetch runs a fetch inside each repository's worker before probing.
	Fetch bool
}

// Status classifies every discovered repository. Per-repository failures
// become error statuses; only discovery failures return an error.
func (e *Engine) Status(ctx context.Context, opts StatusOptions) ([]model.RepoStatus, error) {
	repos, err := e.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return e.statusOf(ctx, repos, opts.Fetch), nil
}

func (e *Engine) statusOf(ctx context.Context, repos []model.Repo, fetch bool) []model.RepoStatus {
	return parallel.Map(ctx, repos, e.parallelOpts(), func(ctx context.Context, repo model.Repo) model.RepoStatus {
		return e.inspect(ctx, repo, fetch)
	})
}

// inspect gathers and classifies one repository. Any fault, including a
// panic in the adapter, is downgraded to an error status.
func (e *Engine) inspect(ctx context.Context, repo model.Repo, fetch bool) (st model.RepoStatus) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("status inspection panicked", "repo", repo.Path, "panic", r)
			st = status.Failed(repo, fmt.Sprintf("%v", r), gitx.ClassUnknown)
		}
	}()

	if fetch {
		if out := e.adapter.Fetch(ctx, repo.Path); !out.OK {
			return status.Failed(repo, "Fetch failed: "+out.Error, out.ErrorClass)
		}
	}
	probe, err := e.adapter.StatusProbe(ctx, repo.Path)
	if err != nil {
		e.logger.Debug("status probe failed", "repo", repo.Path, "error", err)
		return status.Failed(repo, "status probe failed: "+err.Error(), gitx.ClassifyError(err))
	}
	if probe.Upstream != "" && !probe.HasAheadBehind {
		if ahead, behind, ok := e.adapter.AheadBehind(ctx, repo.Path); ok {
			probe.Ahead, probe.Behind = ahead, behind
		}
	}
	detached := probe.Detached()
	hasRemote := false
	if probe.Upstream == "" && !detached {
		hasRemote = e.adapter.HasRemotes(ctx, repo.Path)
	}
	return status.Classify(repo, probe, hasRemote, detached, e.adapter.LastCommitDate(ctx, repo.Path))
}

// Fetch runs a fetch of all remotes in every discovered repository.
func (e *Engine) Fetch(ctx context.Context) ([]model.OperationResult, error) {
	repos, err := e.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return e.mutate(ctx, repos, model.OpFetch, false), nil
}

// Summary folds statuses into a FleetSummary.
func (e *Engine) Summary(statuses []model.RepoStatus) model.FleetSummary {
	return model.Summarize(statuses)
}

// mutate runs op on every repo, or reports what it would do when dryRun is set.
func (e *Engine) mutate(ctx context.Context, repos []model.Repo, op model.Operation, dryRun bool) []model.OperationResult {
	return parallel.Map(ctx, repos, e.parallelOpts(), func(ctx context.Context, repo model.Repo) model.OperationResult {
		if dryRun {
			return model.OperationResult{
				Path:      repo.Path,
				Name:      repo.Name,
				Operation: op,
				Success:   true,
				Message:   fmt.Sprintf("Would %s (dry-run)", op),
			}
		}
		return e.run(ctx, repo, op)
	})
}

func (e *Engine) run(ctx context.Context, repo model.Repo, op model.Operation) (res model.OperationResult) {
	res = model.OperationResult{Path: repo.Path, Name: repo.Name, Operation: op}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("operation panicked", "repo", repo.Path, "op", op, "panic", r)
			res.Success = false
			res.Error = fmt.Sprintf("%v", r)
			res.ErrorClass = gitx.ClassUnknown
		}
	}()

	var out vcs.Outcome
	switch op {
	case model.OpFetch:
		out = e.adapter.Fetch(ctx, repo.Path)
	case model.OpPull:
		out = e.adapter.Pull(ctx, repo.Path)
	case model.OpPush:
		out = e.adapter.Push(ctx, repo.Path)
	default:
		out = vcs.Failed(fmt.Sprintf("unsupported operation %q", op), gitx.ClassUnknown)
	}
	res.Success = out.OK
	res.Message = out.Message
	res.Error = out.Error
	res.ErrorClass = out.ErrorClass
	if !out.OK {
		e.logger.Info("operation failed", "repo", repo.Path, "op", op, "class", out.ErrorClass)
	}
	return res
}

func reposOf(statuses []model.RepoStatus, keep func(model.RepoStatus) bool) []model.Repo {
	return lo.FilterMap(statuses, func(s model.RepoStatus, _ int) (model.Repo, bool) {
		return model.Repo{Path: s.Path, Name: s.Name}, keep(s)
	})
}
