package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/vcs"
)

// ErrNoRoots is returned by NewFleet when no roots are given.
var ErrNoRoots = errors.New("engine: at least one root is required")

// Rooted pairs one root directory with the items produced for it.
type Rooted[T any] struct {
	Root  string `json:"root" yaml:"root"`
	Items []T    `json:"items" yaml:"items"`
}

// Flatten concatenates the items of every root, in root order.
func Flatten[T any](rooted []Rooted[T]) []T {
	var out []T
	for _, r := range rooted {
		out = append(out, r.Items...)
	}
	return out
}

// Fleet runs every operation independently against several roots. A
// single-root invocation is a Fleet of one.
type Fleet struct {
	engines []*Engine
}

// NewFleet builds one Engine per root, sharing base options and adapter.
func NewFleet(roots []string, base Options, adapter vcs.Adapter) (*Fleet, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}
	f := &Fleet{engines: make([]*Engine, 0, len(roots))}
	for _, root := range roots {
		opts := base
		opts.Root = root
		eng, err := New(opts, adapter)
		if err != nil {
			return nil, err
		}
		f.engines = append(f.engines, eng)
	}
	return f, nil
}

// Roots returns the fleet's root directories in order.
func (f *Fleet) Roots() []string {
	roots := make([]string, len(f.engines))
	for i, eng := range f.engines {
		roots[i] = eng.Root()
	}
	return roots
}

// Engines returns the per-root engines in root order.
func (f *Fleet) Engines() []*Engine { return f.engines }

// MultiRoot reports whether the fleet spans more than one root.
func (f *Fleet) MultiRoot() bool { return len(f.engines) > 1 }

// Discover populates every engine's discovery cache concurrently. The first
// root that fails to scan cancels the rest.
func (f *Fleet) Discover(ctx context.Context) ([]Rooted[model.Repo], error) {
	out := make([]Rooted[model.Repo], len(f.engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, eng := range f.engines {
		g.Go(func() error {
			repos, err := eng.Discover(gctx)
			if err != nil {
				return err
			}
			out[i] = Rooted[model.Repo]{Root: eng.Root(), Items: repos}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func each[T any](ctx context.Context, f *Fleet, fn func(*Engine, context.Context) ([]T, error)) ([]Rooted[T], error) {
	out := make([]Rooted[T], 0, len(f.engines))
	for _, eng := range f.engines {
		items, err := fn(eng, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, Rooted[T]{Root: eng.Root(), Items: items})
	}
	return out, nil
}

// Status runs Engine.Status per root.
func (f *Fleet) Status(ctx context.Context, opts StatusOptions) ([]Rooted[model.RepoStatus], error) {
	return each(ctx, f, func(e *Engine, ctx context.Context) ([]model.RepoStatus, error) {
		return e.Status(ctx, opts)
	})
}

// Fetch runs Engine.Fetch per root.
func (f *Fleet) Fetch(ctx context.Context) ([]Rooted[model.OperationResult], error) {
	return each(ctx, f, (*Engine).Fetch)
}

// Pull runs Engine.Pull per root. Statuses in opts are ignored; use
// PullRooted to reuse a previous multi-root scan.
func (f *Fleet) Pull(ctx context.Context, opts PullOptions) ([]Rooted[model.OperationResult], []model.RepoStatus, error) {
	return f.PullRooted(ctx, opts, nil)
}

// PullRooted runs Engine.Pull per root, reusing the statuses scanned for
// each root when present.
func (f *Fleet) PullRooted(ctx context.Context, opts PullOptions, statuses []Rooted[model.RepoStatus]) ([]Rooted[model.OperationResult], []model.RepoStatus, error) {
	byRoot := indexRooted(statuses)
	var skipped []model.RepoStatus
	results, err := each(ctx, f, func(e *Engine, ctx context.Context) ([]model.OperationResult, error) {
		o := opts
		o.Statuses = byRoot[e.Root()]
		report, err := e.Pull(ctx, o)
		if err != nil {
			return nil, err
		}
		skipped = append(skipped, report.Skipped...)
		return report.Results, nil
	})
	return results, skipped, err
}

// Push runs Engine.Push per root, reusing the statuses scanned for each
// root when present.
func (f *Fleet) Push(ctx context.Context, opts PushOptions, statuses []Rooted[model.RepoStatus]) ([]Rooted[model.OperationResult], error) {
	byRoot := indexRooted(statuses)
	return each(ctx, f, func(e *Engine, ctx context.Context) ([]model.OperationResult, error) {
		o := opts
		o.Statuses = byRoot[e.Root()]
		return e.Push(ctx, o)
	})
}

// Sync runs the full sync pipeline per root.
func (f *Fleet) Sync(ctx context.Context, opts SyncOptions) ([]SyncReport, error) {
	reports := make([]SyncReport, 0, len(f.engines))
	for _, eng := range f.engines {
		if opts.OnRoot != nil {
			opts.OnRoot(eng.Root())
		}
		report, err := eng.Sync(ctx, opts)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// MergeSync folds per-root sync reports into fleet-wide summaries.
func MergeSync(reports []SyncReport) (model.FleetSummary, model.SyncSummary) {
	var statuses []model.RepoStatus
	var ops model.SyncSummary
	for _, r := range reports {
		statuses = append(statuses, r.Status...)
		ops = ops.Add(r.Operations)
	}
	return model.Summarize(statuses), ops
}

// Identities runs Engine.Identities per root.
func (f *Fleet) Identities(ctx context.Context) ([]Rooted[model.RepoIdentity], error) {
	return each(ctx, f, (*Engine).Identities)
}

// Remotes runs Engine.Remotes per root.
func (f *Fleet) Remotes(ctx context.Context) ([]Rooted[model.RepoRemotes], error) {
	return each(ctx, f, (*Engine).Remotes)
}

// Diffs runs Engine.Diffs per root.
func (f *Fleet) Diffs(ctx context.Context, opts DiffOptions) ([]Rooted[model.RepoDiff], error) {
	return each(ctx, f, func(e *Engine, ctx context.Context) ([]model.RepoDiff, error) {
		return e.Diffs(ctx, opts)
	})
}

// GlobalIdentity reads the global identity once; it does not vary by root.
func (f *Fleet) GlobalIdentity(ctx context.Context) model.GlobalIdentity {
	return f.engines[0].GlobalIdentity(ctx)
}

// Summary flattens every root's statuses before folding them.
func (f *Fleet) Summary(statuses []Rooted[model.RepoStatus]) model.FleetSummary {
	return model.Summarize(Flatten(statuses))
}

func indexRooted[T any](rooted []Rooted[T]) map[string][]T {
	out := make(map[string][]T, len(rooted))
	for _, r := range rooted {
		out[r.Root] = r.Items
	}
	return out
}
