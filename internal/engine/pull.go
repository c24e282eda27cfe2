package engine

import (
	"context"
	"fmt"

	"github.com/skaphos/gitfleet/internal/conflict"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/parallel"
)

// PullMode selects how conflict risk gates a bulk pull.
type PullMode string

const (
	// PullSmart pulls safe repositories plus at-risk ones whose local and
	// remote changes touch disjoint files.
	PullSmart PullMode = "smart"
	// PullSafe skips every at-risk repository.
	PullSafe PullMode = "safe"
	// PullForce pulls every repository that is behind, ignoring risk.
	PullForce PullMode = "force"
)

// ParsePullMode converts raw into a PullMode. Empty input selects PullSmart.
func ParsePullMode(raw string) (PullMode, error) {
	switch mode := PullMode(raw); mode {
	case "":
		return PullSmart, nil
	case PullSmart, PullSafe, PullForce:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown pull mode %q (expected smart, safe or force)", raw)
	}
}

// PullOptions configures a bulk pull.
type PullOptions struct {
	Mode PullMode
	// All pulls every discovered repository regardless of status or mode.
	All    bool
	DryRun bool
	// Statuses reuses an earlier scan. When nil a fetching scan runs first.
	Statuses []model.RepoStatus
}

// PullReport is the outcome of a bulk pull.
type PullReport struct {
	Results []model.OperationResult
	// Skipped lists repositories that needed a pull but were held back
	// because of conflict risk.
	Skipped []model.RepoStatus
}

// Pull pulls the repositories selected by opts.Mode.
func (e *Engine) Pull(ctx context.Context, opts PullOptions) (PullReport, error) {
	mode := opts.Mode
	if mode == "" {
		mode = PullSmart
	}
	if opts.All {
		repos, err := e.Discover(ctx)
		if err != nil {
			return PullReport{}, err
		}
		return PullReport{Results: e.mutate(ctx, repos, model.OpPull, opts.DryRun)}, nil
	}

	statuses := opts.Statuses
	if statuses == nil {
		var err error
		statuses, err = e.Status(ctx, StatusOptions{Fetch: true})
		if err != nil {
			return PullReport{}, err
		}
	}
	targets, skipped, err := e.selectPulls(ctx, mode, statuses)
	if err != nil {
		return PullReport{}, err
	}
	return PullReport{
		Results: e.mutate(ctx, targets, model.OpPull, opts.DryRun),
		Skipped: skipped,
	}, nil
}

// selectPulls applies the pull mode to statuses. It returns the repositories
// to pull and the statuses that were held back.
func (e *Engine) selectPulls(ctx context.Context, mode PullMode, statuses []model.RepoStatus) ([]model.Repo, []model.RepoStatus, error) {
	behind := make([]model.RepoStatus, 0, len(statuses))
	for _, s := range statuses {
		if s.NeedsPull() {
			behind = append(behind, s)
		}
	}

	switch mode {
	case PullForce:
		return reposOf(behind, func(model.RepoStatus) bool { return true }), nil, nil
	case PullSafe:
		safe := reposOf(behind, func(s model.RepoStatus) bool { return !s.ConflictRisk() })
		return safe, atRisk(behind), nil
	case PullSmart:
		safe := reposOf(behind, func(s model.RepoStatus) bool { return !s.ConflictRisk() })
		risky := atRisk(behind)
		if len(risky) == 0 {
			return safe, nil, nil
		}
		checked := parallel.Filter(ctx, reposOf(risky, func(model.RepoStatus) bool { return true }), e.parallelOpts(),
			func(ctx context.Context, repo model.Repo) bool {
				return !conflict.HasConflicts(ctx, e.adapter, repo.Path)
			})
		cleared := make(map[string]bool, len(checked))
		for _, repo := range checked {
			cleared[repo.Path] = true
			safe = append(safe, repo)
		}
		var skipped []model.RepoStatus
		for _, s := range risky {
			if !cleared[s.Path] {
				skipped = append(skipped, s)
			}
		}
		e.logger.Debug("smart pull resolved conflict risk", "checked", len(risky), "cleared", len(checked))
		return safe, skipped, nil
	default:
		return nil, nil, fmt.Errorf("unknown pull mode %q", mode)
	}
}

func atRisk(statuses []model.RepoStatus) []model.RepoStatus {
	var out []model.RepoStatus
	for _, s := range statuses {
		if s.ConflictRisk() {
			out = append(out, s)
		}
	}
	return out
}

// PushOptions configures a bulk push.
type PushOptions struct {
	// All pushes every discovered repository regardless of status.
	All    bool
	DryRun bool
	// Statuses reuses an earlier scan. When nil a fetching scan runs first.
	Statuses []model.RepoStatus
}

// Push pushes every repository that is ahead of or diverged from its upstream.
func (e *Engine) Push(ctx context.Context, opts PushOptions) ([]model.OperationResult, error) {
	if opts.All {
		repos, err := e.Discover(ctx)
		if err != nil {
			return nil, err
		}
		return e.mutate(ctx, repos, model.OpPush, opts.DryRun), nil
	}
	statuses := opts.Statuses
	if statuses == nil {
		var err error
		statuses, err = e.Status(ctx, StatusOptions{Fetch: true})
		if err != nil {
			return nil, err
		}
	}
	targets := reposOf(statuses, model.RepoStatus.NeedsPush)
	return e.mutate(ctx, targets, model.OpPush, opts.DryRun), nil
}
