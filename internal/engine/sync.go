package engine

import (
	"context"

	"github.com/skaphos/gitfleet/internal/model"
)

// SyncStage identifies one step of a sync run.
type SyncStage int

const (
	StageFetch SyncStage = iota + 1
	StagePull
	StagePush
	StageStatus
)

// SyncStageCount is the number of stages reported by Sync.
const SyncStageCount = 4

func (s SyncStage) String() string {
	switch s {
	case StageFetch:
		return "Fetching all repositories"
	case StagePull:
		return "Pulling repositories (smart)"
	case StagePush:
		return "Pushing repositories"
	case StageStatus:
		return "Checking final status"
	default:
		return "unknown stage"
	}
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	DryRun bool
	// OnStage is called before each stage starts.
	OnStage func(SyncStage)
	// OnStageDone is called after the fetch, pull and push stages with their results.
	OnStageDone func(SyncStage, []model.OperationResult)
	// OnRoot is called by Fleet.Sync before each root's pipeline starts.
	OnRoot func(root string)
}

// SyncReport is the outcome of a sync run against one root.
type SyncReport struct {
	Root       string                  `json:"root,omitempty" yaml:"root,omitempty"`
	Fetch      []model.OperationResult `json:"fetch" yaml:"fetch"`
	Pull       []model.OperationResult `json:"pull" yaml:"pull"`
	Push       []model.OperationResult `json:"push" yaml:"push"`
	Skipped    []model.RepoStatus      `json:"skipped_pulls,omitempty" yaml:"skipped_pulls,omitempty"`
	Status     []model.RepoStatus      `json:"status" yaml:"status"`
	Summary    model.FleetSummary      `json:"summary" yaml:"summary"`
	Operations model.SyncSummary       `json:"sync_operations" yaml:"sync_operations"`
}

// Sync fetches, smart-pulls, pushes and re-classifies every repository.
// Each status scan feeds the next stage; a scan is reused instead of
// repeated when the stage before it changed nothing.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	stage := func(s SyncStage) {
		if opts.OnStage != nil {
			opts.OnStage(s)
		}
	}
	done := func(s SyncStage, results []model.OperationResult) {
		if opts.OnStageDone != nil {
			opts.OnStageDone(s, results)
		}
	}

	repos, err := e.Discover(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	report := SyncReport{Root: e.opts.Root}

	stage(StageFetch)
	report.Fetch = e.mutate(ctx, repos, model.OpFetch, false)
	done(StageFetch, report.Fetch)

	pre := e.statusOf(ctx, repos, false)

	stage(StagePull)
	pulled, err := e.Pull(ctx, PullOptions{Mode: PullSmart, DryRun: opts.DryRun, Statuses: pre})
	if err != nil {
		return SyncReport{}, err
	}
	report.Pull = pulled.Results
	report.Skipped = pulled.Skipped
	done(StagePull, report.Pull)

	post := pre
	if !opts.DryRun && len(report.Pull) > 0 {
		post = e.statusOf(ctx, repos, false)
	}

	stage(StagePush)
	report.Push, err = e.Push(ctx, PushOptions{DryRun: opts.DryRun, Statuses: post})
	if err != nil {
		return SyncReport{}, err
	}
	done(StagePush, report.Push)

	stage(StageStatus)
	report.Status = post
	if !opts.DryRun && len(report.Push) > 0 {
		report.Status = e.statusOf(ctx, repos, false)
	}
	report.Summary = model.Summarize(report.Status)
	report.Operations = model.SummarizeSync(report.Fetch, report.Pull, report.Push)
	return report, nil
}
