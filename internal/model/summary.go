// SPDX-License-Identifier: MIT
package model

import "github.com/samber/lo"

// FleetSummary aggregates a set of repository statuses.
type FleetSummary struct {
	Total        int `json:"total" yaml:"total"`
	Clean        int `json:"clean" yaml:"clean"`
	NeedPush     int `json:"need_push" yaml:"need_push"`
	NeedPull     int `json:"need_pull" yaml:"need_pull"`
	Diverged     int `json:"diverged" yaml:"diverged"`
	Dirty        int `json:"dirty" yaml:"dirty"`
	ConflictRisk int `json:"conflict_risk" yaml:"conflict_risk"`
	Errors       int `json:"errors" yaml:"errors"`
}

// Summarize folds statuses into a FleetSummary.
func Summarize(statuses []RepoStatus) FleetSummary {
	summary := FleetSummary{Total: len(statuses)}
	for _, s := range statuses {
		if s.SyncStatus == StatusError {
			summary.Errors++
		} else if s.SyncStatus == StatusClean && !s.Dirty() {
			summary.Clean++
		}
		if s.NeedsPush() {
			summary.NeedPush++
		}
		if s.NeedsPull() {
			summary.NeedPull++
		}
		if s.Diverged() {
			summary.Diverged++
		}
		if s.Dirty() {
			summary.Dirty++
		}
		if s.ConflictRisk() {
			summary.ConflictRisk++
		}
	}
	return summary
}

// ResultSummary counts successes and failures of one operation list.
type ResultSummary struct {
	Total   int `json:"total" yaml:"total"`
	Success int `json:"success" yaml:"success"`
	Failed  int `json:"failed" yaml:"failed"`
}

// SummarizeResults folds operation results into a ResultSummary.
func SummarizeResults(results []OperationResult) ResultSummary {
	ok := lo.CountBy(results, func(r OperationResult) bool { return r.Success })
	return ResultSummary{Total: len(results), Success: ok, Failed: len(results) - ok}
}

// SyncSummary counts the outcomes of each stage of a sync run.
type SyncSummary struct {
	Fetched     int `json:"fetched" yaml:"fetched"`
	FetchFailed int `json:"fetch_failed" yaml:"fetch_failed"`
	Pulled      int `json:"pulled" yaml:"pulled"`
	PullFailed  int `json:"pull_failed" yaml:"pull_failed"`
	Pushed      int `json:"pushed" yaml:"pushed"`
	PushFailed  int `json:"push_failed" yaml:"push_failed"`
}

// SummarizeSync folds the three stage result lists into a SyncSummary.
func SummarizeSync(fetch, pull, push []OperationResult) SyncSummary {
	f := SummarizeResults(fetch)
	pl := SummarizeResults(pull)
	ps := SummarizeResults(push)
	return SyncSummary{
		Fetched:     f.Success,
		FetchFailed: f.Failed,
		Pulled:      pl.Success,
		PullFailed:  pl.Failed,
		Pushed:      ps.Success,
		PushFailed:  ps.Failed,
	}
}

// Add returns the element-wise sum of s and other.
func (s SyncSummary) Add(other SyncSummary) SyncSummary {
	return SyncSummary{
		Fetched:     s.Fetched + other.Fetched,
		FetchFailed: s.FetchFailed + other.FetchFailed,
		Pulled:      s.Pulled + other.Pulled,
		PullFailed:  s.PullFailed + other.PullFailed,
		Pushed:      s.Pushed + other.Pushed,
		PushFailed:  s.PushFailed + other.PushFailed,
	}
}
