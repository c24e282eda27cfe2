// Package status derives a repository's sync state from a raw status probe.
package status

import (
	"time"

	"github.com/skaphos/gitfleet/internal/model"
)

// Classify builds the RepoStatus for repo. The first matching rule wins:
// a tracked upstream compares ahead/behind counts, then a detached HEAD,
// then the presence of any remote.
func Classify(repo model.Repo, probe model.Probe, hasRemote, detached bool, lastCommit *time.Time) model.RepoStatus {
	st := model.RepoStatus{
		Path:       repo.Path,
		Name:       repo.Name,
		Branch:     probe.Branch,
		Upstream:   probe.Upstream,
		Ahead:      probe.Ahead,
		Behind:     probe.Behind,
		Staged:     probe.Staged,
		Unstaged:   probe.Unstaged,
		Untracked:  probe.Untracked,
		LastCommit: lastCommit,
	}
	switch {
	case probe.Upstream != "":
		st.SyncStatus = compare(probe.Ahead, probe.Behind)
	case detached:
		st.SyncStatus = model.StatusDetached
	case hasRemote:
		st.SyncStatus = model.StatusNoUpstream
	default:
		st.SyncStatus = model.StatusNoRemote
	}
	return st
}

func compare(ahead, behind int) model.SyncStatus {
	switch {
	case ahead > 0 && behind > 0:
		return model.StatusDiverged
	case ahead > 0:
		return model.StatusAhead
	case behind > 0:
		return model.StatusBehind
	default:
		return model.StatusClean
	}
}

// Failed builds an error status carrying message.
func Failed(repo model.Repo, message, class string) model.RepoStatus {
	return model.RepoStatus{
		Path:       repo.Path,
		Name:       repo.Name,
		SyncStatus: model.StatusError,
		Error:      message,
		ErrorClass: class,
	}
}
