// Package model defines the core data types used throughout gitfleet.
package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// Repo identifies one working copy by its filesystem location.
type Repo struct {
	// Path is the absolute path to the working-copy root. It is the identity key.
	Path string `json:"path" yaml:"path"`
	// Name is the last path component.
	Name string `json:"name" yaml:"name"`
}

// NewRepo builds a handle for dir, deriving Name from the last path component.
func NewRepo(dir string) Repo {
	clean := filepath.Clean(dir)
	return Repo{Path: clean, Name: filepath.Base(clean)}
}

// SyncStatus enumerates how a branch relates to its upstream.
type SyncStatus string

const (
	StatusClean      SyncStatus = "clean"
	StatusAhead      SyncStatus = "ahead"
	StatusBehind     SyncStatus = "behind"
	StatusDiverged   SyncStatus = "diverged"
	StatusNoUpstream SyncStatus = "no_upstream"
	StatusDetached   SyncStatus = "detached"
	StatusNoRemote   SyncStatus = "no_remote"
	StatusError      SyncStatus = "error"
)

// SyncStatuses lists every SyncStatus in display order.
var SyncStatuses = []SyncStatus{
	StatusClean, StatusAhead, StatusBehind, StatusDiverged,
	StatusNoUpstream, StatusDetached, StatusNoRemote, StatusError,
}

// Valid reports whether s is a known status.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusClean, StatusAhead, StatusBehind, StatusDiverged,
		StatusNoUpstream, StatusDetached, StatusNoRemote, StatusError:
		return true
	default:
		return false
	}
}

// ParseSyncStatus converts raw into a SyncStatus.
func ParseSyncStatus(raw string) (SyncStatus, error) {
	s := SyncStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sync status %q", raw)
	}
	return s, nil
}

// WorkingTreeStatus is the derived clean/dirty state of a working tree.
type WorkingTreeStatus string

const (
	WorkingTreeClean WorkingTreeStatus = "clean"
	WorkingTreeDirty WorkingTreeStatus = "dirty"
)

// Probe is the parsed output of a single combined status invocation.
type Probe struct {
	Branch    string
	Upstream  string
	Ahead     int
	Behind    int
	Staged    int
	Unstaged  int
	Untracked int
	// HasAheadBehind is false when the stream carried no ahead/behind line.
	HasAheadBehind bool
}

// DetachedBranch is the branch name git reports for a detached HEAD.
const DetachedBranch = "(detached)"

// Detached reports whether the probe saw a detached HEAD.
func (p Probe) Detached() bool { return p.Branch == DetachedBranch }

// RepoStatus is the sync state of one repository at one observation.
// Values are built once and never mutated afterwards.
type RepoStatus struct {
	Path       string     `json:"path" yaml:"path"`
	Name       string     `json:"name" yaml:"name"`
	Branch     string     `json:"branch" yaml:"branch"`
	Upstream   string     `json:"remote_branch,omitempty" yaml:"remote_branch,omitempty"`
	Ahead      int        `json:"ahead" yaml:"ahead"`
	Behind     int        `json:"behind" yaml:"behind"`
	Staged     int        `json:"staged" yaml:"staged"`
	Unstaged   int        `json:"unstaged" yaml:"unstaged"`
	Untracked  int        `json:"untracked" yaml:"untracked"`
	LastCommit *time.Time `json:"last_commit_date,omitempty" yaml:"last_commit_date,omitempty"`
	SyncStatus SyncStatus `json:"sync_status" yaml:"sync_status"`
	// Error is set only when SyncStatus is StatusError.
	Error string `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	// ErrorClass is a coarse category for Error (for example, auth/network/timeout).
	ErrorClass string `json:"error_class,omitempty" yaml:"error_class,omitempty"`
}

// Dirty reports whether the working tree has any staged, unstaged, or untracked change.
func (s RepoStatus) Dirty() bool {
	return s.Staged+s.Unstaged+s.Untracked > 0
}

// WorkingTree returns the derived working tree state.
func (s RepoStatus) WorkingTree() WorkingTreeStatus {
	if s.Dirty() {
		return WorkingTreeDirty
	}
	return WorkingTreeClean
}

// NeedsPush reports whether local commits are missing upstream.
func (s RepoStatus) NeedsPush() bool {
	switch s.SyncStatus {
	case StatusAhead, StatusDiverged:
		return true
	case StatusClean, StatusBehind, StatusNoUpstream, StatusDetached, StatusNoRemote, StatusError:
		return false
	default:
		return false
	}
}

// NeedsPull reports whether upstream commits are missing locally.
func (s RepoStatus) NeedsPull() bool {
	switch s.SyncStatus {
	case StatusBehind, StatusDiverged:
		return true
	case StatusClean, StatusAhead, StatusNoUpstream, StatusDetached, StatusNoRemote, StatusError:
		return false
	default:
		return false
	}
}

// Diverged reports whether both sides have commits the other lacks.
func (s RepoStatus) Diverged() bool { return s.SyncStatus == StatusDiverged }

// ConflictRisk reports whether an automatic pull might produce a merge conflict.
func (s RepoStatus) ConflictRisk() bool {
	return s.Diverged() || (s.NeedsPull() && s.Dirty())
}

type plainStatus RepoStatus

type derivedStatus struct {
	plainStatus  `yaml:",inline"`
	WorkingTree  WorkingTreeStatus `json:"working_tree_status" yaml:"working_tree_status"`
	NeedsPush    bool              `json:"needs_push" yaml:"needs_push"`
	NeedsPull    bool              `json:"needs_pull" yaml:"needs_pull"`
	ConflictRisk bool              `json:"has_conflict_risk" yaml:"has_conflict_risk"`
}

func (s RepoStatus) derived() derivedStatus {
	return derivedStatus{
		plainStatus:  plainStatus(s),
		WorkingTree:  s.WorkingTree(),
		NeedsPush:    s.NeedsPush(),
		NeedsPull:    s.NeedsPull(),
		ConflictRisk: s.ConflictRisk(),
	}
}

// MarshalJSON adds the derived predicates to the stored fields.
func (s RepoStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.derived())
}

// MarshalYAML adds the derived predicates to the stored fields.
func (s RepoStatus) MarshalYAML() (any, error) {
	return s.derived(), nil
}

// Operation names a mutating fleet action.
type Operation string

const (
	OpFetch Operation = "fetch"
	OpPull  Operation = "pull"
	OpPush  Operation = "push"
)

// OperationResult records the outcome of one operation against one repository.
type OperationResult struct {
	Path      string    `json:"path" yaml:"path"`
	Name      string    `json:"name" yaml:"name"`
	Operation Operation `json:"operation" yaml:"operation"`
	Success   bool      `json:"success" yaml:"success"`
	// Message is the tool output on success.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// Error is the failure text when Success is false.
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorClass string `json:"error_class,omitempty" yaml:"error_class,omitempty"`
}

// RemoteProtocol is the transport inferred from a remote URL.
type RemoteProtocol string

const (
	ProtocolSSH     RemoteProtocol = "ssh"
	ProtocolHTTPS   RemoteProtocol = "https"
	ProtocolHTTP    RemoteProtocol = "http"
	ProtocolGit     RemoteProtocol = "git"
	ProtocolFile    RemoteProtocol = "file"
	ProtocolUnknown RemoteProtocol = "unknown"
)

// Remote represents a single git remote.
type Remote struct {
	// Name is the configured remote name (for example, "origin").
	Name     string `json:"name" yaml:"name"`
	FetchURL string `json:"fetch_url" yaml:"fetch_url"`
	// PushURL falls back to FetchURL when no separate push URL is configured.
	PushURL  string         `json:"push_url" yaml:"push_url"`
	Protocol RemoteProtocol `json:"protocol" yaml:"protocol"`
}

// RepoRemotes lists the remotes configured for one repository.
type RepoRemotes struct {
	Path    string   `json:"path" yaml:"path"`
	Name    string   `json:"name" yaml:"name"`
	Remotes []Remote `json:"remotes" yaml:"remotes"`
}

// IdentitySource is the config scope that supplied an identity value.
type IdentitySource string

const (
	SourceLocal    IdentitySource = "local"
	SourceGlobal   IdentitySource = "global"
	SourceIncluded IdentitySource = "included"
	SourceSystem   IdentitySource = "system"
	SourceUnknown  IdentitySource = "unknown"
)

// ConfigValue is a git config value together with the file that set it.
type ConfigValue struct {
	Value string
	File  string
}

// RepoIdentity is the effective commit identity of one repository.
type RepoIdentity struct {
	Path          string         `json:"path" yaml:"path"`
	Name          string         `json:"name" yaml:"name"`
	UserName      string         `json:"user_name" yaml:"user_name"`
	UserEmail     string         `json:"user_email" yaml:"user_email"`
	LocalOverride bool           `json:"is_local_override" yaml:"is_local_override"`
	Source        IdentitySource `json:"source" yaml:"source"`
	SourceFile    string         `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// GlobalIdentity is the identity configured in the global git config.
type GlobalIdentity struct {
	UserName  string `json:"user_name" yaml:"user_name"`
	UserEmail string `json:"user_email" yaml:"user_email"`
}

// FileChange is one entry of a name-status diff.
type FileChange struct {
	Status string `json:"status" yaml:"status"`
	File   string `json:"file" yaml:"file"`
}

// RepoDiff lists the changed files of one working tree.
type RepoDiff struct {
	Path      string       `json:"path" yaml:"path"`
	Name      string       `json:"name" yaml:"name"`
	Branch    string       `json:"branch" yaml:"branch"`
	Staged    []FileChange `json:"staged_files" yaml:"staged_files"`
	Unstaged  []FileChange `json:"unstaged_files" yaml:"unstaged_files"`
	Untracked []string     `json:"untracked_files" yaml:"untracked_files"`
}

// Dirty reports whether any file list is non-empty.
func (d RepoDiff) Dirty() bool {
	return len(d.Staged)+len(d.Unstaged)+len(d.Untracked) > 0
}
