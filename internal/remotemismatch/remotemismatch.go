// SPDX-License-Identifier: MIT

// Package remotemismatch audits configured remotes across a fleet: push
// targets that point somewhere other than the fetch source, and several
// working copies cloned from the same repository.
package remotemismatch

import (
	"sort"

	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/model"
)

// Kind classifies a Finding.
type Kind string

const (
	// KindPushTarget marks a remote whose push URL names a different
	// repository than its fetch URL.
	KindPushTarget Kind = "push_target"
	// KindDuplicateClone marks working copies sharing one primary remote.
	KindDuplicateClone Kind = "duplicate_clone"
)

// Finding is one audit result.
type Finding struct {
	Kind Kind   `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
	Name string `json:"name" yaml:"name"`
	// Remote is the remote name the finding refers to.
	Remote string `json:"remote" yaml:"remote"`
	// URL is the normalized fetch URL.
	URL string `json:"url" yaml:"url"`
	// PushURL is set for KindPushTarget.
	PushURL string `json:"push_url,omitempty" yaml:"push_url,omitempty"`
	// Others lists the other working copies for KindDuplicateClone.
	Others []string `json:"others,omitempty" yaml:"others,omitempty"`
}

// PushDiffers reports whether r pushes to a different URL than it fetches
// from, compared verbatim.
func PushDiffers(r model.Remote) bool {
	return r.PushURL != "" && r.PushURL != r.FetchURL
}

// PushTargets returns a finding for every remote whose push and fetch URLs
// normalize to different repositories. Transport-only differences such as
// an ssh push URL for an https fetch URL are not reported.
func PushTargets(repos []model.RepoRemotes) []Finding {
	var out []Finding
	for _, repo := range repos {
		for _, r := range repo.Remotes {
			if !PushDiffers(r) {
				continue
			}
			fetch := gitx.NormalizeURL(r.FetchURL)
			push := gitx.NormalizeURL(r.PushURL)
			if fetch == push {
				continue
			}
			out = append(out, Finding{
				Kind:    KindPushTarget,
				Path:    repo.Path,
				Name:    repo.Name,
				Remote:  r.Name,
				URL:     fetch,
				PushURL: push,
			})
		}
	}
	return out
}

// Duplicates groups working copies by the normalized fetch URL of their
// primary remote and returns one finding per copy in every group of two
// or more.
func Duplicates(repos []model.RepoRemotes) []Finding {
	type clone struct {
		path, name, remote string
	}
	groups := make(map[string][]clone)
	for _, repo := range repos {
		primary, ok := gitx.PrimaryRemote(repo.Remotes)
		if !ok {
			continue
		}
		key := gitx.NormalizeURL(primary.FetchURL)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], clone{path: repo.Path, name: repo.Name, remote: primary.Name})
	}

	var out []Finding
	for url, clones := range groups {
		if len(clones) < 2 {
			continue
		}
		for i, c := range clones {
			others := make([]string, 0, len(clones)-1)
			for j, o := range clones {
				if j != i {
					others = append(others, o.path)
				}
			}
			sort.Strings(others)
			out = append(out, Finding{
				Kind:   KindDuplicateClone,
				Path:   c.path,
				Name:   c.name,
				Remote: c.remote,
				URL:    url,
				Others: others,
			})
		}
	}
	return out
}

// Audit runs every check and returns the findings ordered by path, then kind.
func Audit(repos []model.RepoRemotes) []Finding {
	findings := append(PushTargets(repos), Duplicates(repos)...)
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Path == findings[j].Path {
			return findings[i].Kind < findings[j].Kind
		}
		return findings[i].Path < findings[j].Path
	})
	return findings
}
