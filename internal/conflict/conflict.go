// SPDX-License-Identifier: MIT

// Package conflict decides whether pulling a repository that is flagged as
// at-risk would touch files that were also changed locally.
package conflict

import (
	"context"

	"github.com/samber/lo"
)

// Checker is the subset of adapter queries the resolver needs.
type Checker interface {
	MergeBase(ctx context.Context, dir string) (string, bool)
	ChangedFiles(ctx context.Context, dir, from, to string) []string
	DirtyFiles(ctx context.Context, dir string) []string
	UpstreamRef() string
}

// HasConflicts reports whether the upstream changed any file that was also
// changed locally since the merge base. A missing merge base counts as a
// conflict.
func HasConflicts(ctx context.Context, c Checker, dir string) bool {
	base, ok := c.MergeBase(ctx, dir)
	if !ok {
		return true
	}
	remote := c.ChangedFiles(ctx, dir, base, c.UpstreamRef())
	if len(remote) == 0 {
		return false
	}
	local := c.ChangedFiles(ctx, dir, base, "HEAD")
	return Overlaps(local, c.DirtyFiles(ctx, dir), remote)
}

// Overlaps reports whether (local ∪ dirty) ∩ remote is non-empty.
func Overlaps(local, dirty, remote []string) bool {
	touched := lo.Union(local, dirty)
	return lo.Some(touched, remote)
}
