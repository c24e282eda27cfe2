// SPDX-License-Identifier: MIT
package conflict_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitfleet/internal/conflict"
)

type fakeChecker struct {
	base        string
	hasBase     bool
	remote      []string
	local       []string
	dirty       []string
	dirtyCalled bool
}

func (f *fakeChecker) MergeBase(context.Context, string) (string, bool) { return f.base, f.hasBase }

func (f *fakeChecker) ChangedFiles(_ context.Context, _ string, from, to string) []string {
	Expect(from).To(Equal(f.base))
	if to == "@{u}" {
		return f.remote
	}
	return f.local
}

func (f *fakeChecker) DirtyFiles(context.Context, string) []string {
	f.dirtyCalled = true
	return f.dirty
}

func (f *fakeChecker) UpstreamRef() string { return "@{u}" }

var _ = Describe("Overlaps", func() {
	It("reports no overlap for disjoint sets", func() {
		Expect(conflict.Overlaps([]string{"b.txt"}, nil, []string{"a.txt"})).To(BeFalse())
	})

	It("reports overlap for a shared committed file", func() {
		Expect(conflict.Overlaps([]string{"a.txt"}, nil, []string{"a.txt"})).To(BeTrue())
	})

	It("counts dirty files as local changes", func() {
		Expect(conflict.Overlaps(nil, []string{"a.txt"}, []string{"a.txt", "c.txt"})).To(BeTrue())
	})

	It("treats empty inputs as no overlap", func() {
		Expect(conflict.Overlaps(nil, nil, nil)).To(BeFalse())
	})
})

var _ = Describe("HasConflicts", func() {
	ctx := context.Background()

	It("fails closed without a merge base", func() {
		Expect(conflict.HasConflicts(ctx, &fakeChecker{}, "/repo")).To(BeTrue())
	})

	It("returns false when the changed sets are disjoint", func() {
		c := &fakeChecker{base: "m", hasBase: true, remote: []string{"x.py"}, local: []string{"y.py"}}
		Expect(conflict.HasConflicts(ctx, c, "/repo")).To(BeFalse())
	})

	It("returns true when both sides touched the same file", func() {
		c := &fakeChecker{base: "m", hasBase: true, remote: []string{"x.py"}, local: []string{"x.py"}}
		Expect(conflict.HasConflicts(ctx, c, "/repo")).To(BeTrue())
	})

	It("returns true when an uncommitted change overlaps the upstream", func() {
		c := &fakeChecker{base: "m", hasBase: true, remote: []string{"x.py"}, dirty: []string{"x.py"}}
		Expect(conflict.HasConflicts(ctx, c, "/repo")).To(BeTrue())
	})

	It("skips local lookups when the upstream changed nothing", func() {
		c := &fakeChecker{base: "m", hasBase: true, dirty: []string{"x.py"}}
		Expect(conflict.HasConflicts(ctx, c, "/repo")).To(BeFalse())
		Expect(c.dirtyCalled).To(BeFalse())
	})
})
