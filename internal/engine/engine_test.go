package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/model"
)

var _ = Describe("Engine", func() {
	var (
		ctx     context.Context
		root    string
		adapter *fakeAdapter
	)

	newEngine := func(mutators ...func(*engine.Options)) *engine.Engine {
		GinkgoHelper()
		opts := engine.Options{Root: root, Concurrency: 4}
		for _, m := range mutators {
			m(&opts)
		}
		eng, err := engine.New(opts, adapter)
		Expect(err).NotTo(HaveOccurred())
		return eng
	}

	BeforeEach(func() {
		ctx = context.Background()
		root = GinkgoT().TempDir()
		adapter = newFakeAdapter()
	})

	It("requires an explicit root", func() {
		_, err := engine.New(engine.Options{}, adapter)
		Expect(errors.Is(err, engine.ErrNoRoot)).To(BeTrue())
	})

	Describe("Discover", func() {
		It("returns repositories sorted by path", func() {
			adapter.add(root, "zeta", &fakeRepo{})
			adapter.add(root, "alpha", &fakeRepo{})

			repos, err := newEngine().Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(Equal([]model.Repo{
				model.NewRepo(filepath.Join(root, "alpha")),
				model.NewRepo(filepath.Join(root, "zeta")),
			}))
		})

		It("drops repositories without remotes or with a detached HEAD by default", func() {
			adapter.add(root, "kept", &fakeRepo{})
			adapter.add(root, "local-only", &fakeRepo{noRemote: true})
			adapter.add(root, "detached", &fakeRepo{detached: true})

			repos, err := newEngine().Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(HaveLen(1))
			Expect(repos[0].Name).To(Equal("kept"))

			all, err := newEngine(func(o *engine.Options) {
				o.IncludeNoRemote = true
				o.IncludeDetached = true
			}).Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})

		It("caches the first scan for the engine's lifetime", func() {
			adapter.add(root, "first", &fakeRepo{})
			eng := newEngine()

			first, err := eng.Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			adapter.add(root, "second", &fakeRepo{})
			adapter.reset()

			again, err := eng.Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(first))
			Expect(adapter.called("hasremotes")).To(BeEmpty())

			fresh, err := newEngine().Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh).To(HaveLen(2))
		})

		It("applies exclude globs", func() {
			adapter.add(root, "keep", &fakeRepo{})
			adapter.add(filepath.Join(root, "node_modules"), "dep", &fakeRepo{})

			repos, err := newEngine(func(o *engine.Options) {
				o.Exclude = []string{"**/node_modules/**"}
			}).Discover(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(repos).To(HaveLen(1))
		})

		It("fails for a missing root", func() {
			root = filepath.Join(root, "missing")
			_, err := newEngine().Status(ctx, engine.StatusOptions{})
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Describe("Status", func() {
		It("classifies every repository", func() {
			adapter.add(root, "clean", &fakeRepo{probe: tracked(0, 0)})
			adapter.add(root, "ahead", &fakeRepo{probe: tracked(2, 0)})
			adapter.add(root, "behind", &fakeRepo{probe: tracked(0, 3)})
			adapter.add(root, "diverged", &fakeRepo{probe: tracked(1, 1)})
			adapter.add(root, "untracked-branch", &fakeRepo{probe: model.Probe{Branch: "feature"}})

			statuses, err := newEngine().Status(ctx, engine.StatusOptions{})
			Expect(err).NotTo(HaveOccurred())
			got := map[string]model.SyncStatus{}
			for _, s := range statuses {
				got[s.Name] = s.SyncStatus
				Expect(s.LastCommit).NotTo(BeNil())
			}
			Expect(got).To(Equal(map[string]model.SyncStatus{
				"clean":            model.StatusClean,
				"ahead":            model.StatusAhead,
				"behind":           model.StatusBehind,
				"diverged":         model.StatusDiverged,
				"untracked-branch": model.StatusNoUpstream,
			}))
			Expect(adapter.called("fetch")).To(BeEmpty())
		})

		It("reports detached and remote-less repositories when included", func() {
			adapter.add(root, "detached", &fakeRepo{detached: true, probe: model.Probe{Branch: model.DetachedBranch}})
			adapter.add(root, "local", &fakeRepo{noRemote: true, probe: model.Probe{Branch: "main"}})

			statuses, err := newEngine(func(o *engine.Options) {
				o.IncludeDetached = true
				o.IncludeNoRemote = true
			}).Status(ctx, engine.StatusOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].SyncStatus).To(Equal(model.StatusDetached))
			Expect(statuses[1].SyncStatus).To(Equal(model.StatusNoRemote))
		})

		It("falls back to rev-list counts when the probe has none", func() {
			adapter.add(root, "repo", &fakeRepo{
				probe:    model.Probe{Branch: "main", Upstream: "origin/main"},
				aheadBeh: &[2]int{0, 4},
			})

			statuses, err := newEngine().Status(ctx, engine.StatusOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].SyncStatus).To(Equal(model.StatusBehind))
			Expect(statuses[0].Behind).To(Equal(4))
		})

		It("turns probe failures and panics into error statuses", func() {
			adapter.add(root, "broken", &fakeRepo{probeErr: errBoom})
			adapter.add(root, "explodes", &fakeRepo{panics: true})
			adapter.add(root, "fine", &fakeRepo{probe: tracked(0, 0)})

			statuses, err := newEngine().Status(ctx, engine.StatusOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(HaveLen(3))

			Expect(statuses[0].SyncStatus).To(Equal(model.StatusError))
			Expect(statuses[0].Error).To(Equal("status probe failed: boom"))
			Expect(statuses[1].SyncStatus).To(Equal(model.StatusError))
			Expect(statuses[1].Error).To(ContainSubstring("probe exploded"))
			Expect(statuses[2].SyncStatus).To(Equal(model.StatusClean))

			for _, s := range statuses[:2] {
				Expect(s.NeedsPull()).To(BeFalse())
				Expect(s.NeedsPush()).To(BeFalse())
			}
			Expect(model.Summarize(statuses).Errors).To(Equal(2))
		})

		It("fetches inside each worker when refreshing", func() {
			adapter.add(root, "ok", &fakeRepo{probe: tracked(0, 0)})
			adapter.add(root, "offline", &fakeRepo{fetch: failed("Could not resolve host: example.com", gitx.ClassNetwork)})

			statuses, err := newEngine().Status(ctx, engine.StatusOptions{Fetch: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.called("fetch")).To(Equal([]string{"offline", "ok"}))
			Expect(statuses[0].SyncStatus).To(Equal(model.StatusError))
			Expect(statuses[0].Error).To(Equal("Fetch failed: Could not resolve host: example.com"))
			Expect(statuses[0].ErrorClass).To(Equal(gitx.ClassNetwork))
			Expect(statuses[1].SyncStatus).To(Equal(model.StatusClean))
		})
	})

	Describe("Fetch", func() {
		It("isolates failures to their own repository", func() {
			adapter.add(root, "a", &fakeRepo{})
			adapter.add(root, "b", &fakeRepo{fetch: failed("fatal: Authentication failed", gitx.ClassAuth)})
			adapter.add(root, "c", &fakeRepo{})

			results, err := newEngine().Fetch(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(resultNames(results)).To(Equal([]string{"a", "b", "c"}))
			Expect(results[0].Success).To(BeTrue())
			Expect(results[0].Message).To(Equal("Fetched successfully"))
			Expect(results[1].Success).To(BeFalse())
			Expect(results[1].ErrorClass).To(Equal(gitx.ClassAuth))
			Expect(results[2].Success).To(BeTrue())
			Expect(model.SummarizeResults(results)).To(Equal(model.ResultSummary{Total: 3, Success: 2, Failed: 1}))
		})
	})

	Describe("Pull", func() {
		// A is behind with a clean tree; B diverged on disjoint files; C
		// diverged on the same file.
		setupABC := func() {
			adapter.add(root, "A", &fakeRepo{probe: tracked(0, 2)})
			adapter.add(root, "B", &fakeRepo{
				probe:     tracked(1, 1),
				mergeBase: "base",
				changed: map[string][]string{
					"base..@{u}": {"x.py"},
					"base..HEAD": {"y.py"},
				},
			})
			adapter.add(root, "C", &fakeRepo{
				probe:     tracked(1, 1),
				mergeBase: "base",
				changed: map[string][]string{
					"base..@{u}": {"x.py"},
					"base..HEAD": {"x.py"},
				},
			})
			adapter.add(root, "D", &fakeRepo{probe: tracked(3, 0)})
		}

		It("smart mode pulls safe repos and at-risk repos without overlap", func() {
			setupABC()
			report, err := newEngine().Pull(ctx, engine.PullOptions{Mode: engine.PullSmart})
			Expect(err).NotTo(HaveOccurred())

			Expect(resultNames(report.Results)).To(Equal([]string{"A", "B"}))
			Expect(adapter.called("mergebase")).To(Equal([]string{"B", "C"}))
			Expect(adapter.called("pull")).To(Equal([]string{"A", "B"}))
			Expect(report.Skipped).To(HaveLen(1))
			Expect(report.Skipped[0].Name).To(Equal("C"))
		})

		It("treats a missing merge base as a conflict", func() {
			adapter.add(root, "nobase", &fakeRepo{probe: tracked(1, 1)})
			report, err := newEngine().Pull(ctx, engine.PullOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Results).To(BeEmpty())
			Expect(report.Skipped).To(HaveLen(1))
		})

		It("safe mode skips at-risk repos without consulting the resolver", func() {
			setupABC()
			report, err := newEngine().Pull(ctx, engine.PullOptions{Mode: engine.PullSafe})
			Expect(err).NotTo(HaveOccurred())
			Expect(resultNames(report.Results)).To(Equal([]string{"A"}))
			Expect(adapter.called("mergebase")).To(BeEmpty())
			Expect(report.Skipped).To(HaveLen(2))
		})

		It("force mode pulls everything that is behind", func() {
			setupABC()
			report, err := newEngine().Pull(ctx, engine.PullOptions{Mode: engine.PullForce})
			Expect(err).NotTo(HaveOccurred())
			Expect(resultNames(report.Results)).To(Equal([]string{"A", "B", "C"}))
			Expect(adapter.called("mergebase")).To(BeEmpty())
		})

		It("pulls every repository with All", func() {
			setupABC()
			report, err := newEngine().Pull(ctx, engine.PullOptions{All: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(resultNames(report.Results)).To(Equal([]string{"A", "B", "C", "D"}))
			Expect(adapter.called("probe")).To(BeEmpty())
		})

		It("reports the selection without pulling on dry-run", func() {
			setupABC()
			report, err := newEngine().Pull(ctx, engine.PullOptions{DryRun: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Results).To(HaveLen(2))
			for _, r := range report.Results {
				Expect(r.Success).To(BeTrue())
				Expect(r.Operation).To(Equal(model.OpPull))
				Expect(r.Message).To(Equal("Would pull (dry-run)"))
			}
			Expect(adapter.called("pull")).To(BeEmpty())
		})

		It("reuses supplied statuses instead of refreshing", func() {
			setupABC()
			eng := newEngine()
			statuses, err := eng.Status(ctx, engine.StatusOptions{})
			Expect(err).NotTo(HaveOccurred())
			adapter.reset()

			_, err = eng.Pull(ctx, engine.PullOptions{Mode: engine.PullForce, Statuses: statuses})
			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.called("fetch")).To(BeEmpty())
			Expect(adapter.called("probe")).To(BeEmpty())
		})

		It("refreshes with a fetch when no statuses are supplied", func() {
			setupABC()
			_, err := newEngine().Pull(ctx, engine.PullOptions{Mode: engine.PullForce})
			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.called("fetch")).To(Equal([]string{"A", "B", "C", "D"}))
		})

		It("parses pull modes", func() {
			for raw, want := range map[string]engine.PullMode{
				"":      engine.PullSmart,
				"smart": engine.PullSmart,
				"safe":  engine.PullSafe,
				"force": engine.PullForce,
			} {
				got, err := engine.ParsePullMode(raw)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(want))
			}
			_, err := engine.ParsePullMode("yolo")
			Expect(err).To(MatchError(ContainSubstring("unknown pull mode")))
		})
	})

	Describe("Push", func() {
		BeforeEach(func() {
			adapter.add(root, "ahead", &fakeRepo{probe: tracked(2, 0)})
			adapter.add(root, "diverged", &fakeRepo{probe: tracked(1, 1)})
			adapter.add(root, "clean", &fakeRepo{probe: tracked(0, 0)})
			adapter.add(root, "rejected", &fakeRepo{
				probe: tracked(1, 0),
				push:  failed("! [rejected] main -> main (fetch first)", gitx.ClassUnknown),
			})
		})

		It("pushes repositories that are ahead or diverged", func() {
			results, err := newEngine().Push(ctx, engine.PushOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resultNames(results)).To(Equal([]string{"ahead", "diverged", "rejected"}))
			Expect(results[2].Success).To(BeFalse())
			Expect(results[2].Error).To(ContainSubstring("rejected"))
		})

		It("reports the selection without pushing on dry-run", func() {
			results, err := newEngine().Push(ctx, engine.PushOptions{DryRun: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].Message).To(Equal("Would push (dry-run)"))
			Expect(adapter.called("push")).To(BeEmpty())
		})

		It("pushes every repository with All", func() {
			results, err := newEngine().Push(ctx, engine.PushOptions{All: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))
		})
	})

	Describe("Sync", func() {
		It("runs fetch, pull, push and a final scan in order", func() {
			adapter.add(root, "behind", &fakeRepo{probe: tracked(0, 1)})
			adapter.add(root, "ahead", &fakeRepo{probe: tracked(1, 0)})

			var stages []engine.SyncStage
			report, err := newEngine().Sync(ctx, engine.SyncOptions{
				OnStage: func(s engine.SyncStage) { stages = append(stages, s) },
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(stages).To(Equal([]engine.SyncStage{
				engine.StageFetch, engine.StagePull, engine.StagePush, engine.StageStatus,
			}))
			Expect(resultNames(report.Fetch)).To(Equal([]string{"ahead", "behind"}))
			Expect(resultNames(report.Pull)).To(Equal([]string{"behind"}))
			Expect(resultNames(report.Push)).To(Equal([]string{"ahead"}))
			Expect(report.Root).To(Equal(root))
			Expect(report.Status).To(HaveLen(2))
			Expect(report.Operations).To(Equal(model.SyncSummary{Fetched: 2, Pulled: 1, Pushed: 1}))
			// Pre-pull, post-pull and final scans each probe every repo once.
			Expect(adapter.called("probe")).To(HaveLen(6))
		})

		It("reuses the first scan throughout a dry-run", func() {
			adapter.add(root, "behind", &fakeRepo{probe: tracked(0, 1)})
			adapter.add(root, "ahead", &fakeRepo{probe: tracked(1, 0)})

			report, err := newEngine().Sync(ctx, engine.SyncOptions{DryRun: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(adapter.called("pull")).To(BeEmpty())
			Expect(adapter.called("push")).To(BeEmpty())
			Expect(adapter.called("fetch")).To(HaveLen(2))
			Expect(adapter.called("probe")).To(HaveLen(2))
			Expect(report.Pull[0].Message).To(Equal("Would pull (dry-run)"))
			Expect(report.Push[0].Message).To(Equal("Would push (dry-run)"))
			Expect(report.Summary.Total).To(Equal(2))
		})

		It("reports stage results as they complete", func() {
			adapter.add(root, "repo", &fakeRepo{probe: tracked(0, 0)})
			done := map[engine.SyncStage]int{}
			_, err := newEngine().Sync(ctx, engine.SyncOptions{
				OnStageDone: func(s engine.SyncStage, results []model.OperationResult) { done[s] = len(results) },
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(Equal(map[engine.SyncStage]int{
				engine.StageFetch: 1, engine.StagePull: 0, engine.StagePush: 0,
			}))
			Expect(adapter.called("probe")).To(HaveLen(1))
		})

		It("labels each stage", func() {
			Expect(engine.StageFetch.String()).To(Equal("Fetching all repositories"))
			Expect(engine.StageStatus.String()).To(Equal("Checking final status"))
			Expect(engine.SyncStage(0).String()).To(Equal("unknown stage"))
		})
	})

	Describe("Identities", func() {
		It("reports values with their config scope", func() {
			adapter.add(root, "global", &fakeRepo{identity: map[string]model.ConfigValue{
				"user.name":  {Value: "Dev", File: "/home/dev/.gitconfig"},
				"user.email": {Value: "dev@example.com", File: "/home/dev/.gitconfig"},
			}})
			adapter.add(root, "override", &fakeRepo{
				identity: map[string]model.ConfigValue{
					"user.email": {Value: "work@example.com", File: ".git/config"},
				},
				local: map[string]string{"user.email": "work@example.com"},
			})
			adapter.add(root, "unset", &fakeRepo{})

			ids, err := newEngine().Identities(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(3))

			Expect(ids[0].Source).To(Equal(model.SourceGlobal))
			Expect(ids[0].UserName).To(Equal("Dev"))
			Expect(ids[0].LocalOverride).To(BeFalse())

			Expect(ids[1].Source).To(Equal(model.SourceLocal))
			Expect(ids[1].LocalOverride).To(BeTrue())
			Expect(ids[1].SourceFile).To(Equal(".git/config"))

			Expect(ids[2].Source).To(Equal(model.SourceUnknown))
		})

		It("takes the source from the file that sets the email", func() {
			adapter.add(root, "work", &fakeRepo{identity: map[string]model.ConfigValue{
				"user.name":  {Value: "Dev", File: "/home/dev/.gitconfig"},
				"user.email": {Value: "dev@work.example.com", File: "/home/dev/.gitconfig-work"},
			}})
			adapter.add(root, "nameonly", &fakeRepo{identity: map[string]model.ConfigValue{
				"user.name": {Value: "Dev", File: "/home/dev/.gitconfig"},
			}})

			ids, err := newEngine().Identities(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))

			Expect(ids[0].Name).To(Equal("nameonly"))
			Expect(ids[0].Source).To(Equal(model.SourceGlobal))
			Expect(ids[0].SourceFile).To(Equal("/home/dev/.gitconfig"))

			Expect(ids[1].Name).To(Equal("work"))
			Expect(ids[1].Source).To(Equal(model.SourceIncluded))
			Expect(ids[1].SourceFile).To(Equal("/home/dev/.gitconfig-work"))
			Expect(ids[1].UserName).To(Equal("Dev"))
		})

		It("keeps a row for a repository whose lookup panics", func() {
			adapter.add(root, "explodes", &fakeRepo{panics: true})
			adapter.add(root, "fine", &fakeRepo{
				identity: map[string]model.ConfigValue{"user.email": {Value: "dev@example.com", File: "/home/dev/.gitconfig"}},
				remotes:  []model.Remote{{Name: "origin", FetchURL: "git@github.com:org/fine.git"}},
			})
			eng := newEngine()

			ids, err := eng.Identities(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))
			Expect(ids[0].Name).To(Equal("explodes"))
			Expect(ids[0].Source).To(Equal(model.SourceUnknown))
			Expect(ids[1].UserEmail).To(Equal("dev@example.com"))

			remotes, err := eng.Remotes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(remotes).To(HaveLen(2))
			Expect(remotes[0].Name).To(Equal("explodes"))
			Expect(remotes[0].Remotes).To(BeEmpty())
			Expect(remotes[1].Remotes).To(HaveLen(1))
		})

		It("reads the global identity", func() {
			adapter.global["user.name"] = "Global Dev"
			Expect(newEngine().GlobalIdentity(ctx)).To(Equal(model.GlobalIdentity{UserName: "Global Dev"}))
		})
	})

	Describe("Remotes and Diffs", func() {
		It("lists remotes with an empty slice for none", func() {
			adapter.add(root, "a", &fakeRepo{remotes: []model.Remote{{Name: "origin", FetchURL: "git@github.com:o/a.git"}}})
			adapter.add(root, "b", &fakeRepo{})

			remotes, err := newEngine().Remotes(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(remotes[0].Remotes).To(HaveLen(1))
			Expect(remotes[1].Remotes).NotTo(BeNil())
			Expect(remotes[1].Remotes).To(BeEmpty())
		})

		It("returns only dirty repositories unless All is set", func() {
			adapter.add(root, "dirty", &fakeRepo{
				probe:     model.Probe{Branch: "main"},
				staged:    []model.FileChange{{Status: "M", File: "a.go"}},
				untracked: []string{"new.txt"},
			})
			adapter.add(root, "clean", &fakeRepo{probe: model.Probe{Branch: "main"}})
			eng := newEngine()

			diffs, err := eng.Diffs(ctx, engine.DiffOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(diffs).To(HaveLen(1))
			Expect(diffs[0].Name).To(Equal("dirty"))
			Expect(diffs[0].Branch).To(Equal("main"))
			Expect(diffs[0].Unstaged).To(BeEmpty())

			all, err := eng.Diffs(ctx, engine.DiffOptions{All: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})
	})
})
