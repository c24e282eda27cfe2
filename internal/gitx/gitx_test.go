package gitx_test

import (
	"context"
	"errors"
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/model"
)

var _ = Describe("GitRunner.Run", func() {
	var runner *gitx.GitRunner

	BeforeEach(func() {
		if _, err := exec.LookPath("git"); err != nil {
			Skip("git binary not available")
		}
		runner = &gitx.GitRunner{}
	})

	It("runs git version successfully", func() {
		out, _, err := runner.Run(context.Background(), "", "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("git version"))
	})

	It("returns a CommandError with stderr and exit code on failure", func() {
		dir := GinkgoT().TempDir()
		_, stderr, err := runner.Run(context.Background(), dir, "rev-parse", "--verify", "no-such-ref")
		Expect(err).To(HaveOccurred())
		var cmdErr *gitx.CommandError
		Expect(errors.As(err, &cmdErr)).To(BeTrue())
		Expect(cmdErr.ExitCode).To(BeNumerically(">", 0))
		Expect(stderr).NotTo(BeEmpty())
	})

	It("errors for nonexistent directory", func() {
		_, _, err := runner.Run(context.Background(), "/nonexistent/path/xyz", "status")
		Expect(err).To(HaveOccurred())
	})

	It("surfaces context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := runner.Run(ctx, "", "version")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(gitx.ClassifyError(err)).To(Equal("timeout"))
	})
})

var _ = Describe("FetchAll", func() {
	It("returns the tool error text on failure", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:fetch --all --prune": {Stderr: "fatal: unable to access 'https://x/': Could not resolve host: x\n", Err: errors.New("exit status 128")},
		}}
		text, err := gitx.FetchAll(context.Background(), mock, "/repo")
		Expect(err).To(HaveOccurred())
		Expect(text).To(HavePrefix("fatal: unable to access"))
	})

	It("succeeds quietly", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:fetch --all --prune": {},
		}}
		_, err := gitx.FetchAll(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Status", func() {
	It("parses a single porcelain invocation", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:status --porcelain=v2 --branch": {Stdout: "# branch.head main\n# branch.upstream origin/main\n# branch.ab +1 -0\n? new.txt\n"},
		}}
		p, err := gitx.Status(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Ahead).To(Equal(1))
		Expect(p.Untracked).To(Equal(1))
		Expect(mock.Calls).To(HaveLen(1))
	})

	It("wraps failures", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:status --porcelain=v2 --branch": {Err: errors.New("not a git repository")},
		}}
		_, err := gitx.Status(context.Background(), mock, "/repo")
		Expect(err).To(MatchError(ContainSubstring("git status")))
	})
})

var _ = Describe("AheadBehind", func() {
	It("reads rev-list counts", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:rev-list --left-right --count @{u}...HEAD": {Stdout: "4\t1\n"},
		}}
		ahead, behind, err := gitx.AheadBehind(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(ahead).To(Equal(1))
		Expect(behind).To(Equal(4))
	})
})

var _ = Describe("file listings", func() {
	mock := &MockRunner{Responses: map[string]MockResponse{
		"/repo:diff --cached --name-status":            {Stdout: "A\tadded.go\n"},
		"/repo:diff --name-status":                     {Stdout: "M\tmain.go\nD\told.go\n"},
		"/repo:ls-files --others --exclude-standard":   {Stdout: "scratch.txt\n"},
		"/repo:diff --name-only HEAD":                  {Stdout: "added.go\nmain.go\nold.go\n"},
		"/repo:diff --name-only abc123 @{u}":           {Stdout: "remote.go\n"},
		"/repo:log -1 --format=%cI":                    {Stdout: "2025-01-02T03:04:05Z\n"},
		"/repo:rev-parse --abbrev-ref HEAD":            {Stdout: "feature/x\n"},
		"/repo:merge-base HEAD @{u}":                   {Stdout: "abc123\n"},
		"/repo:config --show-origin user.email":        {Stdout: "file:.git/config\tdev@example.com\n"},
		"/repo:config --local user.name":               {Stdout: "Dev\n"},
		":config --global user.name":                   {Stdout: "Global Dev\n"},
		"/repo:rev-parse --abbrev-ref --symbolic-full-name @{u}": {Stdout: "origin/feature/x\n"},
	}}
	ctx := context.Background()

	It("lists staged and unstaged changes", func() {
		staged, err := gitx.StagedFiles(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(staged).To(Equal([]model.FileChange{{Status: "A", File: "added.go"}}))

		unstaged, err := gitx.UnstagedFiles(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(unstaged).To(HaveLen(2))
	})

	It("combines tracked and untracked dirty files", func() {
		files, err := gitx.DirtyFiles(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(Equal([]string{"added.go", "main.go", "old.go", "scratch.txt"}))
	})

	It("reads merge base and changed files", func() {
		base, err := gitx.MergeBase(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(base).To(Equal("abc123"))

		files, err := gitx.ChangedFiles(ctx, mock, "/repo", base, gitx.UpstreamRef)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(ConsistOf("remote.go"))
	})

	It("reads branch names and commit date", func() {
		branch, err := gitx.CurrentBranch(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(branch).To(Equal("feature/x"))

		upstream, err := gitx.Upstream(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(upstream).To(Equal("origin/feature/x"))

		ts, err := gitx.LastCommitDate(ctx, mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).NotTo(BeNil())
		Expect(ts.Year()).To(Equal(2025))
	})

	It("reads config values with and without provenance", func() {
		v, err := gitx.ConfigWithOrigin(ctx, mock, "/repo", "user.email")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(model.ConfigValue{Value: "dev@example.com", File: ".git/config"}))

		local, err := gitx.LocalConfig(ctx, mock, "/repo", "user.name")
		Expect(err).NotTo(HaveOccurred())
		Expect(local).To(Equal("Dev"))

		global, err := gitx.GlobalConfig(ctx, mock, "user.name")
		Expect(err).NotTo(HaveOccurred())
		Expect(global).To(Equal("Global Dev"))
	})

	It("fails merge base lookups without an upstream", func() {
		noUpstream := &MockRunner{Responses: map[string]MockResponse{
			"/repo:merge-base HEAD @{u}": {Stderr: "fatal: no upstream configured for branch 'main'", Err: errors.New("exit status 128")},
		}}
		_, err := gitx.MergeBase(ctx, noUpstream, "/repo")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Remotes", func() {
	It("defaults the push URL to the fetch URL", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:remote":                          {Stdout: "origin\nmirror\n"},
			"/repo:remote get-url origin":           {Stdout: "git@github.com:org/repo.git\n"},
			"/repo:remote get-url --push origin":    {Stdout: "git@github.com:org/repo.git\n"},
			"/repo:remote get-url mirror":           {Stdout: "https://mirror.example.com/repo.git\n"},
			"/repo:remote get-url --push mirror":    {Stdout: "ssh://git@push.example.com/repo.git\n"},
		}}
		remotes, err := gitx.Remotes(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(remotes).To(Equal([]model.Remote{
			{Name: "origin", FetchURL: "git@github.com:org/repo.git", PushURL: "git@github.com:org/repo.git", Protocol: model.ProtocolSSH},
			{Name: "mirror", FetchURL: "https://mirror.example.com/repo.git", PushURL: "ssh://git@push.example.com/repo.git", Protocol: model.ProtocolHTTPS},
		}))
	})

	It("falls back to the fetch URL when the push lookup fails", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:remote":                {Stdout: "origin\n"},
			"/repo:remote get-url origin": {Stdout: "/srv/git/repo.git\n"},
		}}
		remotes, err := gitx.Remotes(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(remotes).To(HaveLen(1))
		Expect(remotes[0].PushURL).To(Equal("/srv/git/repo.git"))
		Expect(remotes[0].Protocol).To(Equal(model.ProtocolFile))
	})

	It("returns no remotes for an empty listing", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{"/repo:remote": {}}}
		remotes, err := gitx.Remotes(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(remotes).To(BeEmpty())
	})
})

var _ = Describe("IsDetached", func() {
	It("treats exit code 1 as detached", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:symbolic-ref -q HEAD": {Err: &gitx.CommandError{Args: []string{"symbolic-ref"}, ExitCode: 1, Err: errors.New("exit status 1")}},
		}}
		detached, err := gitx.IsDetached(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(detached).To(BeTrue())
	})

	It("reports attached heads", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:symbolic-ref -q HEAD": {Stdout: "refs/heads/main\n"},
		}}
		detached, err := gitx.IsDetached(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(detached).To(BeFalse())
	})

	It("returns other failures as errors", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:symbolic-ref -q HEAD": {Err: &gitx.CommandError{Args: []string{"symbolic-ref"}, ExitCode: 128, Err: errors.New("exit status 128")}},
		}}
		_, err := gitx.IsDetached(context.Background(), mock, "/repo")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Pull and Push", func() {
	It("returns stdout for a successful pull", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:pull": {Stdout: "Fast-forward\n a.go | 2 +-\n", Stderr: "From github.com:org/repo\n"},
		}}
		msg, err := gitx.Pull(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(HavePrefix("Fast-forward"))
	})

	It("returns stderr for a failed pull", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:pull": {Stderr: "error: Your local changes would be overwritten\n", Err: errors.New("exit status 1")},
		}}
		msg, err := gitx.Pull(context.Background(), mock, "/repo")
		Expect(err).To(HaveOccurred())
		Expect(msg).To(Equal("error: Your local changes would be overwritten"))
	})

	It("prefers stderr for push output", func() {
		mock := &MockRunner{Responses: map[string]MockResponse{
			"/repo:push": {Stderr: "To github.com:org/repo.git\n   abc..def  main -> main\n"},
		}}
		msg, err := gitx.Push(context.Background(), mock, "/repo")
		Expect(err).NotTo(HaveOccurred())
		Expect(msg).To(HavePrefix("To github.com"))
	})
})
