package gitfleet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/remotemismatch"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var remoteCmd = &cobra.Command{
	Use:     "remote [path]",
	Aliases: []string{"remotes"},
	Short:   "Show the remotes configured in every repository",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting remote")
		run, err := newFleetRun(cmd, args, fleetRunOptions{includeAll: true})
		if err != nil {
			return err
		}
		defer run.Close()

		remotes, err := run.fleet.Remotes(cmd.Context())
		if err != nil {
			return err
		}
		logOutputWriteFailure(cmd, "remote", writeRemotes(cmd, run, remotes))
		return nil
	},
}

func init() {
	addFleetFlags(remoteCmd, false)
	rootCmd.AddCommand(remoteCmd)
}

type remoteSummary struct {
	TotalRepos   int                          `json:"total_repos" yaml:"total_repos"`
	TotalRemotes int                          `json:"total_remotes" yaml:"total_remotes"`
	ByProtocol   map[model.RemoteProtocol]int `json:"by_protocol" yaml:"by_protocol"`
}

type remoteOutput struct {
	Root         string                   `json:"root,omitempty" yaml:"root,omitempty"`
	Repositories []model.RepoRemotes      `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Roots        []rootSection            `json:"roots,omitempty" yaml:"roots,omitempty"`
	Summary      remoteSummary            `json:"summary" yaml:"summary"`
	Findings     []remotemismatch.Finding `json:"findings" yaml:"findings"`
}

func summarizeRemotes(repos []model.RepoRemotes) remoteSummary {
	s := remoteSummary{TotalRepos: len(repos), ByProtocol: make(map[model.RemoteProtocol]int)}
	for _, repo := range repos {
		for _, r := range repo.Remotes {
			s.TotalRemotes++
			s.ByProtocol[r.Protocol]++
		}
	}
	return s
}

func writeRemotes(cmd *cobra.Command, run *fleetRun, remotes []engine.Rooted[model.RepoRemotes]) error {
	flat := engine.Flatten(remotes)
	summary := summarizeRemotes(flat)
	findings := remotemismatch.Audit(flat)
	if run.format != cliio.FormatTable {
		out := remoteOutput{Summary: summary, Findings: nonNilSlice(findings)}
		if run.multiRoot() {
			for _, r := range remotes {
				out.Roots = append(out.Roots, rootSection{
					Root:         r.Root,
					RootName:     run.rootName(r.Root),
					Repositories: nonNilSlice(r.Items),
				})
			}
		} else {
			out.Root = singleRoot(run)
			out.Repositories = nonNilSlice(flat)
		}
		return writeStructured(cmd, run.format, out)
	}

	multi := run.multiRoot()
	names := repoNames(remotes, func(r model.RepoRemotes) string { return r.Path })
	headers := []string{"REPOSITORY", "REMOTE", "URL", "PROTOCOL"}
	if multi {
		headers = append([]string{"ROOT"}, headers...)
	}
	var rows [][]string
	for _, r := range remotes {
		for _, repo := range r.Items {
			for _, row := range remoteRows(nameFor(names, repo.Path, repo.Name), repo) {
				if multi {
					row = append([]string{color(run.rootName(r.Root), termstyle.Root)}, row...)
				}
				rows = append(rows, row)
			}
		}
	}
	if err := cliio.WriteTable(cmd.OutOrStdout(), true, getBoolFlag(cmd, "no-headers"), headers, rows); err != nil {
		return err
	}
	if err := writeLine(cmd, "\n%s", remoteSummaryLine(summary)); err != nil {
		return err
	}
	return writeFindings(cmd, names, findings)
}

// remoteRows renders one row per remote, plus a push row when the push URL
// differs from the fetch URL.
func remoteRows(name string, repo model.RepoRemotes) [][]string {
	if len(repo.Remotes) == 0 {
		return [][]string{{color(name, termstyle.Name), color("none", termstyle.Muted), "-", "-"}}
	}
	var rows [][]string
	for i, r := range repo.Remotes {
		repoCell := ""
		if i == 0 {
			repoCell = color(name, termstyle.Name)
		}
		c := termstyle.ForProtocol(r.Protocol)
		rows = append(rows, []string{repoCell, r.Name, r.FetchURL, color(string(r.Protocol), c)})
		if remotemismatch.PushDiffers(r) {
			rows = append(rows, []string{"", "", color("push: ", termstyle.Muted) + r.PushURL, ""})
		}
	}
	return rows
}

func remoteSummaryLine(s remoteSummary) string {
	parts := []string{
		fmt.Sprintf("Repos: %d", s.TotalRepos),
		fmt.Sprintf("Remotes: %d", s.TotalRemotes),
	}
	protocols := make([]string, 0, len(s.ByProtocol))
	for p := range s.ByProtocol {
		protocols = append(protocols, string(p))
	}
	sort.Strings(protocols)
	for _, p := range protocols {
		proto := model.RemoteProtocol(p)
		parts = append(parts, color(strings.ToUpper(p)+":", termstyle.ForProtocol(proto))+fmt.Sprintf(" %d", s.ByProtocol[proto]))
	}
	return strings.Join(parts, " | ")
}

func writeFindings(cmd *cobra.Command, names map[string]string, findings []remotemismatch.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	if err := writeLine(cmd, "\n%s", color("Remote findings:", termstyle.Warn)); err != nil {
		return err
	}
	for _, f := range findings {
		name := nameFor(names, f.Path, f.Name)
		var line string
		switch f.Kind {
		case remotemismatch.KindPushTarget:
			line = fmt.Sprintf("  %s - %s pushes to %s (fetches %s)", name, f.Remote, f.PushURL, f.URL)
		case remotemismatch.KindDuplicateClone:
			others := make([]string, 0, len(f.Others))
			for _, o := range f.Others {
				others = append(others, nameFor(names, o, o))
			}
			line = fmt.Sprintf("  %s - same remote %s as %s", name, f.URL, strings.Join(others, ", "))
		default:
			line = fmt.Sprintf("  %s - %s", name, f.Kind)
		}
		if err := writeLine(cmd, "%s", line); err != nil {
			return err
		}
	}
	return nil
}
