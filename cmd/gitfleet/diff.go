package gitfleet

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "List uncommitted changes across repositories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting diff")
		run, err := newFleetRun(cmd, args, fleetRunOptions{includeAll: true})
		if err != nil {
			return err
		}
		defer run.Close()

		repos, err := run.fleet.Discover(cmd.Context())
		if err != nil {
			return err
		}
		diffs, err := run.fleet.Diffs(cmd.Context(), engine.DiffOptions{All: getBoolFlag(cmd, "all")})
		if err != nil {
			return err
		}
		total := len(engine.Flatten(repos))
		logOutputWriteFailure(cmd, "diff", writeDiffs(cmd, run, diffs, total))
		return nil
	},
}

func init() {
	addFleetFlags(diffCmd, false)
	addAllFlag(diffCmd, "include clean repositories")
	rootCmd.AddCommand(diffCmd)
}

type diffSummary struct {
	TotalRepos     int `json:"total_repos" yaml:"total_repos"`
	DirtyRepos     int `json:"dirty_repos" yaml:"dirty_repos"`
	TotalStaged    int `json:"total_staged" yaml:"total_staged"`
	TotalUnstaged  int `json:"total_unstaged" yaml:"total_unstaged"`
	TotalUntracked int `json:"total_untracked" yaml:"total_untracked"`
}

type diffOutput struct {
	Root         string           `json:"root,omitempty" yaml:"root,omitempty"`
	Repositories []model.RepoDiff `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Roots        []rootSection    `json:"roots,omitempty" yaml:"roots,omitempty"`
	Summary      diffSummary      `json:"summary" yaml:"summary"`
}

func diffIsDirty(d model.RepoDiff) bool {
	return len(d.Staged)+len(d.Unstaged)+len(d.Untracked) > 0
}

func summarizeDiffs(diffs []model.RepoDiff, total int) diffSummary {
	s := diffSummary{TotalRepos: total}
	for _, d := range diffs {
		if diffIsDirty(d) {
			s.DirtyRepos++
		}
		s.TotalStaged += len(d.Staged)
		s.TotalUnstaged += len(d.Unstaged)
		s.TotalUntracked += len(d.Untracked)
	}
	return s
}

func writeDiffs(cmd *cobra.Command, run *fleetRun, diffs []engine.Rooted[model.RepoDiff], total int) error {
	flat := engine.Flatten(diffs)
	summary := summarizeDiffs(flat, total)
	if run.format != cliio.FormatTable {
		out := diffOutput{Summary: summary}
		if run.multiRoot() {
			for _, r := range diffs {
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

	if summary.DirtyRepos == 0 && len(flat) == 0 {
		return writeLine(cmd, "%s", color(fmt.Sprintf("All %d repositories are clean", total), termstyle.Healthy))
	}
	where := "in " + singleRoot(run)
	if run.multiRoot() {
		where = fmt.Sprintf("across %d roots", len(run.fleet.Roots()))
	}
	if err := writeLine(cmd, "Dirty repositories: %d/%d %s", summary.DirtyRepos, total, where); err != nil {
		return err
	}

	names := repoNames(diffs, func(d model.RepoDiff) string { return d.Path })
	for _, r := range diffs {
		if run.multiRoot() && len(r.Items) > 0 {
			if err := writeLine(cmd, "\n%s", color("["+run.rootName(r.Root)+"]", termstyle.Root)); err != nil {
				return err
			}
		}
		for _, d := range r.Items {
			if err := writeRepoDiff(cmd, nameFor(names, d.Path, d.Name), d); err != nil {
				return err
			}
		}
	}
	return writeLine(cmd, "\n%s", diffSummaryLine(summary))
}

func writeRepoDiff(cmd *cobra.Command, name string, d model.RepoDiff) error {
	branch := d.Branch
	if branch == "" {
		branch = "HEAD"
	}
	if err := writeLine(cmd, "\n%s (%s)", color(name, termstyle.Name), color(branch, termstyle.Muted)); err != nil {
		return err
	}
	if !diffIsDirty(d) {
		return writeLine(cmd, "  %s", color("clean", termstyle.Healthy))
	}
	if err := writeChanges(cmd, "Staged", d.Staged, termstyle.Green); err != nil {
		return err
	}
	if err := writeChanges(cmd, "Unstaged", d.Unstaged, termstyle.Warn); err != nil {
		return err
	}
	if len(d.Untracked) == 0 {
		return nil
	}
	if err := writeLine(cmd, "  Untracked (%d):", len(d.Untracked)); err != nil {
		return err
	}
	for _, file := range d.Untracked {
		if err := writeLine(cmd, "    %s %s", color("?", termstyle.Red), file); err != nil {
			return err
		}
	}
	return nil
}

func writeChanges(cmd *cobra.Command, label string, changes []model.FileChange, c string) error {
	if len(changes) == 0 {
		return nil
	}
	if err := writeLine(cmd, "  %s (%d):", label, len(changes)); err != nil {
		return err
	}
	for _, change := range changes {
		if err := writeLine(cmd, "    %s %s", color(change.Status, c), change.File); err != nil {
			return err
		}
	}
	return nil
}

func diffSummaryLine(s diffSummary) string {
	return strings.Join([]string{
		fmt.Sprintf("Dirty: %d/%d", s.DirtyRepos, s.TotalRepos),
		color("Staged:", termstyle.Green) + fmt.Sprintf(" %d", s.TotalStaged),
		color("Unstaged:", termstyle.Warn) + fmt.Sprintf(" %d", s.TotalUnstaged),
		color("Untracked:", termstyle.Red) + fmt.Sprintf(" %d", s.TotalUntracked),
	}, " | ")
}

func singleRoot(run *fleetRun) string {
	roots := run.fleet.Roots()
	if len(roots) == 0 {
		return ""
	}
	return roots[0]
}
