// SPDX-License-Identifier: MIT
package gitfleet

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/tableutil"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Show the sync status of every repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting status")
		run, err := newFleetRun(cmd, args, fleetRunOptions{})
		if err != nil {
			return err
		}
		defer run.Close()

		discovered, err := run.fleet.Discover(cmd.Context())
		if err != nil {
			return err
		}
		if run.format == cliio.FormatTable && !run.multiRoot() {
			infof(cmd, "Found %d repositories", len(engine.Flatten(discovered)))
		}
		noFetch := getBoolFlag(cmd, "no-fetch")
		if noFetch {
			debugf(cmd, "analyzing without fetch")
		} else {
			debugf(cmd, "fetching and analyzing")
		}
		statuses, err := run.fleet.Status(cmd.Context(), engine.StatusOptions{Fetch: !noFetch})
		if err != nil {
			return err
		}
		summary := run.fleet.Summary(statuses)
		logOutputWriteFailure(cmd, "status", writeStatusReport(cmd, run, statuses, summary, nil))
		return nil
	},
}

func init() {
	addFleetFlags(statusCmd, true)
	statusCmd.Flags().Bool("no-fetch", false, "skip fetching before the status check")
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Repositories []model.RepoStatus `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Roots        []rootSection      `json:"roots,omitempty" yaml:"roots,omitempty"`
	Summary      model.FleetSummary `json:"summary" yaml:"summary"`
}

func newStatusOutput(run *fleetRun, statuses []engine.Rooted[model.RepoStatus], summary model.FleetSummary) statusOutput {
	out := statusOutput{Summary: summary}
	if !run.multiRoot() {
		out.Repositories = nonNilSlice(engine.Flatten(statuses))
		return out
	}
	for _, r := range statuses {
		out.Roots = append(out.Roots, rootSection{
			Root:         r.Root,
			RootName:     run.rootName(r.Root),
			Repositories: nonNilSlice(r.Items),
		})
	}
	return out
}

// writeStatusReport renders statuses as a table with a summary footer, or
// as structured output. ops adds the sync stage counts when non-nil.
func writeStatusReport(cmd *cobra.Command, run *fleetRun, statuses []engine.Rooted[model.RepoStatus], summary model.FleetSummary, ops *model.SyncSummary) error {
	if run.format != cliio.FormatTable {
		return writeStructured(cmd, run.format, newStatusOutput(run, statuses, summary))
	}
	if err := writeStatusTable(cmd, run, statuses); err != nil {
		return err
	}
	if err := writeLine(cmd, "\n%s", summaryLine(summary)); err != nil {
		return err
	}
	if ops != nil {
		if line := syncSummaryLine(*ops); line != "" {
			return writeLine(cmd, "%s", line)
		}
	}
	return nil
}

func writeStatusTable(cmd *cobra.Command, run *fleetRun, statuses []engine.Rooted[model.RepoStatus]) error {
	multi := run.multiRoot()
	if multi {
		if err := writeLine(cmd, "Fleet Status: %d roots\n", len(statuses)); err != nil {
			return err
		}
	} else if err := writeLine(cmd, "Fleet Status: %s\n", run.fleet.Roots()[0]); err != nil {
		return err
	}

	names := repoNames(statuses, func(s model.RepoStatus) string { return s.Path })
	branchMax := branchColumn.forCommand(cmd)
	w := tableutil.New(cmd.OutOrStdout(), true)
	headers := []string{"REPOSITORY", "BRANCH", "SYNC", "WORKING TREE", "LAST COMMIT"}
	if multi {
		headers = append([]string{"ROOT"}, headers...)
	}
	if err := tableutil.PrintHeaders(w, getBoolFlag(cmd, "no-headers"), headers...); err != nil {
		return err
	}
	for _, r := range statuses {
		for _, st := range r.Items {
			row := []string{
				repoCell(nameFor(names, st.Path, st.Name), st),
				color(truncateCell(st.Branch, branchMax), termstyle.Green),
				syncCell(st),
				workingTreeCell(st),
				lastCommitCell(st),
			}
			if multi {
				row = append([]string{color(run.rootName(r.Root), termstyle.Root)}, row...)
			}
			if err := tableutil.PrintRow(w, row...); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
