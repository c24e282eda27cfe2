package gitfleet

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var syncCmd = &cobra.Command{
	Use:   "sync [path]",
	Short: "Fetch, smart-pull and push every repository",
	Long: "Sync runs four steps against every root: fetch all repositories, pull the ones " +
		"that are behind in smart mode, push the ones that are ahead, then report the final status.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting sync")
		run, err := newFleetRun(cmd, args, fleetRunOptions{})
		if err != nil {
			return err
		}
		defer run.Close()

		opts := engine.SyncOptions{DryRun: getBoolFlag(cmd, "dry-run")}
		if run.format == cliio.FormatTable {
			opts.OnRoot = func(root string) {
				if run.multiRoot() {
					infof(cmd, "%s", color(run.rootName(root), termstyle.Root))
				}
			}
			opts.OnStage = func(stage engine.SyncStage) {
				infof(cmd, "Step %d/%d: %s...", int(stage), engine.SyncStageCount, stage)
			}
			opts.OnStageDone = func(stage engine.SyncStage, results []model.OperationResult) {
				infof(cmd, "%s\n", syncStageResult(stage, results))
			}
		}
		reports, err := run.fleet.Sync(cmd.Context(), opts)
		if err != nil {
			return err
		}
		summary, ops := engine.MergeSync(reports)
		if run.format != cliio.FormatTable {
			logOutputWriteFailure(cmd, "sync", writeStructured(cmd, run.format, newSyncOutput(run, reports, summary, ops)))
			return nil
		}
		statuses := make([]engine.Rooted[model.RepoStatus], 0, len(reports))
		for _, r := range reports {
			statuses = append(statuses, engine.Rooted[model.RepoStatus]{Root: r.Root, Items: r.Status})
		}
		logOutputWriteFailure(cmd, "sync", writeStatusReport(cmd, run, statuses, summary, &ops))
		if summary.ConflictRisk > 0 {
			logOutputWriteFailure(cmd, "sync attention", writeLine(cmd, "\n%s",
				color(formatCount(summary.ConflictRisk, "repository needs", "repositories need")+" manual attention", termstyle.Bold+termstyle.Red)))
		}
		return nil
	},
}

func init() {
	addFleetFlags(syncCmd, true)
	addDryRunFlag(syncCmd)
	rootCmd.AddCommand(syncCmd)
}

func syncStageResult(stage engine.SyncStage, results []model.OperationResult) string {
	switch stage {
	case engine.StageFetch:
		return stageLine("Fetched", results)
	case engine.StagePull:
		if len(results) == 0 {
			return "  No repositories needed pulling"
		}
		return stageLine("Pulled", results)
	case engine.StagePush:
		if len(results) == 0 {
			return "  No repositories needed pushing"
		}
		return stageLine("Pushed", results)
	case engine.StageStatus:
		return ""
	default:
		return ""
	}
}

type rootResults struct {
	Root    string                  `json:"root" yaml:"root"`
	Results []model.OperationResult `json:"results" yaml:"results"`
}

type rootStatuses struct {
	Root     string             `json:"root" yaml:"root"`
	Statuses []model.RepoStatus `json:"statuses" yaml:"statuses"`
}

type multiRootSyncOutput struct {
	Fetch      []rootResults      `json:"fetch" yaml:"fetch"`
	Pull       []rootResults      `json:"pull" yaml:"pull"`
	Push       []rootResults      `json:"push" yaml:"push"`
	Status     []rootStatuses     `json:"status" yaml:"status"`
	Summary    model.FleetSummary `json:"summary" yaml:"summary"`
	Operations model.SyncSummary  `json:"sync_operations" yaml:"sync_operations"`
}

func newSyncOutput(run *fleetRun, reports []engine.SyncReport, summary model.FleetSummary, ops model.SyncSummary) any {
	if !run.multiRoot() && len(reports) == 1 {
		report := reports[0]
		report.Root = ""
		report.Fetch = nonNilSlice(report.Fetch)
		report.Pull = nonNilSlice(report.Pull)
		report.Push = nonNilSlice(report.Push)
		report.Status = nonNilSlice(report.Status)
		return report
	}
	out := multiRootSyncOutput{Summary: summary, Operations: ops}
	for _, r := range reports {
		out.Fetch = append(out.Fetch, rootResults{Root: r.Root, Results: nonNilSlice(r.Fetch)})
		out.Pull = append(out.Pull, rootResults{Root: r.Root, Results: nonNilSlice(r.Pull)})
		out.Push = append(out.Push, rootResults{Root: r.Root, Results: nonNilSlice(r.Push)})
		out.Status = append(out.Status, rootStatuses{Root: r.Root, Statuses: nonNilSlice(r.Status)})
	}
	return out
}
