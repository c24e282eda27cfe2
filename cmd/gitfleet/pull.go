package gitfleet

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/sortutil"
)

var errForceAndSafe = errors.New("--force and --safe are mutually exclusive")

var pullCmd = &cobra.Command{
	Use:   "pull [path]",
	Short: "Pull repositories that are behind their upstream",
	Long: "Pull repositories that are behind their upstream.\n\n" +
		"By default (smart mode) repositories at conflict risk are pulled only when the files " +
		"changed locally and upstream do not overlap. Use --safe to skip every at-risk " +
		"repository, or --force to pull everything that is behind.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting pull")
		force := getBoolFlag(cmd, "force")
		safe := getBoolFlag(cmd, "safe")
		if force && safe {
			return errForceAndSafe
		}
		run, err := newFleetRun(cmd, args, fleetRunOptions{})
		if err != nil {
			return err
		}
		defer run.Close()

		mode, err := pullModeFor(force, safe, run.cfg.Defaults.PullMode)
		if err != nil {
			return err
		}
		opts := engine.PullOptions{
			Mode:   mode,
			All:    getBoolFlag(cmd, "all"),
			DryRun: getBoolFlag(cmd, "dry-run"),
		}
		debugf(cmd, "pull mode %s (dry-run=%t, all=%t)", mode, opts.DryRun, opts.All)

		var statuses []engine.Rooted[model.RepoStatus]
		if mode == engine.PullSafe && !opts.All {
			statuses, err = run.fleet.Status(cmd.Context(), engine.StatusOptions{Fetch: true})
			if err != nil {
				return err
			}
			if run.format == cliio.FormatTable {
				warnConflictRisk(cmd, engine.Flatten(statuses))
			}
		}
		results, skipped, err := run.fleet.PullRooted(cmd.Context(), opts, statuses)
		if err != nil {
			return err
		}
		sortutil.SortRepoStatuses(skipped)
		logOutputWriteFailure(cmd, "pull", writeOperationReport(cmd, run, model.OpPull, results, skipped))
		if mode == engine.PullSmart && run.format == cliio.FormatTable {
			reportSkippedPulls(cmd, skipped)
		}
		return nil
	},
}

func init() {
	addFleetFlags(pullCmd, true)
	addDryRunFlag(pullCmd)
	addAllFlag(pullCmd, "pull every repository, not only those behind")
	pullCmd.Flags().BoolP("force", "f", false, "pull every repository that is behind, ignoring conflict risk")
	pullCmd.Flags().Bool("safe", false, "skip every repository at conflict risk without checking files")
	rootCmd.AddCommand(pullCmd)
}

// pullModeFor maps --force/--safe onto a mode, falling back to the
// configured default.
func pullModeFor(force, safe bool, configured string) (engine.PullMode, error) {
	switch {
	case force && safe:
		return "", errForceAndSafe
	case force:
		return engine.PullForce, nil
	case safe:
		return engine.PullSafe, nil
	default:
		return engine.ParsePullMode(configured)
	}
}

func riskReason(st model.RepoStatus) string {
	if st.Diverged() {
		return fmt.Sprintf("diverged (%d ahead, %d behind)", st.Ahead, st.Behind)
	}
	return "dirty working tree + behind remote"
}

func warnConflictRisk(cmd *cobra.Command, statuses []model.RepoStatus) {
	atRisk := lo.Filter(statuses, func(st model.RepoStatus, _ int) bool {
		return st.ConflictRisk() && st.NeedsPull()
	})
	if len(atRisk) == 0 {
		return
	}
	infof(cmd, "Warning: The following repositories have conflict risk:\n")
	for _, st := range atRisk {
		infof(cmd, "  %s - %s", st.Name, riskReason(st))
	}
	infof(cmd, "\nRemove --safe for smart mode (file-level check), use --force to pull all, or resolve manually.\n")
}

func reportSkippedPulls(cmd *cobra.Command, skipped []model.RepoStatus) {
	if len(skipped) == 0 {
		return
	}
	infof(cmd, "\nSkipped %d repositories with overlapping changes:", len(skipped))
	for _, st := range skipped {
		infof(cmd, "  %s - %s", st.Name, riskReason(st))
	}
}
