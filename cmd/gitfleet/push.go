package gitfleet

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
)

var pushCmd = &cobra.Command{
	Use:   "push [path]",
	Short: "Push repositories that are ahead of their upstream",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting push")
		run, err := newFleetRun(cmd, args, fleetRunOptions{})
		if err != nil {
			return err
		}
		defer run.Close()

		results, err := run.fleet.Push(cmd.Context(), engine.PushOptions{
			All:    getBoolFlag(cmd, "all"),
			DryRun: getBoolFlag(cmd, "dry-run"),
		}, nil)
		if err != nil {
			return err
		}
		logOutputWriteFailure(cmd, "push", writeOperationReport(cmd, run, model.OpPush, results, nil))
		return nil
	},
}

func init() {
	addFleetFlags(pushCmd, true)
	addDryRunFlag(pushCmd)
	addAllFlag(pushCmd, "push every repository, not only those ahead")
	rootCmd.AddCommand(pushCmd)
}
