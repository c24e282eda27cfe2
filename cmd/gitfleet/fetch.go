package gitfleet

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [path]",
	Short: "Fetch every repository from all of its remotes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting fetch")
		run, err := newFleetRun(cmd, args, fleetRunOptions{})
		if err != nil {
			return err
		}
		defer run.Close()

		results, err := run.fleet.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		logOutputWriteFailure(cmd, "fetch", writeOperationReport(cmd, run, model.OpFetch, results, nil))
		return nil
	},
}

func init() {
	addFleetFlags(fetchCmd, true)
	rootCmd.AddCommand(fetchCmd)
}
