package gitfleet

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
)

const (
	formatUsage     = "output format: table, json, or yaml"
	rootsUsage      = "file containing repository root paths (one per line)"
	noRemoteUsage   = "include repositories with no configured remotes"
	detachedUsage   = "include repositories with a detached HEAD"
	concurrentUsage = "max concurrent git operations (default from config)"
	timeoutUsage    = "timeout per git invocation, 0 disables (default from config)"
	excludeUsage    = "comma-separated glob patterns to skip, added to config excludes"
	noHeadersUsage  = "when using table format, do not print headers"
)

func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", "table", formatUsage)
	cmd.Flags().BoolP("json", "j", false, "output as JSON (same as -o json)")
	cmd.Flags().Bool("no-headers", false, noHeadersUsage)
}

// addFleetFlags registers the flags shared by every command that walks the
// fleet. Status-like commands also get the discovery filters.
func addFleetFlags(cmd *cobra.Command, filters bool) {
	addFormatFlags(cmd)
	cmd.Flags().BoolP("sequential", "s", false, "run operations one repository at a time")
	cmd.Flags().StringP("roots", "r", "", rootsUsage)
	cmd.Flags().Int("concurrency", 0, concurrentUsage)
	cmd.Flags().Duration("timeout", 0, timeoutUsage)
	cmd.Flags().String("exclude", "", excludeUsage)
	if filters {
		cmd.Flags().Bool("include-no-remote", false, noRemoteUsage)
		cmd.Flags().Bool("include-detached", false, detachedUsage)
	}
}

func addDryRunFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("dry-run", "n", false, "show what would happen without doing it")
}

func addAllFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().BoolP("all", "a", false, usage)
}

func outputFormat(cmd *cobra.Command) (cliio.Format, error) {
	if getBoolFlag(cmd, "json") {
		return cliio.FormatJSON, nil
	}
	raw, _ := cmd.Flags().GetString("format")
	return cliio.ParseFormat(raw)
}

func getBoolFlag(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Lookup(name) == nil {
		return false
	}
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func getStringFlag(cmd *cobra.Command, name string) string {
	if cmd.Flags().Lookup(name) == nil {
		return ""
	}
	value, _ := cmd.Flags().GetString(name)
	return value
}

func getIntFlag(cmd *cobra.Command, name string) int {
	if cmd.Flags().Lookup(name) == nil {
		return 0
	}
	value, _ := cmd.Flags().GetInt(name)
	return value
}

// durationFlag returns the flag value and whether the user set it.
func durationFlag(cmd *cobra.Command, name string) (time.Duration, bool, error) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return 0, false, nil
	}
	value, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return 0, false, err
	}
	if value < 0 {
		return 0, false, fmt.Errorf("--%s must not be negative", name)
	}
	return value, true, nil
}
