package gitfleet

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/displayname"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/strutil"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

const (
	syncErrorWidth      = 20
	operationErrorWidth = 50
)

// now is overridable in tests.
var now = time.Now

// logOutputWriteFailure records non-fatal output write/flush failures.
// CLI consumers frequently pipe to tools that close early (for example `head`),
// so we log and continue instead of treating these as command failures.
func logOutputWriteFailure(cmd *cobra.Command, context string, err error) {
	if err == nil {
		return
	}
	debugf(cmd, "ignored output write failure (%s): %v", context, err)
}

func writeStructured(cmd *cobra.Command, format cliio.Format, v any) error {
	return cliio.WriteStructured(cmd.OutOrStdout(), format, v)
}

// rootSection is one root's block of multi-root structured output. Exactly
// one of the item fields is set.
type rootSection struct {
	Root         string `json:"root" yaml:"root"`
	RootName     string `json:"root_name" yaml:"root_name"`
	Repositories any    `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Results      any    `json:"results,omitempty" yaml:"results,omitempty"`
}

// repoNames maps repository paths to unique display names across every root.
func repoNames[T any](rooted []engine.Rooted[T], path func(T) string) map[string]string {
	var paths []string
	for _, r := range rooted {
		for _, item := range r.Items {
			paths = append(paths, path(item))
		}
	}
	return displayname.Unique(paths)
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func nameFor(names map[string]string, path, fallback string) string {
	if name, ok := names[path]; ok {
		return name
	}
	return fallback
}

func color(value, c string) string {
	return termstyle.Colorize(colorOutputEnabled, value, c)
}

func syncCell(st model.RepoStatus) string {
	c := termstyle.ForSyncStatus(st.SyncStatus)
	switch st.SyncStatus {
	case model.StatusClean:
		return color("✓", c)
	case model.StatusAhead:
		return color(fmt.Sprintf("⬆ %d", st.Ahead), c)
	case model.StatusBehind:
		return color(fmt.Sprintf("⬇ %d", st.Behind), c)
	case model.StatusDiverged:
		return color(fmt.Sprintf("⬆%d ⬇%d", st.Ahead, st.Behind), c)
	case model.StatusNoUpstream:
		return color("no upstream", c)
	case model.StatusDetached:
		return color("detached", c)
	case model.StatusNoRemote:
		return color("no remote", c)
	case model.StatusError:
		return color("✗ "+strutil.Truncate(strutil.FirstLine(st.Error), syncErrorWidth), c)
	default:
		return "?"
	}
}

func workingTreeCell(st model.RepoStatus) string {
	if !st.Dirty() {
		return color("clean", termstyle.Healthy)
	}
	var parts []string
	if st.Staged > 0 {
		parts = append(parts, color(fmt.Sprintf("+%d", st.Staged), termstyle.Green))
	}
	if st.Unstaged > 0 {
		parts = append(parts, color(fmt.Sprintf("~%d", st.Unstaged), termstyle.Warn))
	}
	if st.Untracked > 0 {
		parts = append(parts, color(fmt.Sprintf("?%d", st.Untracked), termstyle.Red))
	}
	return strings.Join(parts, " ")
}

func lastCommitCell(st model.RepoStatus) string {
	rel := strutil.RelativeTime(st.LastCommit, now())
	if st.LastCommit == nil {
		return color(rel, termstyle.Muted)
	}
	switch age := now().Sub(*st.LastCommit); {
	case age < 48*time.Hour:
		return color(rel, termstyle.Healthy)
	case age < 30*24*time.Hour:
		return color(rel, termstyle.Warn)
	default:
		return color(rel, termstyle.Error)
	}
}

func repoCell(name string, st model.RepoStatus) string {
	if st.ConflictRisk() {
		return color("⚠ "+name, termstyle.Bold+termstyle.Red)
	}
	return color(name, termstyle.Name)
}

func summaryLine(s model.FleetSummary) string {
	parts := []string{fmt.Sprintf("Total: %d", s.Total)}
	add := func(n int, label, c string) {
		if n > 0 {
			parts = append(parts, color(label+":", c)+fmt.Sprintf(" %d", n))
		}
	}
	add(s.Clean, "✓ Clean", termstyle.Healthy)
	add(s.NeedPush, "⬆ Need push", termstyle.Warn)
	add(s.NeedPull, "⬇ Need pull", termstyle.Info)
	add(s.Diverged, "⬆⬇ Diverged", termstyle.Error)
	add(s.Dirty, "✎ Dirty", termstyle.Warn)
	add(s.ConflictRisk, "⚠ Conflict risk", termstyle.Error)
	add(s.Errors, "✗ Errors", termstyle.Error)
	return strings.Join(parts, " | ")
}

func syncSummaryLine(s model.SyncSummary) string {
	var parts []string
	add := func(ok, failed int, label, c string) {
		if ok == 0 && failed == 0 {
			return
		}
		part := color(label+":", c) + fmt.Sprintf(" %d", ok)
		if failed > 0 {
			part += " " + color(fmt.Sprintf("(%d failed)", failed), termstyle.Error)
		}
		parts = append(parts, part)
	}
	add(s.Fetched, s.FetchFailed, "Fetched", termstyle.Cyan)
	add(s.Pulled, s.PullFailed, "Pulled", termstyle.Info)
	add(s.Pushed, s.PushFailed, "Pushed", termstyle.Warn)
	if len(parts) == 0 {
		return ""
	}
	return "Synced: " + strings.Join(parts, " | ")
}

// truncateCell limits a table cell to max display cells; max <= 0 keeps it whole.
func truncateCell(value string, max int) string {
	return strutil.Truncate(value, max)
}

func writeLine(cmd *cobra.Command, format string, args ...any) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), termstyle.StripEscapes(fmt.Sprintf(format, args...)))
	return err
}

func formatCount(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
