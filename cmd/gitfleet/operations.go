package gitfleet

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/strutil"
	"github.com/skaphos/gitfleet/internal/tableutil"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

type operationOutput struct {
	Results []model.OperationResult `json:"results,omitempty" yaml:"results,omitempty"`
	Roots   []rootSection           `json:"roots,omitempty" yaml:"roots,omitempty"`
	// Skipped lists pulls held back for conflict risk.
	Skipped []model.RepoStatus  `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Summary model.ResultSummary `json:"summary" yaml:"summary"`
}

func newOperationOutput(run *fleetRun, results []engine.Rooted[model.OperationResult]) operationOutput {
	flat := engine.Flatten(results)
	out := operationOutput{Summary: model.SummarizeResults(flat)}
	if !run.multiRoot() {
		out.Results = nonNilSlice(flat)
		return out
	}
	for _, r := range results {
		out.Roots = append(out.Roots, rootSection{
			Root:     r.Root,
			RootName: run.rootName(r.Root),
			Results:  nonNilSlice(r.Items),
		})
	}
	return out
}

// writeOperationReport renders one bulk operation's results.
func writeOperationReport(cmd *cobra.Command, run *fleetRun, op model.Operation, results []engine.Rooted[model.OperationResult], skipped []model.RepoStatus) error {
	if run.format != cliio.FormatTable {
		out := newOperationOutput(run, results)
		out.Skipped = skipped
		return writeStructured(cmd, run.format, out)
	}
	flat := engine.Flatten(results)
	if len(flat) == 0 {
		return writeLine(cmd, "No repositories to %s", op)
	}
	if err := writeLine(cmd, "%s Results\n", operationTitle(op)); err != nil {
		return err
	}
	if err := writeOperationTable(cmd, run, results); err != nil {
		return err
	}
	summary := model.SummarizeResults(flat)
	return writeLine(cmd, "\nSuccess: %d/%d", summary.Success, summary.Total)
}

func operationTitle(op model.Operation) string {
	s := string(op)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeOperationTable(cmd *cobra.Command, run *fleetRun, results []engine.Rooted[model.OperationResult]) error {
	multi := run.multiRoot()
	names := repoNames(results, func(r model.OperationResult) string { return r.Path })
	msgMax := messageColumn.forCommand(cmd)
	w := tableutil.New(cmd.OutOrStdout(), true)
	headers := []string{"REPOSITORY", "STATUS", "MESSAGE"}
	if multi {
		headers = append([]string{"ROOT"}, headers...)
	}
	if err := tableutil.PrintHeaders(w, getBoolFlag(cmd, "no-headers"), headers...); err != nil {
		return err
	}
	for _, r := range results {
		for _, res := range r.Items {
			row := []string{
				color(nameFor(names, res.Path, res.Name), termstyle.Name),
				resultStatusCell(res),
				resultMessageCell(res, msgMax),
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

func resultStatusCell(res model.OperationResult) string {
	if res.Success {
		return color("✓", termstyle.Healthy)
	}
	return color("✗", termstyle.Error)
}

func resultMessageCell(res model.OperationResult, max int) string {
	if res.Success {
		msg := strutil.FirstLine(res.Message)
		if msg == "" {
			return "OK"
		}
		return strutil.Truncate(msg, max)
	}
	msg := strutil.FirstLine(res.Error)
	if msg == "" {
		return color("Failed", termstyle.Error)
	}
	return color(strutil.Truncate(msg, max), termstyle.Error)
}

// stageLine formats a sync progress count such as "Pulled 3/4 repositories".
func stageLine(verb string, results []model.OperationResult) string {
	summary := model.SummarizeResults(results)
	return fmt.Sprintf("  %s %d/%d repositories", verb, summary.Success, summary.Total)
}
