package gitfleet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/tableutil"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var whoCmd = &cobra.Command{
	Use:   "who [path]",
	Short: "Show the commit identity (user.name/user.email) of every repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting who")
		run, err := newFleetRun(cmd, args, fleetRunOptions{includeAll: true})
		if err != nil {
			return err
		}
		defer run.Close()

		global := run.fleet.GlobalIdentity(cmd.Context())
		identities, err := run.fleet.Identities(cmd.Context())
		if err != nil {
			return err
		}
		logOutputWriteFailure(cmd, "who", writeIdentities(cmd, run, global, identities))
		return nil
	},
}

func init() {
	addFleetFlags(whoCmd, false)
	rootCmd.AddCommand(whoCmd)
}

type identitySummary struct {
	Total         int                          `json:"total" yaml:"total"`
	BySource      map[model.IdentitySource]int `json:"by_source" yaml:"by_source"`
	UsingGlobal   int                          `json:"using_global" yaml:"using_global"`
	LocalOverride int                          `json:"local_override" yaml:"local_override"`
}

type identityOutput struct {
	Root           string               `json:"root,omitempty" yaml:"root,omitempty"`
	GlobalIdentity model.GlobalIdentity `json:"global_identity" yaml:"global_identity"`
	Repositories   []model.RepoIdentity `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Roots          []rootSection        `json:"roots,omitempty" yaml:"roots,omitempty"`
	Summary        identitySummary      `json:"summary" yaml:"summary"`
}

func summarizeIdentities(ids []model.RepoIdentity) identitySummary {
	s := identitySummary{Total: len(ids), BySource: make(map[model.IdentitySource]int)}
	for _, id := range ids {
		s.BySource[id.Source]++
		if id.LocalOverride {
			s.LocalOverride++
		} else {
			s.UsingGlobal++
		}
	}
	return s
}

func writeIdentities(cmd *cobra.Command, run *fleetRun, global model.GlobalIdentity, identities []engine.Rooted[model.RepoIdentity]) error {
	flat := engine.Flatten(identities)
	summary := summarizeIdentities(flat)
	if run.format != cliio.FormatTable {
		out := identityOutput{GlobalIdentity: global, Summary: summary}
		if run.multiRoot() {
			for _, r := range identities {
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

	if err := writeLine(cmd, "Global Identity:\n  user.name:  %s\n  user.email: %s\n", orNotSet(global.UserName), orNotSet(global.UserEmail)); err != nil {
		return err
	}
	multi := run.multiRoot()
	names := repoNames(identities, func(id model.RepoIdentity) string { return id.Path })
	w := tableutil.New(cmd.OutOrStdout(), true)
	headers := []string{"REPOSITORY", "USER.NAME", "USER.EMAIL", "SOURCE"}
	if multi {
		headers = append([]string{"ROOT"}, headers...)
	}
	if err := tableutil.PrintHeaders(w, getBoolFlag(cmd, "no-headers"), headers...); err != nil {
		return err
	}
	for _, r := range identities {
		for _, id := range r.Items {
			c := termstyle.ForIdentitySource(id.Source)
			source := string(id.Source)
			if id.LocalOverride {
				source += " [local]"
			}
			row := []string{
				color(nameFor(names, id.Path, id.Name), termstyle.Name),
				color(id.UserName, c),
				color(id.UserEmail, c),
				color(source, c),
			}
			if multi {
				row = append([]string{color(run.rootName(r.Root), termstyle.Root)}, row...)
			}
			if err := tableutil.PrintRow(w, row...); err != nil {
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writeLine(cmd, "\n%s", identitySummaryLine(summary))
}

func identitySummaryLine(s identitySummary) string {
	parts := []string{fmt.Sprintf("Total: %d", s.Total)}
	sources := make([]string, 0, len(s.BySource))
	for source := range s.BySource {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)
	for _, source := range sources {
		src := model.IdentitySource(source)
		label := source
		if label != "" {
			label = strings.ToUpper(label[:1]) + label[1:]
		}
		parts = append(parts, color(label+":", termstyle.ForIdentitySource(src))+fmt.Sprintf(" %d", s.BySource[src]))
	}
	return strings.Join(parts, " | ")
}

func orNotSet(value string) string {
	if value == "" {
		return color("(not set)", termstyle.Muted)
	}
	return value
}
