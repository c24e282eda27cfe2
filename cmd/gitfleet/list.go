package gitfleet

import (
	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/tableutil"
	"github.com/skaphos/gitfleet/internal/termstyle"
)

var listCmd = &cobra.Command{
	Use:     "list [path]",
	Aliases: []string{"ls"},
	Short:   "List every discovered repository",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugf(cmd, "starting list")
		run, err := newFleetRun(cmd, args, fleetRunOptions{includeAll: true})
		if err != nil {
			return err
		}
		defer run.Close()

		discovered, err := run.fleet.Discover(cmd.Context())
		if err != nil {
			return err
		}
		if getBoolFlag(cmd, "paths") {
			for _, repo := range engine.Flatten(discovered) {
				if err := writeLine(cmd, "%s", repo.Path); err != nil {
					logOutputWriteFailure(cmd, "list paths", err)
					return nil
				}
			}
			return nil
		}
		var primaries map[string]model.Remote
		if getBoolFlag(cmd, "remote") {
			remotes, err := run.fleet.Remotes(cmd.Context())
			if err != nil {
				return err
			}
			primaries = primaryRemotes(remotes)
		}
		logOutputWriteFailure(cmd, "list", writeRepoList(cmd, run, discovered, primaries))
		return nil
	},
}

func init() {
	addFleetFlags(listCmd, false)
	listCmd.Flags().BoolP("paths", "p", false, "print only paths, one per line")
	listCmd.Flags().Bool("remote", false, "include the primary remote URL and protocol")
	rootCmd.AddCommand(listCmd)
}

type listEntry struct {
	Path        string        `json:"path" yaml:"path"`
	Name        string        `json:"name" yaml:"name"`
	DisplayName string        `json:"display_name" yaml:"display_name"`
	Remote      *model.Remote `json:"remote,omitempty" yaml:"remote,omitempty"`
}

type listOutput struct {
	Root         string        `json:"root,omitempty" yaml:"root,omitempty"`
	Roots        []rootSection `json:"roots,omitempty" yaml:"roots,omitempty"`
	Count        int           `json:"count" yaml:"count"`
	Repositories []listEntry   `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

func primaryRemotes(rooted []engine.Rooted[model.RepoRemotes]) map[string]model.Remote {
	out := make(map[string]model.Remote)
	for _, r := range engine.Flatten(rooted) {
		if primary, ok := gitx.PrimaryRemote(r.Remotes); ok {
			out[r.Path] = primary
		}
	}
	return out
}

func listEntries(repos []model.Repo, names map[string]string, primaries map[string]model.Remote) []listEntry {
	entries := make([]listEntry, 0, len(repos))
	for _, repo := range repos {
		entry := listEntry{Path: repo.Path, Name: repo.Name, DisplayName: nameFor(names, repo.Path, repo.Name)}
		if primary, ok := primaries[repo.Path]; ok {
			entry.Remote = &primary
		}
		entries = append(entries, entry)
	}
	return entries
}

func writeRepoList(cmd *cobra.Command, run *fleetRun, discovered []engine.Rooted[model.Repo], primaries map[string]model.Remote) error {
	names := repoNames(discovered, func(r model.Repo) string { return r.Path })
	total := len(engine.Flatten(discovered))
	if run.format != cliio.FormatTable {
		out := listOutput{Count: total}
		if run.multiRoot() {
			for _, r := range discovered {
				out.Roots = append(out.Roots, rootSection{
					Root:         r.Root,
					RootName:     run.rootName(r.Root),
					Repositories: listEntries(r.Items, names, primaries),
				})
			}
		} else {
			out.Root = discovered[0].Root
			out.Repositories = listEntries(discovered[0].Items, names, primaries)
		}
		return writeStructured(cmd, run.format, out)
	}

	if run.multiRoot() {
		if err := writeLine(cmd, "Found %d repositories in %d roots\n", total, len(discovered)); err != nil {
			return err
		}
	} else if err := writeLine(cmd, "Found %d repositories in %s\n", total, discovered[0].Root); err != nil {
		return err
	}
	if primaries != nil {
		return writeRemoteList(cmd, run, discovered, names, primaries)
	}
	for _, r := range discovered {
		indent := "  "
		if run.multiRoot() {
			if err := writeLine(cmd, "%s:", color(run.rootName(r.Root), termstyle.Root)); err != nil {
				return err
			}
		}
		for _, repo := range r.Items {
			if err := writeLine(cmd, "%s%s", indent, color(nameFor(names, repo.Path, repo.Name), termstyle.Name)); err != nil {
				return err
			}
		}
		if run.multiRoot() {
			if err := writeLine(cmd, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRemoteList(cmd *cobra.Command, run *fleetRun, discovered []engine.Rooted[model.Repo], names map[string]string, primaries map[string]model.Remote) error {
	multi := run.multiRoot()
	w := tableutil.New(cmd.OutOrStdout(), true)
	headers := []string{"REPOSITORY", "REMOTE", "URL", "PROTOCOL"}
	if multi {
		headers = append([]string{"ROOT"}, headers...)
	}
	if err := tableutil.PrintHeaders(w, getBoolFlag(cmd, "no-headers"), headers...); err != nil {
		return err
	}
	urlMax := urlColumn.forCommand(cmd)
	for _, r := range discovered {
		for _, repo := range r.Items {
			row := []string{color(nameFor(names, repo.Path, repo.Name), termstyle.Name)}
			if primary, ok := primaries[repo.Path]; ok {
				row = append(row,
					color(primary.Name, termstyle.Info),
					truncateCell(primary.FetchURL, urlMax),
					color(string(primary.Protocol), termstyle.ForProtocol(primary.Protocol)))
			} else {
				row = append(row, color("none", termstyle.Muted), "-", "-")
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
