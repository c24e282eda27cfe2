package gitfleet

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitfleet/internal/cliio"
	"github.com/skaphos/gitfleet/internal/config"
	"github.com/skaphos/gitfleet/internal/displayname"
	"github.com/skaphos/gitfleet/internal/engine"
	"github.com/skaphos/gitfleet/internal/gitx"
	"github.com/skaphos/gitfleet/internal/logging"
	"github.com/skaphos/gitfleet/internal/strutil"
	"github.com/skaphos/gitfleet/internal/vcs"
)

// fleetRun carries everything a fleet command needs for one invocation.
type fleetRun struct {
	cfg       *config.Config
	cfgPath   string
	logger    *slog.Logger
	closer    io.Closer
	fleet     *engine.Fleet
	format    cliio.Format
	rootNames map[string]string
}

type fleetRunOptions struct {
	// includeAll keeps repositories without remotes and with detached HEADs
	// regardless of flags and config.
	includeAll bool
}

// newFleetRun resolves config, logging and roots, then builds the fleet.
// The caller must Close the result.
func newFleetRun(cmd *cobra.Command, args []string, opts fleetRunOptions) (*fleetRun, error) {
	format, err := outputFormat(cmd)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := config.Resolve(flagConfig)
	if err != nil {
		return nil, err
	}
	logFile := flagLogFile
	if logFile == "" {
		logFile = cfg.Log.File
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:   logging.LevelFor(flagVerbose, flagQuiet, cfg.Log.Level),
		File:    logFile,
		Stderr:  cmd.ErrOrStderr(),
		NoColor: flagNoColor,
	})
	if err != nil {
		return nil, err
	}
	run := &fleetRun{cfg: cfg, cfgPath: cfgPath, logger: logger, closer: closer, format: format}
	if err := run.buildFleet(cmd, args, opts); err != nil {
		run.Close()
		return nil, err
	}
	setColorOutputMode(cmd, format)
	return run, nil
}

func (r *fleetRun) buildFleet(cmd *cobra.Command, args []string, opts fleetRunOptions) error {
	roots, err := resolveRoots(cmd, args)
	if err != nil {
		return err
	}
	r.logger.Debug("resolved roots", "roots", roots, "config", r.cfgPath)

	concurrency := getIntFlag(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = r.cfg.Defaults.Concurrency
	}
	timeout, set, err := durationFlag(cmd, "timeout")
	if err != nil {
		return err
	}
	if !set {
		timeout = r.cfg.Defaults.Timeout()
	}
	exclude := append(append([]string(nil), r.cfg.Exclude...), strutil.SplitCSV(getStringFlag(cmd, "exclude"))...)

	base := engine.Options{
		Exclude:         exclude,
		Concurrency:     concurrency,
		Sequential:      getBoolFlag(cmd, "sequential"),
		IncludeNoRemote: opts.includeAll || r.cfg.Defaults.IncludeNoRemote || getBoolFlag(cmd, "include-no-remote"),
		IncludeDetached: opts.includeAll || r.cfg.Defaults.IncludeDetached || getBoolFlag(cmd, "include-detached"),
		Logger:          r.logger,
	}
	adapter := vcs.NewGitAdapter(&gitx.GitRunner{Timeout: timeout}, r.logger)
	fleet, err := engine.NewFleet(roots, base, adapter)
	if err != nil {
		return err
	}
	r.fleet = fleet
	r.rootNames = displayname.Unique(roots)
	return nil
}

// Close releases the log file, if any.
func (r *fleetRun) Close() {
	if r.closer != nil {
		_ = r.closer.Close()
	}
}

func (r *fleetRun) multiRoot() bool { return r.fleet.MultiRoot() }

func (r *fleetRun) rootName(root string) string {
	if name, ok := r.rootNames[root]; ok {
		return name
	}
	return filepath.Base(root)
}

// resolveRoots picks the roots for this run. A roots file, named by --roots
// or found at a default location, puts the fleet in multi-root mode and takes
// precedence over the path argument. Without one, the path argument or the
// working directory is the single root.
func resolveRoots(cmd *cobra.Command, args []string) ([]string, error) {
	if path := config.RootsFilePath(getStringFlag(cmd, "roots")); path != "" {
		if len(args) > 0 {
			debugf(cmd, "ignoring path %s: using roots file %s", args[0], path)
		}
		roots, err := config.LoadRoots(path)
		if err != nil {
			return nil, err
		}
		debugf(cmd, "using roots file %s (%d roots)", path, len(roots))
		return roots, nil
	}
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	return []string{abs}, nil
}
