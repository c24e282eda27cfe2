package gitx

import (
	"strconv"
	"strings"
	"time"

	"github.com/skaphos/gitfleet/internal/model"
)

// ParsePorcelainV2 parses the output of `git status --porcelain=v2 --branch`
// into a Probe. Unknown lines are ignored.
func ParsePorcelainV2(output string) model.Probe {
	var p model.Probe
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "# branch.head "):
			p.Branch = strings.TrimPrefix(line, "# branch.head ")
		case strings.HasPrefix(line, "# branch.upstream "):
			p.Upstream = strings.TrimPrefix(line, "# branch.upstream ")
		case strings.HasPrefix(line, "# branch.ab "):
			ahead, behind, ok := parseBranchAB(strings.TrimPrefix(line, "# branch.ab "))
			if ok {
				p.Ahead, p.Behind, p.HasAheadBehind = ahead, behind, true
			}
		case strings.HasPrefix(line, "1 "), strings.HasPrefix(line, "2 "):
			if len(line) < 4 {
				continue
			}
			// XY sits at a fixed offset; '.' means unchanged on that side.
			if line[2] != '.' {
				p.Staged++
			}
			if line[3] != '.' {
				p.Unstaged++
			}
		case strings.HasPrefix(line, "u "):
			p.Staged++
			p.Unstaged++
		case strings.HasPrefix(line, "? "):
			p.Untracked++
		}
	}
	return p
}

// parseBranchAB reads "+N -M".
func parseBranchAB(raw string) (int, int, bool) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, 0, false
	}
	ahead, err := strconv.Atoi(strings.TrimPrefix(fields[0], "+"))
	if err != nil {
		return 0, 0, false
	}
	behind, err := strconv.Atoi(strings.TrimPrefix(fields[1], "-"))
	if err != nil {
		return 0, 0, false
	}
	return abs(ahead), abs(behind), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseRevListCount parses the output of:
//
//	git rev-list --left-right --count @{u}...HEAD
//
// The left column counts upstream-only commits, so it returns (ahead, behind)
// as (right, left).
func ParseRevListCount(output string) (int, int, bool) {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) != 2 {
		return 0, 0, false
	}
	behind, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, false
	}
	ahead, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, false
	}
	return ahead, behind, true
}

// ParseNameStatus parses `git diff --name-status` output into ordered
// (status, file) pairs. Renames keep the destination path.
func ParseNameStatus(output string) []model.FileChange {
	var changes []model.FileChange
	for _, line := range ParseLines(output) {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		changes = append(changes, model.FileChange{
			Status: parts[0],
			File:   parts[len(parts)-1],
		})
	}
	return changes
}

// ParseLines splits output into trimmed, non-empty lines.
func ParseLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ParseShowOrigin parses `git config --show-origin <key>` output of the form
// "file:/path/to/config\tvalue".
func ParseShowOrigin(output string) (model.ConfigValue, bool) {
	line := strings.TrimSpace(output)
	if line == "" {
		return model.ConfigValue{}, false
	}
	origin, value, found := strings.Cut(line, "\t")
	if !found {
		return model.ConfigValue{}, false
	}
	return model.ConfigValue{
		Value: strings.TrimSpace(value),
		File:  strings.TrimPrefix(origin, "file:"),
	}, true
}

// ClassifyConfigSource maps a config file path to the scope that owns it.
// The most specific pattern wins.
func ClassifyConfigSource(file string) model.IdentitySource {
	slashed := strings.ReplaceAll(strings.TrimSpace(file), `\`, "/")
	switch {
	case slashed == "":
		return model.SourceUnknown
	case strings.HasSuffix(slashed, ".git/config"):
		return model.SourceLocal
	case strings.HasSuffix(slashed, "/.gitconfig"), strings.HasSuffix(slashed, "/.config/git/config"):
		return model.SourceGlobal
	case strings.HasSuffix(slashed, "/etc/gitconfig"):
		return model.SourceSystem
	default:
		return model.SourceIncluded
	}
}

// ParseCommitDate parses a strict ISO-8601 committer date (`%cI`).
func ParseCommitDate(output string) *time.Time {
	raw := strings.TrimSpace(output)
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &ts
}
