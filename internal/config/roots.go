package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EnvRoots names a roots file overriding the default locations.
const EnvRoots = "GITFLEET_ROOTS"

// ErrNoRoots is returned when a roots file yields no usable directory.
var ErrNoRoots = errors.New("no valid roots found")

// RootsFilePath resolves which roots file applies. Order: explicit flag,
// GITFLEET_ROOTS, $XDG_CONFIG_HOME/gitfleet/roots (or ~/.config/gitfleet/roots),
// then ~/.gitfleet-roots. Only the flag is returned without an existence
// check; an empty result means single-root mode.
func RootsFilePath(flag string) string {
	if flag != "" {
		return expandHome(flag)
	}
	for _, candidate := range rootsFileCandidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func rootsFileCandidates() []string {
	var out []string
	if env := os.Getenv(EnvRoots); env != "" {
		out = append(out, expandHome(env))
	}
	home, _ := os.UserHomeDir()
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "gitfleet", "roots"))
	} else if home != "" {
		out = append(out, filepath.Join(home, ".config", "gitfleet", "roots"))
	}
	if home != "" {
		out = append(out, filepath.Join(home, ".gitfleet-roots"))
	}
	return out
}

// LoadRoots reads a roots file: one directory per line, blank lines and
// '#' comments ignored, environment variables and a leading '~' expanded.
// Entries that are not existing directories are dropped. The result is
// absolute, cleaned, de-duplicated and in file order.
func LoadRoots(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var roots []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dir := expandHome(expandEnv(line))
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRoots, path)
	}
	return roots, nil
}

var envRef = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// expandEnv substitutes $VAR and ${VAR}, leaving unknown variables as written.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name := m[1] + m[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ref
	})
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, `~\`) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
