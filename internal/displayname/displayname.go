// Package displayname derives short, unique display names for a set of
// filesystem paths.
package displayname

import (
	"path/filepath"
	"sort"
	"strings"
)

// Unique maps every path to its shortest trailing-segment suffix that no
// other path in the set shares. Paths whose base names are already unique
// map to the base name; colliding paths gain parent segments one at a time
// until they differ. Duplicate inputs are collapsed.
//
//	/work/a/api, /work/b/api, /work/web → a/api, b/api, web
func Unique(paths []string) map[string]string {
	groups := make(map[string][]string)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		segs := segments(p)
		base := segs[len(segs)-1]
		groups[base] = append(groups[base], p)
	}

	names := make(map[string]string, len(seen))
	for base, group := range groups {
		if len(group) == 1 {
			names[group[0]] = base
			continue
		}
		sort.Strings(group)
		split := make([][]string, len(group))
		for i, p := range group {
			split[i] = segments(p)
		}
		for i, p := range group {
			names[p] = shortestDistinct(i, split)
		}
	}
	return names
}

// shortestDistinct returns the smallest suffix of all[i] that differs from
// the same-depth suffix of every other entry.
func shortestDistinct(i int, all [][]string) string {
	own := all[i]
	for depth := 1; depth <= len(own); depth++ {
		candidate := suffix(own, depth)
		clash := false
		for j, other := range all {
			if j == i {
				continue
			}
			if suffix(other, depth) == candidate {
				clash = true
				break
			}
		}
		if !clash {
			return candidate
		}
	}
	return suffix(own, len(own))
}

func segments(p string) []string {
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == "/" {
		return []string{"/"}
	}
	return strings.Split(clean, "/")
}

func suffix(segs []string, depth int) string {
	if depth > len(segs) {
		depth = len(segs)
	}
	return strings.Join(segs[len(segs)-depth:], "/")
}
