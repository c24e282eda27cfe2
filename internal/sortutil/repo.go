package sortutil

import (
	"sort"

	"github.com/skaphos/gitfleet/internal/model"
)

// LessPathKey orders by path first, then by a secondary key for rows that
// share a path (for example, several operations on one repository).
func LessPathKey(pathI, keyI, pathJ, keyJ string) bool {
	if pathI == pathJ {
		return keyI < keyJ
	}
	return pathI < pathJ
}

// ByPath stably orders items by the path returned for each.
func ByPath[T any](items []T, path func(T) string) {
	sort.SliceStable(items, func(i, j int) bool { return path(items[i]) < path(items[j]) })
}

// SortRepos orders repository handles by Path.
func SortRepos(repos []model.Repo) {
	ByPath(repos, func(r model.Repo) string { return r.Path })
}

// SortRepoStatuses orders status rows by Path.
func SortRepoStatuses(statuses []model.RepoStatus) {
	ByPath(statuses, func(s model.RepoStatus) string { return s.Path })
}

// SortResults orders operation results by Path, then Operation.
func SortResults(results []model.OperationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return LessPathKey(results[i].Path, string(results[i].Operation), results[j].Path, string(results[j].Operation))
	})
}
