// Package parallel runs one operation per repository on a short-lived,
// bounded set of goroutines and returns results in path order.
package parallel

import (
	"context"

	"github.com/skaphos/gitfleet/internal/model"
	"github.com/skaphos/gitfleet/internal/sortutil"
)

// DefaultConcurrency is the worker cap used when Options.Concurrency is unset.
const DefaultConcurrency = 8

const maxWorkerChannelBuffer = 100

// Options configures a fan-out call.
type Options struct {
	// Concurrency caps in-flight operations. Values <= 0 use DefaultConcurrency.
	Concurrency int
	// Sequential runs operations one at a time in path order.
	Sequential bool
	// OnPanic is told about a callback that panicked.
	OnPanic func(repo model.Repo, recovered any)
}

func (o Options) workers() int {
	if o.Sequential {
		return 1
	}
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

type indexed[T any] struct {
	idx   int
	value T
}

// Map calls fn once for every repo and returns the results sorted by repo
// path, independent of completion order. fn owns its own failure handling:
// a result value is produced for every repo and no call cancels another.
// A panicking call yields the zero value of T for its repo.
func Map[T any](ctx context.Context, repos []model.Repo, opts Options, fn func(context.Context, model.Repo) T) []T {
	return MapOr(ctx, repos, opts, fn, nil)
}

// MapOr is Map with a fallback that builds the result of a repo whose call
// panicked. A nil fallback yields the zero value.
func MapOr[T any](ctx context.Context, repos []model.Repo, opts Options, fn func(context.Context, model.Repo) T, fallback func(model.Repo) T) []T {
	fn = guarded(fn, fallback, opts.OnPanic)
	ordered := byPath(repos)
	results := make([]T, len(ordered))
	if len(ordered) == 0 {
		return results
	}
	workers := opts.workers()
	if len(ordered) == 1 || workers == 1 {
		for i, repo := range ordered {
			results[i] = fn(ctx, repo)
		}
		return results
	}

	sem := make(chan struct{}, workers)
	out := make(chan indexed[T], workerChannelBufferSize(len(ordered)))
	for i, repo := range ordered {
		sem <- struct{}{}
		go func(i int, repo model.Repo) {
			value := fn(ctx, repo)
			// Free the slot before the send: with more repos than buffer
			// space, a blocked sender must not hold a worker slot.
			<-sem
			out <- indexed[T]{idx: i, value: value}
		}(i, repo)
	}
	for range ordered {
		res := <-out
		results[res.idx] = res.value
	}
	return results
}

// Filter returns the repos for which keep reports true, in path order.
func Filter(ctx context.Context, repos []model.Repo, opts Options, keep func(context.Context, model.Repo) bool) []model.Repo {
	type verdict struct {
		repo model.Repo
		keep bool
	}
	verdicts := Map(ctx, repos, opts, func(ctx context.Context, repo model.Repo) verdict {
		return verdict{repo: repo, keep: keep(ctx, repo)}
	})
	kept := make([]model.Repo, 0, len(verdicts))
	for _, v := range verdicts {
		if v.keep {
			kept = append(kept, v.repo)
		}
	}
	return kept
}

func guarded[T any](fn func(context.Context, model.Repo) T, fallback func(model.Repo) T, onPanic func(model.Repo, any)) func(context.Context, model.Repo) T {
	return func(ctx context.Context, repo model.Repo) (value T) {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				value = zero
				if fallback != nil {
					value = fallback(repo)
				}
				if onPanic != nil {
					onPanic(repo, r)
				}
			}
		}()
		return fn(ctx, repo)
	}
}

func byPath(repos []model.Repo) []model.Repo {
	ordered := append([]model.Repo(nil), repos...)
	sortutil.SortRepos(ordered)
	return ordered
}

func workerChannelBufferSize(entryCount int) int {
	if entryCount <= 0 {
		return 1
	}
	if entryCount > maxWorkerChannelBuffer {
		return maxWorkerChannelBuffer
	}
	return entryCount
}
