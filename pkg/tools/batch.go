package tools

import (
	"context"
	"path"

	"github.com/aretw0/tendril/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Executor runs a list of calls against a registry.
//
// By default calls run one after another. With Parallel set, calls are
// partitioned so that any two calls sharing a path land in the same
// partition; partitions run concurrently, calls inside a partition keep
// their order, and Run returns after every partition has finished.
type Executor struct {
	Registry *Registry
	Env      Env
	Parallel bool
	// Limit bounds concurrent partitions; zero means unbounded.
	Limit int
}

// Run executes calls and returns results in call order.
func (e *Executor) Run(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	if !e.Parallel || len(calls) < 2 {
		for i, c := range calls {
			results[i] = e.Registry.Execute(ctx, e.Env, c)
		}
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.Limit > 0 {
		g.SetLimit(e.Limit)
	}
	for _, part := range Partition(calls) {
		g.Go(func() error {
			for _, i := range part {
				results[i] = e.Registry.Execute(gctx, e.Env, calls[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Partition groups call indexes by shared target paths. A call without
// paths gets a partition of its own. Partitions are ordered by their first index.
func Partition(calls []domain.ToolCall) [][]int {
	parent := make([]int, len(calls))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	owner := map[string]int{}
	under := map[string][]int{}
	for i, c := range calls {
		for _, p := range TargetPaths(c) {
			p = path.Clean(p)
			if j, ok := owner[p]; ok {
				union(i, j)
			} else {
				owner[p] = i
			}
			for _, j := range under[p] {
				union(i, j)
			}
			for _, dir := range ancestors(p) {
				if j, ok := owner[dir]; ok {
					union(i, j)
				}
				under[dir] = append(under[dir], i)
			}
		}
	}

	index := map[int]int{}
	var parts [][]int
	for i := range calls {
		r := find(i)
		n, ok := index[r]
		if !ok {
			n = len(parts)
			index[r] = n
			parts = append(parts, nil)
		}
		parts[n] = append(parts[n], i)
	}
	return parts
}

// ancestors lists the parent directories of p, so that an operation on a
// directory conflicts with operations on anything beneath it.
func ancestors(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append(out, dir)
	}
	return out
}
