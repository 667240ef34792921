package project

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Aggregate groups `modules` by the StudyCourse each one resolves to.
// Modules are deduplicated by ID (first occurrence wins) and resolved concurrently.
// Groups follow the order in which their StudyCourse is first seen in `modules`.
// Any resolution error fails the whole aggregation with a RelationFetchFailure.
func Aggregate(ctx context.Context, resolver StudyCourseResolver, modules []Module) ([]ModuleGroup, error) {
	unique := dedupModules(modules)
	if len(unique) == 0 {
		return []ModuleGroup{}, nil
	}

	courses := make([]StudyCourse, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	for i, mod := range unique {
		i, mod := i, mod
		g.Go(func() error {
			course, err := resolver.StudyCourseOf(gctx, mod)
			if err != nil {
				return newFailure(RelationFetchFailure, err, "resolving study course of module "+mod.ID)
			}
			courses[i] = course
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	groups := make([]ModuleGroup, 0)
	index := make(map[string]int) // StudyCourse.ID -> position in groups
	for i, mod := range unique {
		course := courses[i]
		pos, ok := index[course.ID]
		if !ok {
			pos = len(groups)
			index[course.ID] = pos
			groups = append(groups, ModuleGroup{StudyCourse: course, SelectedModules: make([]Module, 0, 1)})
		}
		groups[pos].SelectedModules = append(groups[pos].SelectedModules, mod)
	}
	return groups, nil
}

func dedupModules(modules []Module) []Module {
	seen := make(map[string]struct{}, len(modules))
	unique := make([]Module, 0, len(modules))
	for _, mod := range modules {
		if _, ok := seen[mod.ID]; ok {
			continue
		}
		seen[mod.ID] = struct{}{}
		unique = append(unique, mod)
	}
	return unique
}
