package project

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/prox/core"
)

// SuggestMinLen is the minimum input length for tag suggestions.
const SuggestMinLen = 2

// PersistedTags filters out tags that do not exist remotely yet.
func PersistedTags(tags []Tag) []Tag {
	persisted := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if tag.IsPersisted() {
			persisted = append(persisted, tag)
		}
	}
	return persisted
}

// Recommend asks for tags related to the persisted ones among `current`.
// The request is issued even when no persisted tag remains.
func Recommend(ctx context.Context, repo TagRepository, current []Tag) ([]Tag, error) {
	recommended, err := repo.RecommendTags(ctx, PersistedTags(current))
	if err != nil {
		return nil, err
	}
	if recommended == nil {
		recommended = []Tag{}
	}
	return recommended, nil
}

// Materialize resolves every tag to a persisted one: an existing tag with the same name is reused,
// otherwise the tag is created. Lookups run concurrently; the result keeps the order of `tags`.
func Materialize(ctx context.Context, repo TagRepository, tags []Tag) ([]Tag, error) {
	persisted := make([]Tag, len(tags))
	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		i, tag := i, tag
		g.Go(func() error {
			found, err := repo.FindTagsByName(gctx, tag.TagName, true)
			if err != nil {
				return newFailure(TagMaterializationFailure, err, "finding tag "+tag.TagName)
			}
			if len(found) > 0 {
				persisted[i] = found[0]
				return nil
			}
			created, err := repo.CreateTag(gctx, NewTag(tag.TagName))
			if err != nil {
				return newFailure(TagMaterializationFailure, err, "creating tag "+tag.TagName)
			}
			persisted[i] = created
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return persisted, nil
}

// Suggest returns up to `limit` tags whose name contains `input`, most similar first.
// Inputs shorter than SuggestMinLen yield nothing.
func Suggest(ctx context.Context, repo TagRepository, input string, limit int) ([]Tag, error) {
	input = core.CleanString(input)
	if len([]rune(input)) < SuggestMinLen {
		return []Tag{}, nil
	}

	found, err := repo.FindTagsByName(ctx, input, false)
	if err != nil {
		return nil, err
	}

	linput := strings.ToLower(input)
	ratios := make(map[string]float64, len(found))
	for _, tag := range found {
		ratios[tag.TagName] = similarity(linput, strings.ToLower(tag.TagName))
	}
	sort.SliceStable(found, func(i, j int) bool {
		ri, rj := ratios[found[i].TagName], ratios[found[j].TagName]
		if ri != rj {
			return ri > rj
		}
		return found[i].TagName < found[j].TagName
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []Tag{}
	}
	return found, nil
}

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
