// Copyright 2025 James Ross
// Package pipelines implements C11: the concrete action sequences for
// each stage, registered into an actions.Factory in the exact order
// §4.11 specifies (registration order is execution order).
package pipelines

import (
	"context"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/cache"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/imagestore"
	"github.com/awehrman/peas-sub008/internal/pattern"
	"github.com/awehrman/peas-sub008/internal/repository"
)

// HTMLCleaner is the narrow "clean HTML -> text" contract §1 treats as
// an external collaborator.
type HTMLCleaner func(rawHTML string) (cleanedText, title string, err error)

// IngredientLineParser is the narrow "parse line -> segments" contract
// §1 treats as an external collaborator.
type IngredientLineParser func(rawLine string) (segments []repository.IngredientSegment, ruleIDs []string, err error)

// InstructionFormatter formats a raw instruction line for storage.
type InstructionFormatter func(rawLine string) (string, error)

// CategoryDeterminer and TagDeterminer are the domain services §6.3
// leaves external; Categorization pipeline calls through them.
type CategoryDeterminer func(ctx context.Context, note *repository.Note) (string, error)
type TagDeterminer func(ctx context.Context, note *repository.Note) (tags []string, reason string, err error)

// ImageFetcher downloads source image bytes for the supplemented Image
// pipeline (SPEC_FULL.md).
type ImageFetcher func(ctx context.Context, sourceURL string) ([]byte, error)

// Deps bundles every stage-specific collaborator referenced by the
// action implementations in this package. A *Deps value is threaded
// through actions.Deps.Extra.
type Deps struct {
	Repo              repository.Repository
	PatternStore      pattern.Store
	Completion        *completion.Tracker
	IngredientTracker *completion.IngredientTracker
	Cache             *cache.Cache
	CacheKeys         cache.KeyGenerator
	Broker            broker.Broker
	ImageStore        imagestore.Store

	CleanHTML           HTMLCleaner
	ParseIngredientLine IngredientLineParser
	FormatInstruction   InstructionFormatter
	DetermineCategory   CategoryDeterminer
	DetermineTags       TagDeterminer
	FetchImage          ImageFetcher

	ScheduleCategorization func(ctx context.Context, noteID, importID, originalJobID string) error
}

func extraOf(deps actions.Deps) *Deps {
	d, _ := deps.Extra.(*Deps)
	return d
}
