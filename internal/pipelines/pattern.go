// Copyright 2025 James Ross
// Pattern pipeline: the standalone TRACK_PATTERN stage (§4.11), used
// when a pattern is tracked outside the per-line ingredient pipeline
// (e.g. a backfill or reprocessing job operating directly on
// PatternPayload).
package pipelines

import (
	"context"
	"fmt"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/pattern"
)

type trackPatternStandaloneAction struct{}

func (trackPatternStandaloneAction) Name() actions.Name { return actions.TrackPattern }

func (trackPatternStandaloneAction) ValidateInput(payload any) error {
	if _, err := decodePatternPayload(payload); err != nil {
		return fmt.Errorf("track_pattern: %w", err)
	}
	return nil
}

func (trackPatternStandaloneAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodePatternPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("track_pattern: %w", err)
	}
	d := extraOf(deps)
	if d == nil || d.PatternStore == nil {
		return p, nil
	}

	result := pattern.TrackPattern(ctx, d.PatternStore, pattern.TrackRequest{
		JobID:        p.JobID,
		PatternRules: p.PatternRules,
		ExampleLine:  p.ExampleLine,
		Metadata:     map[string]any{"ingredientLineId": p.Metadata.IngredientLineID},
	}, deps.Logger)

	if id, ok := result.Metadata["patternId"].(string); ok {
		p.Metadata.PatternID = id
	}
	if linked, ok := result.Metadata["linkedToIngredientLine"].(bool); ok {
		p.Metadata.LinkedToLine = linked
	}
	if errMsg, ok := result.Metadata["error"].(string); ok {
		p.Metadata.Error = errMsg
	}

	return p, nil
}
