// Copyright 2025 James Ross
package pipelines

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/repository"
)

func TestPatternPipelineTracksAndLinks(t *testing.T) {
	repo := repository.NewInMemory()
	d := &Deps{PatternStore: repo}

	pipeline, err := BuildPatternPipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.PatternPayload{
		JobID:        "job-1",
		PatternRules: []string{"qty", "unit", "name"},
		ExampleLine:  "2 cups flour",
		Metadata:     queue.PatternMetadata{IngredientLineID: "line-1"},
	})

	result := runPipeline(t, pipeline, json.RawMessage(rawPayload), deps)
	pp := result.(*queue.PatternPayload)

	require.NotEmpty(t, pp.Metadata.PatternID, "expected track_pattern to populate patternId")
	require.Empty(t, pp.Metadata.Error, "expected no tracking error")
}

func TestPatternPipelineNoRulesIsNoop(t *testing.T) {
	repo := repository.NewInMemory()
	d := &Deps{PatternStore: repo}
	pipeline, err := BuildPatternPipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.PatternPayload{JobID: "job-1"})
	result, err := pipeline[0].Execute(context.Background(), json.RawMessage(rawPayload), deps, actions.Context{})
	require.NoError(t, err)
	pp := result.(*queue.PatternPayload)
	require.Empty(t, pp.Metadata.PatternID, "expected no pattern id when patternRules is empty")
}
