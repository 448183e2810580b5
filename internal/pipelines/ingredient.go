// Copyright 2025 James Ross
// Ingredient pipeline (per line): PARSE_INGREDIENT_LINE ->
// SAVE_INGREDIENT_LINE -> TRACK_PATTERN -> CHECK_INGREDIENT_COMPLETION,
// with SCHEDULE_CATEGORIZATION invoked as a hook once complete (§4.11).
package pipelines

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/pattern"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/repository"
)

type parseIngredientLineAction struct{}

func (parseIngredientLineAction) Name() actions.Name { return actions.ParseIngredientLine }

func (parseIngredientLineAction) ValidateInput(payload any) error {
	p, err := decodeIngredientPayload(payload)
	if err != nil {
		return fmt.Errorf("parse_ingredient_line: %w", err)
	}
	if strings.TrimSpace(p.RawLine) == "" {
		return fmt.Errorf("parse_ingredient_line: rawLine is empty")
	}
	return nil
}

func (parseIngredientLineAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodeIngredientPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("parse_ingredient_line: %w", err)
	}
	d := extraOf(deps)
	if d == nil || d.ParseIngredientLine == nil {
		return nil, fmt.Errorf("parse_ingredient_line: no IngredientLineParser configured")
	}
	segments, ruleIDs, err := d.ParseIngredientLine(p.RawLine)
	if err != nil {
		return nil, fmt.Errorf("parse_ingredient_line: %w", err)
	}
	p.Segments = toQueueSegments(segments)
	p.RuleIDs = ruleIDs
	return p, nil
}

func toQueueSegments(in []repository.IngredientSegment) []queue.IngredientSegment {
	out := make([]queue.IngredientSegment, len(in))
	for i, s := range in {
		out[i] = queue.IngredientSegment{RuleID: s.RuleID, Text: s.Text}
	}
	return out
}

func toRepoSegments(in []queue.IngredientSegment) []repository.IngredientSegment {
	out := make([]repository.IngredientSegment, len(in))
	for i, s := range in {
		out[i] = repository.IngredientSegment{RuleID: s.RuleID, Text: s.Text}
	}
	return out
}

type saveIngredientLineAction struct{}

func (saveIngredientLineAction) Name() actions.Name { return actions.SaveIngredientLine }

func (saveIngredientLineAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.IngredientPayload)
	if !ok {
		return fmt.Errorf("save_ingredient_line: payload is not *IngredientPayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("save_ingredient_line: noteId is empty")
	}
	return nil
}

func (saveIngredientLineAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.IngredientPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("save_ingredient_line: no Repository configured")
	}
	if err := d.Repo.SaveIngredientLine(ctx, p.NoteID, p.LineIndex, toRepoSegments(p.Segments)); err != nil {
		return nil, fmt.Errorf("save_ingredient_line: %w", err)
	}
	return p, nil
}

// trackPatternAction wraps pattern.TrackPattern. Pattern-tracker errors
// are recorded in metadata but never thrown (§4.7, §7) — this action
// never fails the pipeline.
type trackPatternAction struct{}

func (trackPatternAction) Name() actions.Name { return actions.TrackPattern }

func (trackPatternAction) ValidateInput(payload any) error {
	if _, ok := payload.(*queue.IngredientPayload); !ok {
		return fmt.Errorf("track_pattern: payload is not *IngredientPayload")
	}
	return nil
}

func (trackPatternAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.IngredientPayload)
	d := extraOf(deps)
	if d == nil || d.PatternStore == nil {
		return p, nil
	}
	result := pattern.TrackPattern(ctx, d.PatternStore, pattern.TrackRequest{
		JobID:        actx.JobID,
		PatternRules: p.RuleIDs,
		ExampleLine:  p.RawLine,
		Metadata:     map[string]any{"ingredientLineId": p.LineID},
	}, deps.Logger)
	if patternID, ok := result.Metadata["patternId"].(string); ok {
		p.PatternID = patternID
	}
	return p, nil
}

// checkIngredientCompletionAction marks the line complete in the
// ingredient sub-tracker, awaits completion with bounded retry, and —
// once complete — invokes ScheduleCategorization as the
// ingredient-completion -> categorization hook (§4.11, §9).
type checkIngredientCompletionAction struct{}

func (checkIngredientCompletionAction) Name() actions.Name { return actions.CheckIngredientCompletion }

func (checkIngredientCompletionAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.IngredientPayload)
	if !ok {
		return fmt.Errorf("check_ingredient_completion: payload is not *IngredientPayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("check_ingredient_completion: noteId is empty")
	}
	return nil
}

func (checkIngredientCompletionAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.IngredientPayload)
	d := extraOf(deps)
	if d == nil || d.IngredientTracker == nil {
		return p, nil
	}

	d.IngredientTracker.MarkLineComplete(p.NoteID)

	var markFailed completion.MarkNoteAsFailed
	if deps.StatusBroadcaster != nil {
		markFailed = func(ctx context.Context, noteID, reason, code string, context map[string]any, logger *zap.Logger) {
			_, _ = deps.StatusBroadcaster.AddStatusEventAndBroadcast(ctx, statusFailedEvent(p.ImportID, noteID, reason))
		}
	}

	st := d.IngredientTracker.AwaitIngredientCompletion(ctx, p.NoteID, completion.DefaultCheckCompletionOptions(), markFailed, deps.Logger)
	if !st.IsComplete {
		return p, nil
	}

	if d.Completion != nil {
		d.Completion.MarkWorkerCompleted(ctx, p.NoteID, completion.WorkerIngredient, p.ImportID, deps.Logger, deps.StatusBroadcaster)
	}

	if d.ScheduleCategorization != nil && (d.Completion == nil || !d.Completion.WasScheduled(p.NoteID)) {
		if err := d.ScheduleCategorization(ctx, p.NoteID, p.ImportID, actx.JobID); err != nil {
			if deps.Logger != nil {
				deps.Logger.Warn("schedule_categorization hook failed", zap.String("noteId", p.NoteID), zap.Error(err))
			}
		} else if d.Completion != nil {
			d.Completion.MarkScheduled(p.NoteID)
		}
	}

	return p, nil
}
