// Copyright 2025 James Ross
// Categorization pipeline: DETERMINE_CATEGORY -> SAVE_CATEGORY ->
// DETERMINE_TAGS -> SAVE_TAGS (§4.11). determineTagsAction is the
// documented BroadcastsInline exception: its contract requires
// broadcaster errors to propagate as job failures instead of being
// swallowed by BaseAction (§4.3).
package pipelines

import (
	"context"
	"fmt"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/repository"
	"github.com/awehrman/peas-sub008/internal/status"
)

type determineCategoryAction struct{}

func (determineCategoryAction) Name() actions.Name { return actions.DetermineCategory }

func (determineCategoryAction) ValidateInput(payload any) error {
	p, err := decodeCategorizationPayload(payload)
	if err != nil {
		return fmt.Errorf("determine_category: %w", err)
	}
	if p.NoteID == "" {
		return fmt.Errorf("determine_category: noteId is empty")
	}
	return nil
}

func (determineCategoryAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodeCategorizationPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("determine_category: %w", err)
	}
	d := extraOf(deps)
	if d == nil || d.DetermineCategory == nil || d.Repo == nil {
		return nil, fmt.Errorf("determine_category: not configured")
	}
	note, err := d.Repo.GetNoteWithEvernoteMetadata(ctx, p.NoteID)
	if err != nil {
		return nil, fmt.Errorf("determine_category: %w", err)
	}
	if note == nil {
		note = &repository.Note{ID: p.NoteID}
	}
	category, err := d.DetermineCategory(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("determine_category: %w", err)
	}
	p.DeterminedCategory = category
	return p, nil
}

type saveCategoryAction struct{}

func (saveCategoryAction) Name() actions.Name { return actions.SaveCategory }

func (saveCategoryAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.CategorizationPayload)
	if !ok {
		return fmt.Errorf("save_category: payload is not *CategorizationPayload")
	}
	if p.DeterminedCategory == "" {
		return fmt.Errorf("save_category: determinedCategory is empty; determine_category must run first")
	}
	return nil
}

func (saveCategoryAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.CategorizationPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("save_category: no Repository configured")
	}
	c, err := d.Repo.SaveCategoryToNote(ctx, p.NoteID, p.DeterminedCategory)
	if err != nil {
		return nil, fmt.Errorf("save_category: %w", err)
	}
	p.SavedCategoryID = c.ID
	return p, nil
}

// determineTagsAction is the §4.3 BroadcastsInline exception: it emits
// its own status event and requires the broadcast error (if any) to
// fail the job, rather than letting BaseAction swallow it.
type determineTagsAction struct{}

func (determineTagsAction) Name() actions.Name { return actions.DetermineTags }

func (determineTagsAction) BroadcastsInline() bool { return true }

func (determineTagsAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.CategorizationPayload)
	if !ok {
		return fmt.Errorf("determine_tags: payload is not *CategorizationPayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("determine_tags: noteId is empty")
	}
	return nil
}

// emptyTagsReason is the exact message §8 scenario 4 requires when a
// note carries no Evernote tags metadata.
const emptyTagsReason = "No Evernote tags metadata"

func (determineTagsAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.CategorizationPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("determine_tags: no Repository configured")
	}

	note, err := d.Repo.GetNoteWithEvernoteMetadata(ctx, p.NoteID)
	if err != nil {
		return nil, fmt.Errorf("determine_tags: %w", err)
	}

	var (
		tags   []string
		reason string
	)
	if note == nil || len(note.EvernoteTags) == 0 {
		tags = []string{}
		reason = emptyTagsReason
	} else if d.DetermineTags != nil {
		tags, reason, err = d.DetermineTags(ctx, note)
		if err != nil {
			return nil, fmt.Errorf("determine_tags: %w", err)
		}
	} else {
		tags = note.EvernoteTags
		reason = "Derived from Evernote tags metadata"
	}

	p.DeterminedTags = tags
	p.TagDeterminationReason = reason

	if deps.StatusBroadcaster != nil {
		if _, err := deps.StatusBroadcaster.AddStatusEventAndBroadcast(ctx, status.Event{
			ImportID: p.ImportID,
			NoteID:   p.NoteID,
			Status:   status.Completed,
			Message:  reason,
			Context:  string(actions.DetermineTags),
			Metadata: map[string]any{"determinedTags": tags},
		}); err != nil {
			return nil, fmt.Errorf("determine_tags: status broadcast: %w", err)
		}
	}

	return p, nil
}

type saveTagsAction struct{}

func (saveTagsAction) Name() actions.Name { return actions.SaveTags }

func (saveTagsAction) ValidateInput(payload any) error {
	if _, ok := payload.(*queue.CategorizationPayload); !ok {
		return fmt.Errorf("save_tags: payload is not *CategorizationPayload")
	}
	return nil
}

func (saveTagsAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.CategorizationPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("save_tags: no Repository configured")
	}
	if len(p.DeterminedTags) == 0 {
		return p, nil
	}
	saved, err := d.Repo.SaveTagsToNote(ctx, p.NoteID, p.DeterminedTags)
	if err != nil {
		return nil, fmt.Errorf("save_tags: %w", err)
	}
	ids := make([]string, len(saved))
	for i, t := range saved {
		ids[i] = t.ID
	}
	p.SavedTagIDs = ids

	if d.Completion != nil {
		d.Completion.MarkWorkerCompleted(ctx, p.NoteID, completion.WorkerCategorization, p.ImportID, deps.Logger, deps.StatusBroadcaster)
	}
	return p, nil
}
