// Copyright 2025 James Ross
package pipelines

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/repository"
)

// fakeCategorizationRepo is a minimal repository.Repository stand-in
// that returns a note carrying Evernote tags, so tests can exercise the
// non-empty DETERMINE_TAGS branch without the in-memory adapter's
// tag-setting limitation.
type fakeCategorizationRepo struct {
	repository.Repository
	note *repository.Note
}

func (f *fakeCategorizationRepo) GetNoteWithEvernoteMetadata(ctx context.Context, noteID string) (*repository.Note, error) {
	return f.note, nil
}
func (f *fakeCategorizationRepo) SaveCategoryToNote(ctx context.Context, noteID, categoryName string) (repository.Category, error) {
	return repository.Category{ID: "cat-1", Name: categoryName}, nil
}
func (f *fakeCategorizationRepo) SaveTagsToNote(ctx context.Context, noteID string, tagNames []string) ([]repository.Tag, error) {
	out := make([]repository.Tag, len(tagNames))
	for i, n := range tagNames {
		out[i] = repository.Tag{ID: n + "-id", Name: n}
	}
	return out, nil
}

func TestCategorizationPipelineWithEvernoteTags(t *testing.T) {
	repo := &fakeCategorizationRepo{note: &repository.Note{ID: "note-1", EvernoteTags: []string{"soup", "winter"}}}
	d := &Deps{
		Repo:       repo,
		Completion: completion.New(nil),
		DetermineCategory: func(ctx context.Context, note *repository.Note) (string, error) {
			return "Soups", nil
		},
	}

	pipeline, err := BuildCategorizationPipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.CategorizationPayload{NoteID: "note-1", ImportID: "import-1"})
	result := runPipeline(t, pipeline, json.RawMessage(rawPayload), deps)
	cp := result.(*queue.CategorizationPayload)

	require.Equal(t, "cat-1", cp.SavedCategoryID)
	require.Len(t, cp.SavedTagIDs, 2, "expected 2 saved tags derived from Evernote metadata")
	require.Equal(t, "Derived from Evernote tags metadata", cp.TagDeterminationReason)
}

func TestCategorizationPipelineEmptyTagsReason(t *testing.T) {
	repo := &fakeCategorizationRepo{note: &repository.Note{ID: "note-1"}}
	d := &Deps{
		Repo:       repo,
		Completion: completion.New(nil),
		DetermineCategory: func(ctx context.Context, note *repository.Note) (string, error) {
			return "Misc", nil
		},
	}

	pipeline, err := BuildCategorizationPipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.CategorizationPayload{NoteID: "note-1", ImportID: "import-1"})
	result := runPipeline(t, pipeline, json.RawMessage(rawPayload), deps)
	cp := result.(*queue.CategorizationPayload)

	require.Equal(t, emptyTagsReason, cp.TagDeterminationReason)
	require.Empty(t, cp.SavedTagIDs, "expected no tags saved when note has no Evernote tags")
}
