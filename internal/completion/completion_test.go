// Copyright 2025 James Ross
package completion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusAbsentNoteIsTriviallyComplete(t *testing.T) {
	tr := New(nil)
	s := tr.Status("missing")
	require.True(t, s.IsComplete)
	require.Zero(t, s.CompletedJobs)
	require.Zero(t, s.TotalJobs)
}

func TestIncrementCappedAtTotal(t *testing.T) {
	tr := New(nil)
	tr.Create("n1", 2)
	tr.Increment("n1")
	tr.Increment("n1")
	tr.Increment("n1") // must not overshoot
	s := tr.Status("n1")
	require.EqualValues(t, 2, s.CompletedJobs, "completedJobs must be capped at total")
	require.True(t, s.IsComplete)
}

func TestIncrementFallbackWhenAbsent(t *testing.T) {
	tr := New(nil)
	tr.Increment("n2")
	s := tr.Status("n2")
	require.EqualValues(t, 1, s.TotalJobs)
	require.EqualValues(t, 1, s.CompletedJobs)
	require.True(t, s.IsComplete)
}

func TestUpdateFallbackImmediatelyComplete(t *testing.T) {
	tr := New(nil)
	tr.Update("n3", 5)
	s := tr.Status("n3")
	require.EqualValues(t, 5, s.TotalJobs)
	require.EqualValues(t, 5, s.CompletedJobs)
	require.True(t, s.IsComplete)
}

func TestCreateIdempotentSameTotal(t *testing.T) {
	tr := New(nil)
	tr.Create("n4", 3)
	tr.Increment("n4")
	tr.Create("n4", 3) // no-op, must not reset completedJobs
	s := tr.Status("n4")
	require.EqualValues(t, 1, s.CompletedJobs, "repeat Create with same total must be a no-op")
}

func TestCreateOverridesOnConflictingTotal(t *testing.T) {
	tr := New(nil)
	tr.Create("n5", 3)
	tr.Create("n5", 10)
	s := tr.Status("n5")
	require.EqualValues(t, 10, s.TotalJobs, "conflicting totalJobs must override")
}

func TestMarkWorkerCompletedInvokesHookOnlyWhenExpectedSetSatisfied(t *testing.T) {
	var completedNote string
	tr := New(func(noteID string) { completedNote = noteID })
	ctx := context.Background()
	tr.MarkWorkerCompleted(ctx, "n6", WorkerIngredient, "import-1", nil, nil)
	require.Empty(t, completedNote, "hook must not fire until the full expected set is satisfied")
	tr.MarkWorkerCompleted(ctx, "n6", WorkerInstruction, "import-1", nil, nil)
	tr.MarkWorkerCompleted(ctx, "n6", WorkerNote, "import-1", nil, nil)
	require.Equal(t, "n6", completedNote, "expected onAllWorkersComplete to fire with n6")
}

func TestMarkWorkerCompletedWithNarrowExpectedSet(t *testing.T) {
	var fired bool
	tr := New(func(noteID string) { fired = true })
	tr.MarkWorkerCompletedWithExpected(context.Background(), "n7", WorkerIngredient,
		map[WorkerKind]bool{WorkerIngredient: true}, "import-1", nil, nil)
	require.True(t, fired, "narrow expected set {ingredient} alone must satisfy immediately")
}

func TestIngredientCompletionBoundedRetryAndFailure(t *testing.T) {
	it := NewIngredientTracker()
	it.SetTotal("n8", 3)
	it.MarkLineComplete("n8")

	var failedReason string
	opts := CheckCompletionOptions{MaxRetries: 2, Delay: 5 * time.Millisecond}
	status := it.AwaitIngredientCompletion(context.Background(), "n8", opts,
		func(ctx context.Context, noteID, reason, code string, context map[string]any, logger *zap.Logger) {
			failedReason = reason
		},
		nil)
	require.NotEmpty(t, failedReason, "expected markFailed to be invoked after exhausting retries")
	require.False(t, status.IsComplete, "expected incomplete status since only 1 of 3 lines finished")
}

func TestIngredientCompletionSucceedsWhenAllLinesComplete(t *testing.T) {
	it := NewIngredientTracker()
	it.SetTotal("n9", 2)
	it.MarkLineComplete("n9")
	it.MarkLineComplete("n9")
	s := it.Status("n9")
	require.True(t, s.IsComplete, "expected complete once all lines report")
}
