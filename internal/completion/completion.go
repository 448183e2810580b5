// Copyright 2025 James Ross
// Package completion implements the C5 per-note completion tracker: a
// fan-in counter that lets the ingredient/instruction/categorization
// workers converge on a single note without sharing a graph, plus the
// ingredient sub-tracker consumed by CHECK_INGREDIENT_COMPLETION (§4.5).
package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/status"
)

// WorkerKind is one of the fan-in participants a note can report from.
type WorkerKind string

const (
	WorkerNote           WorkerKind = "note"
	WorkerImage          WorkerKind = "image"
	WorkerIngredient     WorkerKind = "ingredient"
	WorkerInstruction    WorkerKind = "instruction"
	WorkerCategorization WorkerKind = "categorization"
)

// Status is the read-only view returned by Tracker.Status (§4.5).
type Status struct {
	CompletedJobs int
	TotalJobs     int
	IsComplete    bool
}

type noteState struct {
	mu               sync.Mutex
	totalJobs        int
	completedJobs    int
	completedWorkers map[WorkerKind]bool
	scheduled        bool // §9 open question: dedup flag for categorization scheduling
}

// OnAllWorkersComplete is invoked once a note's expected-worker-set is
// satisfied (§4.5).
type OnAllWorkersComplete func(noteID string)

// Tracker is the C5 per-note fan-in counter.
type Tracker struct {
	mu    sync.Mutex
	notes map[string]*noteState

	onAllWorkersComplete OnAllWorkersComplete
}

func New(onAllWorkersComplete OnAllWorkersComplete) *Tracker {
	return &Tracker{
		notes:                make(map[string]*noteState),
		onAllWorkersComplete: onAllWorkersComplete,
	}
}

func (t *Tracker) stateFor(noteID string) *noteState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.notes[noteID]
	if !ok {
		s = &noteState{completedWorkers: make(map[WorkerKind]bool)}
		t.notes[noteID] = s
	}
	return s
}

// Create creates or resets a tracker for noteID. Idempotent: repeated
// calls with the same totalJobs are no-ops; a differing totalJobs
// overrides the existing value (§4.5).
func (t *Tracker) Create(noteID string, totalJobs int) {
	s := t.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalJobs == totalJobs {
		return
	}
	s.totalJobs = totalJobs
}

// Update sets the absolute completed count. If no tracker exists, a
// fallback tracker is created with totalJobs = completedJobs, which is
// immediately "complete" — an intentional fast path for untracked
// bulk-completion signals (§4.5).
func (t *Tracker) Update(noteID string, completedJobs int) {
	s := t.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalJobs == 0 && s.completedJobs == 0 {
		s.totalJobs = completedJobs
	}
	s.completedJobs = completedJobs
	if s.completedJobs > s.totalJobs {
		s.completedJobs = s.totalJobs
	}
}

// Increment adds one to completedJobs, capped at totalJobs. Creates a
// fallback {1,1} tracker if absent (§4.5).
func (t *Tracker) Increment(noteID string) {
	s := t.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalJobs == 0 {
		s.totalJobs = 1
		s.completedJobs = 1
		return
	}
	if s.completedJobs < s.totalJobs {
		s.completedJobs++
	}
}

// Status returns {0,0,true} when no tracker exists for noteID — absence
// is trivially complete (§4.5, §8 invariant 3).
func (t *Tracker) Status(noteID string) Status {
	t.mu.Lock()
	s, ok := t.notes[noteID]
	t.mu.Unlock()
	if !ok {
		return Status{IsComplete: true}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		CompletedJobs: s.completedJobs,
		TotalJobs:     s.totalJobs,
		IsComplete:    s.totalJobs > 0 && s.completedJobs == s.totalJobs,
	}
}

// expectedWorkers is the minimum policy set per §4.5 ("at least
// ingredient + instruction + note"). Callers needing a narrower set
// (e.g. the historical {ingredient}-only call site) use
// MarkWorkerCompletedWithExpected instead (§9 open question).
var expectedWorkers = map[WorkerKind]bool{
	WorkerIngredient: true,
	WorkerInstruction: true,
	WorkerNote:        true,
}

// MarkWorkerCompleted adds workerKind to the note's completed-workers
// set using the default expected set (ingredient+instruction+note).
func (t *Tracker) MarkWorkerCompleted(ctx context.Context, noteID string, workerKind WorkerKind, importID string, logger *zap.Logger, broadcaster status.Broadcaster) {
	t.MarkWorkerCompletedWithExpected(ctx, noteID, workerKind, expectedWorkers, importID, logger, broadcaster)
}

// MarkWorkerCompletedWithExpected is the parameterized form: different
// call sites in the source use different expected-worker subsets
// (e.g. {ingredient} alone vs {ingredient,instruction,note}); this
// preserves both by taking the expected set explicitly (§9).
func (t *Tracker) MarkWorkerCompletedWithExpected(ctx context.Context, noteID string, workerKind WorkerKind, expected map[WorkerKind]bool, importID string, logger *zap.Logger, broadcaster status.Broadcaster) {
	s := t.stateFor(noteID)
	s.mu.Lock()
	s.completedWorkers[workerKind] = true
	done := true
	for w := range expected {
		if !s.completedWorkers[w] {
			done = false
			break
		}
	}
	s.mu.Unlock()

	if !done {
		return
	}

	if broadcaster != nil {
		_, err := broadcaster.AddStatusEventAndBroadcast(ctx, status.Event{
			ImportID: importID,
			NoteID:   noteID,
			Status:   status.Completed,
			Message:  fmt.Sprintf("note %s fully processed", noteID),
			Context:  "completion_tracker",
		})
		if err != nil && logger != nil {
			logger.Warn("completion status broadcast failed", zap.String("noteId", noteID), zap.Error(err))
		}
	}
	if t.onAllWorkersComplete != nil {
		t.onAllWorkersComplete(noteID)
	}
}

// MarkScheduled records that categorization has been scheduled for
// noteID, supporting (but not enforcing) the dedup policy the scheduler
// itself deliberately leaves to callers (§4.6, §9 open question).
func (t *Tracker) MarkScheduled(noteID string) {
	s := t.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = true
}

// WasScheduled reports whether MarkScheduled has already run for noteID.
func (t *Tracker) WasScheduled(noteID string) bool {
	t.mu.Lock()
	s, ok := t.notes[noteID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// ---- Ingredient sub-tracker (§4.5) ----

type ingredientState struct {
	mu        sync.Mutex
	completed int
	total     int
}

// IngredientStatus is the derived view consumed by CHECK_INGREDIENT_COMPLETION.
type IngredientStatus struct {
	Completed  int
	Total      int
	IsComplete bool
}

// IngredientTracker is the parallel per-line ingredient-completion map,
// consulted by CHECK_INGREDIENT_COMPLETION with bounded retries to
// absorb tracker-write/visibility skew (§4.5).
type IngredientTracker struct {
	mu    sync.Mutex
	notes map[string]*ingredientState
}

func NewIngredientTracker() *IngredientTracker {
	return &IngredientTracker{notes: make(map[string]*ingredientState)}
}

func (it *IngredientTracker) stateFor(noteID string) *ingredientState {
	it.mu.Lock()
	defer it.mu.Unlock()
	s, ok := it.notes[noteID]
	if !ok {
		s = &ingredientState{}
		it.notes[noteID] = s
	}
	return s
}

// SetTotal declares how many ingredient lines a note expects.
func (it *IngredientTracker) SetTotal(noteID string, total int) {
	s := it.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
}

// MarkLineComplete increments the completed-line count, capped at total.
func (it *IngredientTracker) MarkLineComplete(noteID string) {
	s := it.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 || s.completed < s.total {
		s.completed++
	}
}

func (it *IngredientTracker) Status(noteID string) IngredientStatus {
	s := it.stateFor(noteID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return IngredientStatus{
		Completed:  s.completed,
		Total:      s.total,
		IsComplete: s.total > 0 && s.completed >= s.total,
	}
}

// CheckCompletionOptions configures the bounded retry the ingredient
// pipeline's CHECK_INGREDIENT_COMPLETION action performs (§4.5).
type CheckCompletionOptions struct {
	MaxRetries int
	Delay      time.Duration
}

func DefaultCheckCompletionOptions() CheckCompletionOptions {
	return CheckCompletionOptions{MaxRetries: 3, Delay: time.Second}
}

// MarkNoteAsFailed is invoked once retries are exhausted without the
// ingredient stage reaching completeness (§4.5).
type MarkNoteAsFailed func(ctx context.Context, noteID, reason, code string, context map[string]any, logger *zap.Logger)

// AwaitIngredientCompletion polls Status up to opts.MaxRetries times,
// sleeping opts.Delay between attempts, and invokes markFailed on
// exhaustion. Returns the final status and whether it completed.
func (it *IngredientTracker) AwaitIngredientCompletion(ctx context.Context, noteID string, opts CheckCompletionOptions, markFailed MarkNoteAsFailed, logger *zap.Logger) IngredientStatus {
	var last IngredientStatus
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		last = it.Status(noteID)
		if last.IsComplete {
			return last
		}
		if attempt == opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(opts.Delay):
		}
	}
	if markFailed != nil {
		markFailed(ctx, noteID, "ingredient completion timed out", "INGREDIENT_COMPLETION_TIMEOUT", map[string]any{
			"completed": last.Completed,
			"total":     last.Total,
		}, logger)
	}
	return last
}
