// Copyright 2025 James Ross
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/awehrman/peas-sub008/internal/pattern"
)

// InMemory is a test/dev adapter satisfying Repository without a
// database, grounded on the teacher's habit of shipping an in-memory
// stand-in alongside every real backend.
type InMemory struct {
	mu          sync.Mutex
	notes       map[string]*Note
	categories  map[string]Category
	tags        map[string][]Tag
	patterns    map[string]patternRow
	ingredients map[string][]IngredientSegment
}

type patternRow struct {
	PatternID       string
	ExampleLine     string
	OccurrenceCount int
}

func NewInMemory() *InMemory {
	return &InMemory{
		notes:       make(map[string]*Note),
		categories:  make(map[string]Category),
		tags:        make(map[string][]Tag),
		patterns:    make(map[string]patternRow),
		ingredients: make(map[string][]IngredientSegment),
	}
}

func (m *InMemory) CreateNote(ctx context.Context, parsedHTML string) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := Note{ID: uuid.NewString(), Content: parsedHTML, CreatedAt: time.Now().UTC()}
	m.notes[n.ID] = &n
	return n, nil
}

func (m *InMemory) GetNoteWithEvernoteMetadata(ctx context.Context, noteID string) (*Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[noteID]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *InMemory) SaveCategoryToNote(ctx context.Context, noteID, categoryName string) (Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[categoryName]
	if !ok {
		c = Category{ID: uuid.NewString(), Name: categoryName}
		m.categories[categoryName] = c
	}
	return c, nil
}

func (m *InMemory) SaveTagsToNote(ctx context.Context, noteID string, tagNames []string) ([]Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tag, 0, len(tagNames))
	for _, name := range tagNames {
		out = append(out, Tag{ID: uuid.NewString(), Name: name})
	}
	m.tags[noteID] = out
	return out, nil
}

func (m *InMemory) GetInstructionCompletionStatus(ctx context.Context, noteID string) (InstructionCompletionStatus, error) {
	return InstructionCompletionStatus{IsComplete: true, Progress: "0/0"}, nil
}

func (m *InMemory) GetIngredientCompletionStatus(ctx context.Context, noteID string) (IngredientCompletionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs := m.ingredients[noteID]
	return IngredientCompletionStatus{
		CompletedIngredients: len(segs),
		TotalIngredients:     len(segs),
		IsComplete:           true,
	}, nil
}

func (m *InMemory) SaveIngredientLine(ctx context.Context, noteID string, lineNumber int, segments []IngredientSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingredients[noteID] = append(m.ingredients[noteID], segments...)
	return nil
}

func (m *InMemory) SaveInstructionLine(ctx context.Context, noteID string, lineNumber int, text string) error {
	return nil
}

// UpsertPattern implements pattern.Store for tests/dev, keyed on the
// joined ruleIds exactly like the production transactional upsert would be.
func (m *InMemory) UpsertPattern(ctx context.Context, ruleIDs []string, exampleLine string) (pattern.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := fmt.Sprintf("%v", ruleIDs)
	row, ok := m.patterns[k]
	if !ok {
		row = patternRow{PatternID: uuid.NewString()}
	}
	row.OccurrenceCount++
	if exampleLine != "" {
		row.ExampleLine = exampleLine
	}
	m.patterns[k] = row
	return pattern.Pattern{
		PatternID:       row.PatternID,
		RuleIDs:         ruleIDs,
		ExampleLine:     row.ExampleLine,
		OccurrenceCount: row.OccurrenceCount,
	}, nil
}

func (m *InMemory) LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error {
	return nil
}
