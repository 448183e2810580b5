// Copyright 2025 James Ross
// Package repository defines the §6.3 repository contract the action
// pipelines depend on, plus a Postgres (lib/pq), SQLite
// (mattn/go-sqlite3), and in-memory adapter.
package repository

import (
	"context"
	"time"
)

// Note is the persisted shape createNote/getNoteWithEvernoteMetadata return.
type Note struct {
	ID           string
	Title        string
	Content      string
	EvernoteTags []string
	CreatedAt    time.Time
}

// Category is what saveCategoryToNote returns (§6.3).
type Category struct {
	ID   string
	Name string
}

// Tag is what saveTagsToNote returns per element (§6.3).
type Tag struct {
	ID   string
	Name string
}

// InstructionCompletionStatus mirrors getInstructionCompletionStatus (§6.3).
type InstructionCompletionStatus struct {
	CompletedInstructions int
	TotalInstructions     int
	Progress              string
	IsComplete            bool
}

// IngredientCompletionStatus mirrors getIngredientCompletionStatus (§6.3).
type IngredientCompletionStatus struct {
	CompletedIngredients int
	TotalIngredients     int
	IsComplete           bool
}

// Repository is the non-exhaustive §6.3 contract.
type Repository interface {
	CreateNote(ctx context.Context, parsedHTML string) (Note, error)
	GetNoteWithEvernoteMetadata(ctx context.Context, noteID string) (*Note, error)
	SaveCategoryToNote(ctx context.Context, noteID, categoryName string) (Category, error)
	SaveTagsToNote(ctx context.Context, noteID string, tagNames []string) ([]Tag, error)
	GetInstructionCompletionStatus(ctx context.Context, noteID string) (InstructionCompletionStatus, error)
	GetIngredientCompletionStatus(ctx context.Context, noteID string) (IngredientCompletionStatus, error)
	SaveIngredientLine(ctx context.Context, noteID string, lineNumber int, segments []IngredientSegment) error
	SaveInstructionLine(ctx context.Context, noteID string, lineNumber int, text string) error
}

// IngredientSegment mirrors the narrow "parse line -> segments" contract
// §1 treats as an external collaborator.
type IngredientSegment struct {
	RuleID string
	Text   string
}
