// Copyright 2025 James Ross
package queue

import "time"

// NotePayload drives the Note pipeline: CLEAN_HTML -> PARSE_HTML ->
// PERSIST_NOTE -> FANOUT_LINES (§4.11).
type NotePayload struct {
	NoteID   string `json:"noteId"`
	ImportID string `json:"importId" validate:"required"`
	RawHTML  string `json:"rawHtml" validate:"required"`

	CleanedText string   `json:"cleanedText,omitempty"`
	Title       string   `json:"title,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
}

// IngredientPayload drives the per-line Ingredient pipeline:
// PARSE_INGREDIENT_LINE -> SAVE_INGREDIENT_LINE -> TRACK_PATTERN ->
// CHECK_INGREDIENT_COMPLETION (§4.11).
type IngredientPayload struct {
	NoteID       string `json:"noteId" validate:"required"`
	ImportID     string `json:"importId"`
	LineID       string `json:"lineId"`
	LineIndex    int    `json:"lineIndex"`
	RawLine      string `json:"rawLine" validate:"required"`

	Segments    []IngredientSegment `json:"segments,omitempty"`
	RuleIDs     []string            `json:"ruleIds,omitempty"`
	PatternID   string              `json:"patternId,omitempty"`
}

// IngredientSegment is one parsed token from the ingredient grammar
// parser's contract ("parse line -> segments", §1).
type IngredientSegment struct {
	RuleID string `json:"ruleId"`
	Text   string `json:"text"`
}

// InstructionPayload drives the per-line Instruction pipeline:
// FORMAT_INSTRUCTION -> SAVE_INSTRUCTION -> CHECK_INSTRUCTION_COMPLETION.
type InstructionPayload struct {
	NoteID    string `json:"noteId" validate:"required"`
	ImportID  string `json:"importId"`
	LineID    string `json:"lineId"`
	LineIndex int    `json:"lineIndex"`
	RawLine   string `json:"rawLine" validate:"required"`

	FormattedText string `json:"formattedText,omitempty"`
}

// CategorizationPayload drives DETERMINE_CATEGORY -> SAVE_CATEGORY ->
// DETERMINE_TAGS -> SAVE_TAGS (§4.11).
type CategorizationPayload struct {
	NoteID   string `json:"noteId" validate:"required"`
	ImportID string `json:"importId"`

	DeterminedCategory  string   `json:"determinedCategory,omitempty"`
	SavedCategoryID     string   `json:"savedCategoryId,omitempty"`
	DeterminedTags      []string `json:"determinedTags,omitempty"`
	TagDeterminationReason string `json:"tagDeterminationReason,omitempty"`
	SavedTagIDs         []string `json:"savedTagIds,omitempty"`

	Metadata CategorizationMetadata `json:"metadata"`
}

// CategorizationMetadata carries the scheduling provenance the spec
// requires (§4.6).
type CategorizationMetadata struct {
	OriginalJobID string    `json:"originalJobId,omitempty"`
	TriggeredBy   string    `json:"triggeredBy,omitempty"`
	ScheduledAt   time.Time `json:"scheduledAt,omitempty"`
}

// PatternPayload drives the standalone Pattern pipeline (TRACK_PATTERN)
// and is also embedded as the tail step of the Ingredient pipeline.
type PatternPayload struct {
	JobID         string          `json:"jobId" validate:"required"`
	PatternRules  []string        `json:"patternRules"`
	ExampleLine   string          `json:"exampleLine,omitempty"`
	Metadata      PatternMetadata `json:"metadata"`
}

// PatternMetadata is written back onto the payload by TRACK_PATTERN.
type PatternMetadata struct {
	IngredientLineID string    `json:"ingredientLineId,omitempty"`
	PatternID        string    `json:"patternId,omitempty"`
	TrackedAt        time.Time `json:"trackedAt,omitempty"`
	LinkedToLine     bool      `json:"linkedToIngredientLine,omitempty"`
	Error            string    `json:"error,omitempty"`
	ErrorTimestamp   time.Time `json:"errorTimestamp,omitempty"`
}

// ImagePayload drives the supplemented Image pipeline: FETCH_IMAGE ->
// STORE_IMAGE -> CHECK_IMAGE_COMPLETION (SPEC_FULL.md).
type ImagePayload struct {
	NoteID   string `json:"noteId" validate:"required"`
	ImportID string `json:"importId"`
	ImageID  string `json:"imageId"`
	SourceURL string `json:"sourceUrl" validate:"required"`

	Bytes    []byte `json:"bytes,omitempty"`
	StoredKey string `json:"storedKey,omitempty"`
}
