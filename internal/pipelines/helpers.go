// Copyright 2025 James Ross
package pipelines

import (
	"encoding/json"
	"fmt"

	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/status"
)

// Each stage's first action receives the job's raw JSON payload (the
// worker runtime passes job.Payload unchanged into the pipeline's first
// Execute call); every later action receives the previous action's
// typed return value directly. These decode* helpers let a stage's
// leading action accept either shape.

func decodeNotePayload(payload any) (*queue.NotePayload, error) {
	if p, ok := payload.(*queue.NotePayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.NotePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode note payload: %w", err)
	}
	return &p, nil
}

func decodeIngredientPayload(payload any) (*queue.IngredientPayload, error) {
	if p, ok := payload.(*queue.IngredientPayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.IngredientPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode ingredient payload: %w", err)
	}
	return &p, nil
}

func decodeInstructionPayload(payload any) (*queue.InstructionPayload, error) {
	if p, ok := payload.(*queue.InstructionPayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.InstructionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode instruction payload: %w", err)
	}
	return &p, nil
}

func decodeCategorizationPayload(payload any) (*queue.CategorizationPayload, error) {
	if p, ok := payload.(*queue.CategorizationPayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.CategorizationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode categorization payload: %w", err)
	}
	return &p, nil
}

func decodePatternPayload(payload any) (*queue.PatternPayload, error) {
	if p, ok := payload.(*queue.PatternPayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.PatternPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode pattern payload: %w", err)
	}
	return &p, nil
}

func decodeImagePayload(payload any) (*queue.ImagePayload, error) {
	if p, ok := payload.(*queue.ImagePayload); ok {
		return p, nil
	}
	raw, ok := rawPayloadBytes(payload)
	if !ok {
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	var p queue.ImagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return &p, nil
}

func rawPayloadBytes(payload any) ([]byte, bool) {
	switch v := payload.(type) {
	case []byte:
		return v, true
	case json.RawMessage:
		return v, true
	default:
		return nil, false
	}
}

// statusFailedEvent builds the FAILED event shape every pipeline's
// terminal-failure path broadcasts (§7 "final FAILED status event per
// note on terminal failures").
func statusFailedEvent(importID, noteID, reason string) status.Event {
	return status.Event{
		ImportID: importID,
		NoteID:   noteID,
		Status:   status.Failed,
		Message:  reason,
		Context:  "completion_timeout",
	}
}
