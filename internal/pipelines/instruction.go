// Copyright 2025 James Ross
// Instruction pipeline (per line): FORMAT_INSTRUCTION -> SAVE_INSTRUCTION
// -> CHECK_INSTRUCTION_COMPLETION (§4.11).
package pipelines

import (
	"context"
	"fmt"
	"strings"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
)

type formatInstructionAction struct{}

func (formatInstructionAction) Name() actions.Name { return actions.FormatInstruction }

func (formatInstructionAction) ValidateInput(payload any) error {
	p, err := decodeInstructionPayload(payload)
	if err != nil {
		return fmt.Errorf("format_instruction: %w", err)
	}
	if strings.TrimSpace(p.RawLine) == "" {
		return fmt.Errorf("format_instruction: rawLine is empty")
	}
	return nil
}

func (formatInstructionAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodeInstructionPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("format_instruction: %w", err)
	}
	d := extraOf(deps)
	if d != nil && d.FormatInstruction != nil {
		formatted, err := d.FormatInstruction(p.RawLine)
		if err != nil {
			return nil, fmt.Errorf("format_instruction: %w", err)
		}
		p.FormattedText = formatted
		return p, nil
	}
	p.FormattedText = strings.TrimSpace(p.RawLine)
	return p, nil
}

type saveInstructionAction struct{}

func (saveInstructionAction) Name() actions.Name { return actions.SaveInstruction }

func (saveInstructionAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.InstructionPayload)
	if !ok {
		return fmt.Errorf("save_instruction: payload is not *InstructionPayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("save_instruction: noteId is empty")
	}
	return nil
}

func (saveInstructionAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.InstructionPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("save_instruction: no Repository configured")
	}
	if err := d.Repo.SaveInstructionLine(ctx, p.NoteID, p.LineIndex, p.FormattedText); err != nil {
		return nil, fmt.Errorf("save_instruction: %w", err)
	}
	return p, nil
}

// checkInstructionCompletionAction consults the repository's
// instruction-completion view directly (no dedicated sub-tracker is
// named for instructions in §4.5; it reuses the repository's live
// count rather than a duplicate in-memory counter).
type checkInstructionCompletionAction struct{}

func (checkInstructionCompletionAction) Name() actions.Name { return actions.CheckInstructionCompletion }

func (checkInstructionCompletionAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.InstructionPayload)
	if !ok {
		return fmt.Errorf("check_instruction_completion: payload is not *InstructionPayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("check_instruction_completion: noteId is empty")
	}
	return nil
}

func (checkInstructionCompletionAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.InstructionPayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return p, nil
	}
	st, err := d.Repo.GetInstructionCompletionStatus(ctx, p.NoteID)
	if err != nil {
		return nil, fmt.Errorf("check_instruction_completion: %w", err)
	}
	if st.IsComplete && d.Completion != nil {
		d.Completion.MarkWorkerCompleted(ctx, p.NoteID, completion.WorkerInstruction, p.ImportID, deps.Logger, deps.StatusBroadcaster)
	}
	return p, nil
}
