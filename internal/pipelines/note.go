// Copyright 2025 James Ross
// Note pipeline: CLEAN_HTML -> PARSE_HTML -> PERSIST_NOTE -> FANOUT_LINES
// (§4.11).
package pipelines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
)

// cleanHTMLAction strips markup from the note's raw HTML, producing
// cleaned text and an extracted title.
type cleanHTMLAction struct{}

func (cleanHTMLAction) Name() actions.Name { return actions.CleanHTML }

func (cleanHTMLAction) ValidateInput(payload any) error {
	p, err := decodeNotePayload(payload)
	if err != nil {
		return fmt.Errorf("clean_html: %w", err)
	}
	if strings.TrimSpace(p.RawHTML) == "" {
		return fmt.Errorf("clean_html: rawHtml is empty")
	}
	return nil
}

func (cleanHTMLAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodeNotePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("clean_html: %w", err)
	}
	d := extraOf(deps)
	if d == nil || d.CleanHTML == nil {
		return nil, fmt.Errorf("clean_html: no HTMLCleaner configured")
	}
	cleaned, title, err := d.CleanHTML(p.RawHTML)
	if err != nil {
		return nil, fmt.Errorf("clean_html: %w", err)
	}
	p.CleanedText = cleaned
	p.Title = title
	return p, nil
}

// parseHTMLAction extracts the ingredient/instruction/image line lists
// from the cleaned text. The narrow parsing grammar itself is an
// external collaborator (§1); this action owns only the line-splitting
// shape the rest of the pipeline depends on.
type parseHTMLAction struct{}

func (parseHTMLAction) Name() actions.Name { return actions.ParseHTML }

func (parseHTMLAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.NotePayload)
	if !ok {
		return fmt.Errorf("parse_html: payload is not *NotePayload")
	}
	if p.CleanedText == "" {
		return fmt.Errorf("parse_html: cleanedText is empty; clean_html must run first")
	}
	return nil
}

func (parseHTMLAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.NotePayload)
	p.Ingredients, p.Instructions, p.ImageURLs = splitSections(p.CleanedText)
	return p, nil
}

// splitSections is a minimal line-oriented splitter: blank-line
// separated sections headed by "ingredients"/"instructions" (case
// insensitive); anything else is ignored. Image URLs are lines
// beginning with "http" found anywhere in the text.
func splitSections(text string) (ingredients, instructions, imageURLs []string) {
	section := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "ingredients"):
			section = "ingredients"
			continue
		case strings.HasPrefix(lower, "instructions"):
			section = "instructions"
			continue
		case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
			imageURLs = append(imageURLs, trimmed)
			continue
		}
		switch section {
		case "ingredients":
			ingredients = append(ingredients, trimmed)
		case "instructions":
			instructions = append(instructions, trimmed)
		}
	}
	return
}

// persistNoteAction creates the note row.
type persistNoteAction struct{}

func (persistNoteAction) Name() actions.Name { return actions.PersistNote }

func (persistNoteAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.NotePayload)
	if !ok {
		return fmt.Errorf("persist_note: payload is not *NotePayload")
	}
	if p.CleanedText == "" {
		return fmt.Errorf("persist_note: cleanedText is empty")
	}
	return nil
}

func (persistNoteAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.NotePayload)
	d := extraOf(deps)
	if d == nil || d.Repo == nil {
		return nil, fmt.Errorf("persist_note: no Repository configured")
	}
	n, err := d.Repo.CreateNote(ctx, p.CleanedText)
	if err != nil {
		return nil, fmt.Errorf("persist_note: %w", err)
	}
	p.NoteID = n.ID
	return p, nil
}

// fanoutLinesAction enqueues one job per ingredient/instruction line
// onto their respective queues, and declares the note's expected job
// counts to the completion tracker so later CHECK_* actions can resolve
// fan-in (§4.5, §4.11).
type fanoutLinesAction struct{}

func (fanoutLinesAction) Name() actions.Name { return actions.FanoutLines }

func (fanoutLinesAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.NotePayload)
	if !ok {
		return fmt.Errorf("fanout_lines: payload is not *NotePayload")
	}
	if p.NoteID == "" {
		return fmt.Errorf("fanout_lines: noteId is empty; persist_note must run first")
	}
	return nil
}

func (fanoutLinesAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.NotePayload)
	d := extraOf(deps)
	if d == nil || d.Broker == nil {
		return nil, fmt.Errorf("fanout_lines: no Broker configured")
	}

	if d.IngredientTracker != nil {
		d.IngredientTracker.SetTotal(p.NoteID, len(p.Ingredients))
	}
	if d.Completion != nil {
		d.Completion.Create(p.NoteID, len(p.Ingredients)+len(p.Instructions)+len(p.ImageURLs))
	}

	opts := broker.EnqueueOptions{
		Attempts:         3,
		RemoveOnComplete: 100,
		RemoveOnFail:     50,
		Backoff:          broker.BackoffSpec{Type: "exponential", Delay: 2 * time.Second},
	}

	for i, line := range p.Ingredients {
		ip := queue.IngredientPayload{NoteID: p.NoteID, ImportID: p.ImportID, LineID: fmt.Sprintf("%s-ing-%d", p.NoteID, i), LineIndex: i, RawLine: line}
		if _, err := d.Broker.Enqueue(ctx, "ingredient", ip, opts); err != nil {
			return nil, fmt.Errorf("fanout_lines: enqueue ingredient line %d: %w", i, err)
		}
	}
	for i, line := range p.Instructions {
		ip := queue.InstructionPayload{NoteID: p.NoteID, ImportID: p.ImportID, LineID: fmt.Sprintf("%s-ins-%d", p.NoteID, i), LineIndex: i, RawLine: line}
		if _, err := d.Broker.Enqueue(ctx, "instruction", ip, opts); err != nil {
			return nil, fmt.Errorf("fanout_lines: enqueue instruction line %d: %w", i, err)
		}
	}
	for i, url := range p.ImageURLs {
		ip := queue.ImagePayload{NoteID: p.NoteID, ImportID: p.ImportID, ImageID: fmt.Sprintf("%s-img-%d", p.NoteID, i), SourceURL: url}
		if _, err := d.Broker.Enqueue(ctx, "image", ip, opts); err != nil {
			return nil, fmt.Errorf("fanout_lines: enqueue image %d: %w", i, err)
		}
	}

	if d.Completion != nil {
		d.Completion.MarkWorkerCompleted(ctx, p.NoteID, completion.WorkerNote, p.ImportID, deps.Logger, deps.StatusBroadcaster)
	}

	return p, nil
}
