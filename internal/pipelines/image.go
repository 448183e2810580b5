// Copyright 2025 James Ross
// Image pipeline (SPEC_FULL.md supplement): FETCH_IMAGE -> STORE_IMAGE
// -> CHECK_IMAGE_COMPLETION, mirroring the Ingredient/Instruction shape
// so the "image" worker kind named in §3's NoteCompletionTracker has a
// concrete producer of its completedWorkers entry.
package pipelines

import (
	"context"
	"fmt"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
)

type fetchImageAction struct{}

func (fetchImageAction) Name() actions.Name { return actions.FetchImage }

func (fetchImageAction) ValidateInput(payload any) error {
	p, err := decodeImagePayload(payload)
	if err != nil {
		return fmt.Errorf("fetch_image: %w", err)
	}
	if p.SourceURL == "" {
		return fmt.Errorf("fetch_image: sourceUrl is empty")
	}
	return nil
}

func (fetchImageAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p, err := decodeImagePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("fetch_image: %w", err)
	}
	d := extraOf(deps)
	if d == nil || d.FetchImage == nil {
		return nil, fmt.Errorf("fetch_image: no ImageFetcher configured")
	}
	data, err := d.FetchImage(ctx, p.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch_image: %w", err)
	}
	p.Bytes = data
	return p, nil
}

type storeImageAction struct{}

func (storeImageAction) Name() actions.Name { return actions.StoreImage }

func (storeImageAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.ImagePayload)
	if !ok {
		return fmt.Errorf("store_image: payload is not *ImagePayload")
	}
	if len(p.Bytes) == 0 {
		return fmt.Errorf("store_image: no bytes to store; fetch_image must run first")
	}
	return nil
}

func (storeImageAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.ImagePayload)
	d := extraOf(deps)
	if d == nil || d.ImageStore == nil {
		return nil, fmt.Errorf("store_image: no ImageStore configured")
	}
	obj, err := d.ImageStore.Put(ctx, p.NoteID, p.Bytes, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("store_image: %w", err)
	}
	p.StoredKey = obj.Key
	return p, nil
}

// checkImageCompletionAction mirrors CHECK_INGREDIENT_COMPLETION's
// shape: it marks the note's image worker complete once this image has
// been stored. Images have no dedicated sub-tracker (unlike ingredient
// lines) because images aren't independently re-awaited elsewhere; one
// stored image simply reports "image" done for its note.
type checkImageCompletionAction struct{}

func (checkImageCompletionAction) Name() actions.Name { return actions.CheckImageCompletion }

func (checkImageCompletionAction) ValidateInput(payload any) error {
	p, ok := payload.(*queue.ImagePayload)
	if !ok {
		return fmt.Errorf("check_image_completion: payload is not *ImagePayload")
	}
	if p.StoredKey == "" {
		return fmt.Errorf("check_image_completion: storedKey is empty; store_image must run first")
	}
	return nil
}

func (checkImageCompletionAction) Execute(ctx context.Context, payload any, deps actions.Deps, actx actions.Context) (any, error) {
	p := payload.(*queue.ImagePayload)
	d := extraOf(deps)
	if d != nil && d.Completion != nil {
		d.Completion.MarkWorkerCompleted(ctx, p.NoteID, completion.WorkerImage, p.ImportID, deps.Logger, deps.StatusBroadcaster)
	}
	return p, nil
}
