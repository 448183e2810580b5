// Copyright 2025 James Ross
// validate.go implements worker.PayloadValidator for each stage's raw
// job payload (§4.4 step 2), extracting the noteId needed for FAILED
// status events on non-retryable validation failures. Required-field
// checks run through go-playground/validator's struct-tag validation
// rather than hand-rolled if-chains.
package pipelines

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/awehrman/peas-sub008/internal/queue"
)

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkRequired runs struct-tag validation and turns the first failure
// into a "<label>: <jsonField> is required"-shaped error, matching the
// per-stage error strings callers already format around.
func checkRequired(label string, p any) error {
	if err := payloadValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: %s is %s", label, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

// NoteValidator checks the required fields of a raw NotePayload.
type NoteValidator struct{}

func (NoteValidator) Validate(payload []byte) (string, error) {
	var p queue.NotePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("note payload: %w", err)
	}
	if err := checkRequired("note payload", &p); err != nil {
		return p.NoteID, err
	}
	return p.NoteID, nil
}

// IngredientValidator checks the required fields of a raw IngredientPayload.
type IngredientValidator struct{}

func (IngredientValidator) Validate(payload []byte) (string, error) {
	var p queue.IngredientPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("ingredient payload: %w", err)
	}
	if err := checkRequired("ingredient payload", &p); err != nil {
		return p.NoteID, err
	}
	return p.NoteID, nil
}

// InstructionValidator checks the required fields of a raw InstructionPayload.
type InstructionValidator struct{}

func (InstructionValidator) Validate(payload []byte) (string, error) {
	var p queue.InstructionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("instruction payload: %w", err)
	}
	if err := checkRequired("instruction payload", &p); err != nil {
		return p.NoteID, err
	}
	return p.NoteID, nil
}

// CategorizationValidator checks the required fields of a raw CategorizationPayload.
type CategorizationValidator struct{}

func (CategorizationValidator) Validate(payload []byte) (string, error) {
	var p queue.CategorizationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("categorization payload: %w", err)
	}
	if err := checkRequired("categorization payload", &p); err != nil {
		return "", err
	}
	return p.NoteID, nil
}

// PatternValidator checks the required fields of a raw PatternPayload.
type PatternValidator struct{}

func (PatternValidator) Validate(payload []byte) (string, error) {
	var p queue.PatternPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("pattern payload: %w", err)
	}
	if err := checkRequired("pattern payload", &p); err != nil {
		return "", err
	}
	return "", nil
}

// ImageValidator checks the required fields of a raw ImagePayload.
type ImageValidator struct{}

func (ImageValidator) Validate(payload []byte) (string, error) {
	var p queue.ImagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("image payload: %w", err)
	}
	if err := checkRequired("image payload", &p); err != nil {
		return p.NoteID, err
	}
	return p.NoteID, nil
}
