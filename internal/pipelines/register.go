// Copyright 2025 James Ross
// register.go wires each stage's concrete actions into an
// actions.Factory in the exact registration order §4.11 specifies.
// Registration order is execution order (§4.3, §5).
package pipelines

import (
	"fmt"

	"github.com/awehrman/peas-sub008/internal/actions"
)

// registerNoteActions registers CLEAN_HTML -> PARSE_HTML -> PERSIST_NOTE
// -> FANOUT_LINES.
func registerNoteActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register note actions: factory is nil")
	}
	regs := []struct {
		name actions.Name
		ctor func() actions.Action
	}{
		{actions.CleanHTML, func() actions.Action { return cleanHTMLAction{} }},
		{actions.ParseHTML, func() actions.Action { return parseHTMLAction{} }},
		{actions.PersistNote, func() actions.Action { return persistNoteAction{} }},
		{actions.FanoutLines, func() actions.Action { return fanoutLinesAction{} }},
	}
	for _, r := range regs {
		if err := f.Register(r.name, r.ctor); err != nil {
			return fmt.Errorf("register note actions: %w", err)
		}
	}
	return nil
}

// registerIngredientActions registers PARSE_INGREDIENT_LINE ->
// SAVE_INGREDIENT_LINE -> TRACK_PATTERN -> CHECK_INGREDIENT_COMPLETION.
func registerIngredientActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register ingredient actions: factory is nil")
	}
	regs := []struct {
		name actions.Name
		ctor func() actions.Action
	}{
		{actions.ParseIngredientLine, func() actions.Action { return parseIngredientLineAction{} }},
		{actions.SaveIngredientLine, func() actions.Action { return saveIngredientLineAction{} }},
		{actions.TrackPattern, func() actions.Action { return trackPatternAction{} }},
		{actions.CheckIngredientCompletion, func() actions.Action { return checkIngredientCompletionAction{} }},
	}
	for _, r := range regs {
		if err := f.Register(r.name, r.ctor); err != nil {
			return fmt.Errorf("register ingredient actions: %w", err)
		}
	}
	return nil
}

// registerInstructionActions registers FORMAT_INSTRUCTION ->
// SAVE_INSTRUCTION -> CHECK_INSTRUCTION_COMPLETION.
func registerInstructionActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register instruction actions: factory is nil")
	}
	regs := []struct {
		name actions.Name
		ctor func() actions.Action
	}{
		{actions.FormatInstruction, func() actions.Action { return formatInstructionAction{} }},
		{actions.SaveInstruction, func() actions.Action { return saveInstructionAction{} }},
		{actions.CheckInstructionCompletion, func() actions.Action { return checkInstructionCompletionAction{} }},
	}
	for _, r := range regs {
		if err := f.Register(r.name, r.ctor); err != nil {
			return fmt.Errorf("register instruction actions: %w", err)
		}
	}
	return nil
}

// registerCategorizationActions registers DETERMINE_CATEGORY ->
// SAVE_CATEGORY -> DETERMINE_TAGS -> SAVE_TAGS.
func registerCategorizationActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register categorization actions: factory is nil")
	}
	regs := []struct {
		name actions.Name
		ctor func() actions.Action
	}{
		{actions.DetermineCategory, func() actions.Action { return determineCategoryAction{} }},
		{actions.SaveCategory, func() actions.Action { return saveCategoryAction{} }},
		{actions.DetermineTags, func() actions.Action { return determineTagsAction{} }},
		{actions.SaveTags, func() actions.Action { return saveTagsAction{} }},
	}
	for _, r := range regs {
		if err := f.Register(r.name, r.ctor); err != nil {
			return fmt.Errorf("register categorization actions: %w", err)
		}
	}
	return nil
}

// registerPatternActions registers the standalone TRACK_PATTERN pipeline.
func registerPatternActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register pattern actions: factory is nil")
	}
	if err := f.Register(actions.TrackPattern, func() actions.Action { return trackPatternStandaloneAction{} }); err != nil {
		return fmt.Errorf("register pattern actions: %w", err)
	}
	return nil
}

// registerImageActions registers FETCH_IMAGE -> STORE_IMAGE ->
// CHECK_IMAGE_COMPLETION (SPEC_FULL.md supplement).
func registerImageActions(f *actions.Factory) error {
	if f == nil {
		return fmt.Errorf("register image actions: factory is nil")
	}
	regs := []struct {
		name actions.Name
		ctor func() actions.Action
	}{
		{actions.FetchImage, func() actions.Action { return fetchImageAction{} }},
		{actions.StoreImage, func() actions.Action { return storeImageAction{} }},
		{actions.CheckImageCompletion, func() actions.Action { return checkImageCompletionAction{} }},
	}
	for _, r := range regs {
		if err := f.Register(r.name, r.ctor); err != nil {
			return fmt.Errorf("register image actions: %w", err)
		}
	}
	return nil
}

// BuildNotePipeline returns a ready-to-run note worker pipeline.
func BuildNotePipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerNoteActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}

// BuildIngredientPipeline returns a ready-to-run ingredient worker pipeline.
func BuildIngredientPipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerIngredientActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}

// BuildInstructionPipeline returns a ready-to-run instruction worker pipeline.
func BuildInstructionPipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerInstructionActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}

// BuildCategorizationPipeline returns a ready-to-run categorization worker pipeline.
func BuildCategorizationPipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerCategorizationActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}

// BuildPatternPipeline returns a ready-to-run standalone pattern worker pipeline.
func BuildPatternPipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerPatternActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}

// BuildImagePipeline returns a ready-to-run image worker pipeline.
func BuildImagePipeline() ([]*actions.BaseAction, error) {
	f := actions.NewFactory()
	if err := registerImageActions(f); err != nil {
		return nil, err
	}
	return f.Pipeline(f.Order()...)
}
