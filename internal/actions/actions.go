// Copyright 2025 James Ross
// Package actions implements the C3 action framework: the Action
// contract, ActionContext, the dependencies bundle, the BaseAction
// template-method wrapper, and the per-worker-kind action registry.
package actions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/status"
)

// Name is the closed enum of action identities (§3).
type Name string

const (
	DetermineCategory          Name = "DETERMINE_CATEGORY"
	SaveCategory               Name = "SAVE_CATEGORY"
	DetermineTags              Name = "DETERMINE_TAGS"
	SaveTags                   Name = "SAVE_TAGS"
	CheckInstructionCompletion Name = "CHECK_INSTRUCTION_COMPLETION"
	CheckIngredientCompletion  Name = "CHECK_INGREDIENT_COMPLETION"
	TrackPattern               Name = "TRACK_PATTERN"
	ParseHTML                  Name = "PARSE_HTML"
	CleanHTML                  Name = "CLEAN_HTML"
	PersistNote                Name = "PERSIST_NOTE"
	FanoutLines                Name = "FANOUT_LINES"
	ParseIngredientLine        Name = "PARSE_INGREDIENT_LINE"
	SaveIngredientLine         Name = "SAVE_INGREDIENT_LINE"
	FormatInstruction          Name = "FORMAT_INSTRUCTION"
	SaveInstruction            Name = "SAVE_INSTRUCTION"
	ScheduleCategorization     Name = "SCHEDULE_CATEGORIZATION"
	FetchImage                 Name = "FETCH_IMAGE"
	StoreImage                 Name = "STORE_IMAGE"
	CheckImageCompletion       Name = "CHECK_IMAGE_COMPLETION"
)

// Context carries per-execution metadata into every action (§3).
type Context struct {
	JobID         string
	AttemptNumber int
	RetryCount    int
	QueueName     string
	WorkerName    string
	StartTime     time.Time
	Operation     string
}

// Deps is the dependency bundle injected into every action in a given
// worker's pipeline; created once per worker and shared across jobs.
type Deps struct {
	Logger             *zap.Logger
	StatusBroadcaster  status.Broadcaster
	Services           map[string]any
	Extra              any // stage-specific repositories/services
}

// Action is a single named step in a pipeline.
type Action interface {
	Name() Name
	ValidateInput(payload any) error
	Execute(ctx context.Context, payload any, deps Deps, actx Context) (any, error)
}

// BroadcastsInline marks actions whose contract requires broadcaster
// errors to propagate instead of being swallowed by BaseAction (§4.3's
// documented exception, e.g. determine-tags).
type BroadcastsInline interface {
	BroadcastsInline() bool
}

// BaseAction wraps a concrete Action with validate -> (optional start
// event) -> execute -> (optional completion event), matching §4.3's
// template method. Status-broadcaster errors at the start/completion
// hooks are swallowed (log-only) unless the wrapped action declares
// BroadcastsInline, in which case this wrapper emits no hook events at
// all and leaves broadcasting to the action itself.
type BaseAction struct {
	Inner Action
}

func NewBaseAction(inner Action) *BaseAction {
	return &BaseAction{Inner: inner}
}

func (b *BaseAction) Name() Name { return b.Inner.Name() }

func (b *BaseAction) Execute(ctx context.Context, payload any, deps Deps, actx Context) (any, error) {
	if err := b.Inner.ValidateInput(payload); err != nil {
		return nil, fmt.Errorf("validate %s: %w", b.Inner.Name(), err)
	}

	inline := false
	if bi, ok := b.Inner.(BroadcastsInline); ok {
		inline = bi.BroadcastsInline()
	}

	if !inline && deps.StatusBroadcaster != nil {
		b.emit(ctx, deps, actx, status.Processing, fmt.Sprintf("starting %s", b.Inner.Name()))
	}

	result, err := b.Inner.Execute(ctx, payload, deps, actx)
	if err != nil {
		return nil, err
	}

	if !inline && deps.StatusBroadcaster != nil {
		b.emit(ctx, deps, actx, status.Completed, fmt.Sprintf("completed %s", b.Inner.Name()))
	}

	return result, nil
}

func (b *BaseAction) emit(ctx context.Context, deps Deps, actx Context, phase status.Phase, msg string) {
	_, err := deps.StatusBroadcaster.AddStatusEventAndBroadcast(ctx, status.Event{
		ImportID: actx.Operation,
		Status:   phase,
		Message:  msg,
		Context:  string(b.Inner.Name()),
	})
	if err != nil && deps.Logger != nil {
		// Observability must never kill the pipeline: swallow at this
		// boundary and log only (§4.3 step 2/4).
		deps.Logger.Warn("status broadcast failed",
			zap.String("action", string(b.Inner.Name())),
			zap.Error(err),
		)
	}
}

// Factory is a registry of action constructors keyed by Name.
type Factory struct {
	constructors map[Name]func() Action
	order        []Name
}

func NewFactory() *Factory {
	return &Factory{constructors: make(map[Name]func() Action)}
}

// Register adds a constructor under name. Registration order is
// preserved and determines pipeline composition order (§4.3).
func (f *Factory) Register(name Name, ctor func() Action) error {
	if f == nil {
		return fmt.Errorf("factory is nil")
	}
	if ctor == nil {
		return fmt.Errorf("constructor for %s is nil", name)
	}
	if _, exists := f.constructors[name]; !exists {
		f.order = append(f.order, name)
	}
	f.constructors[name] = ctor
	return nil
}

// Create instantiates the action registered under name.
func (f *Factory) Create(name Name) (Action, error) {
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("no action registered for %s", name)
	}
	return ctor(), nil
}

// Order returns the registration order, which pipelines use to compose
// their action sequence deterministically.
func (f *Factory) Order() []Name {
	out := make([]Name, len(f.order))
	copy(out, f.order)
	return out
}

// Pipeline builds the ordered list of BaseAction-wrapped actions for
// the given names, in the order given (not registration order) so
// callers can express §4.11's explicit stage sequences.
func (f *Factory) Pipeline(names ...Name) ([]*BaseAction, error) {
	out := make([]*BaseAction, 0, len(names))
	for _, n := range names {
		a, err := f.Create(n)
		if err != nil {
			return nil, err
		}
		out = append(out, NewBaseAction(a))
	}
	return out, nil
}
