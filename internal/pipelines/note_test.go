// Copyright 2025 James Ross
package pipelines

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/completion"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/repository"
)

// countingBroker implements broker.Broker, recording only which queue
// names Enqueue was called with.
type countingBroker struct {
	queues []string
}

func (b *countingBroker) Enqueue(ctx context.Context, queueName string, payload any, opts broker.EnqueueOptions) (queue.Job, error) {
	b.queues = append(b.queues, queueName)
	return queue.Job{QueueName: queueName}, nil
}
func (b *countingBroker) Dequeue(ctx context.Context, queueName, processingList string, timeout time.Duration) (queue.Job, bool, error) {
	return queue.Job{}, false, nil
}
func (b *countingBroker) Ack(ctx context.Context, processingList string, job queue.Job) error {
	return nil
}
func (b *countingBroker) Nack(ctx context.Context, processingList string, job queue.Job, retryAfter time.Duration) error {
	return nil
}
func (b *countingBroker) Requeue(ctx context.Context, queueName string, job queue.Job) error {
	return nil
}
func (b *countingBroker) DeadLetter(ctx context.Context, deadLetterList string, job queue.Job) error {
	return nil
}
func (b *countingBroker) Length(ctx context.Context, queueName string) (int64, error) { return 0, nil }

func newNoteDeps(b broker.Broker) *Deps {
	return &Deps{
		Repo:              repository.NewInMemory(),
		Completion:        completion.New(nil),
		IngredientTracker: completion.NewIngredientTracker(),
		Broker:            b,
		CleanHTML: func(raw string) (string, string, error) {
			return "Ingredients\n2 cups flour\n\nInstructions\nMix well", "Stew", nil
		},
	}
}

func runPipeline(t *testing.T, pipeline []*actions.BaseAction, payload any, deps actions.Deps) any {
	t.Helper()
	var result any = payload
	for _, a := range pipeline {
		out, err := a.Execute(context.Background(), result, deps, actions.Context{Operation: "import-1"})
		require.NoError(t, err, "%s failed", a.Name())
		result = out
	}
	return result
}

func TestNotePipelineCleanParsePersistFanout(t *testing.T) {
	fb := &countingBroker{}
	d := newNoteDeps(fb)

	pipeline, err := BuildNotePipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.NotePayload{ImportID: "import-1", RawHTML: "<html>raw</html>"})

	result := runPipeline(t, pipeline, json.RawMessage(rawPayload), deps)
	np := result.(*queue.NotePayload)

	require.NotEmpty(t, np.NoteID, "expected persist_note to assign a noteId")
	require.Len(t, np.Ingredients, 1, "expected one parsed ingredient line")
	require.Equal(t, "2 cups flour", np.Ingredients[0])
	require.Len(t, np.Instructions, 1, "expected one parsed instruction line")
	require.Len(t, fb.queues, 2, "expected fanout to enqueue 1 ingredient + 1 instruction job")
}

func TestNotePipelineRejectsEmptyRawHTML(t *testing.T) {
	fb := &countingBroker{}
	d := newNoteDeps(fb)
	pipeline, err := BuildNotePipeline()
	require.NoError(t, err)
	deps := actions.Deps{Logger: zap.NewNop(), Extra: d}

	rawPayload, _ := json.Marshal(queue.NotePayload{ImportID: "import-1", RawHTML: "   "})
	_, err = pipeline[0].Execute(context.Background(), json.RawMessage(rawPayload), deps, actions.Context{})
	require.Error(t, err, "expected clean_html to reject blank rawHtml")
}
