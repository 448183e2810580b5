// Copyright 2025 James Ross
// workers.go builds one worker.Worker per pipeline stage, wiring each
// stage's action pipeline, payload validator, and queue/processing-list
// names from config (§4.4, §4.11).
package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/config"
	"github.com/awehrman/peas-sub008/internal/errclass"
	"github.com/awehrman/peas-sub008/internal/health"
	"github.com/awehrman/peas-sub008/internal/pipelines"
	"github.com/awehrman/peas-sub008/internal/status"
	"github.com/awehrman/peas-sub008/internal/worker"
)

type stageSpec struct {
	name          string
	queueName     string
	workerKind    string
	buildPipeline func() ([]*actions.BaseAction, error)
	validator     worker.PayloadValidator
}

// buildWorkers constructs every stage's Worker. A build failure for one
// stage (e.g. a pipeline registration error) aborts the whole process —
// a partially-wired worker fleet is worse than a clear startup failure.
func buildWorkers(cfg *config.Config, brk broker.Broker, monitor *health.Monitor, logger *zap.Logger, broadcaster status.Broadcaster, deps *pipelines.Deps) (map[string]*worker.Worker, error) {
	specs := []stageSpec{
		{"note", cfg.Worker.Queues.Note, "note", pipelines.BuildNotePipeline, pipelines.NoteValidator{}},
		{"ingredient", cfg.Worker.Queues.Ingredient, "ingredient", pipelines.BuildIngredientPipeline, pipelines.IngredientValidator{}},
		{"instruction", cfg.Worker.Queues.Instruction, "instruction", pipelines.BuildInstructionPipeline, pipelines.InstructionValidator{}},
		{"categorization", cfg.Worker.Queues.Categorization, "categorization", pipelines.BuildCategorizationPipeline, pipelines.CategorizationValidator{}},
		{"pattern", cfg.Worker.Queues.Pattern, "pattern", pipelines.BuildPatternPipeline, pipelines.PatternValidator{}},
		{"image", cfg.Worker.Queues.Image, "image", pipelines.BuildImagePipeline, pipelines.ImageValidator{}},
	}

	retryPolicy := errclass.RetryPolicy{
		MaxRetries:        cfg.Worker.MaxRetries,
		BackoffMs:         cfg.Worker.Backoff.Base.Milliseconds(),
		BackoffMultiplier: 2,
		MaxBackoffMs:      cfg.Worker.Backoff.Max.Milliseconds(),
	}

	workers := make(map[string]*worker.Worker, len(specs))
	for _, s := range specs {
		pipeline, err := s.buildPipeline()
		if err != nil {
			return nil, fmt.Errorf("build %s pipeline: %w", s.name, err)
		}
		workers[s.name] = &worker.Worker{
			QueueName:      s.queueName,
			ProcessingList: fmt.Sprintf(cfg.Worker.ProcessingListPattern, s.queueName),
			Concurrency:    cfg.Worker.Count,
			RetryPolicy:    retryPolicy,
			Broker:         brk,
			Health:         monitor,
			Monitor:        monitor,
			Logger:         logger.With(zap.String("stage", s.name)),
			Deps: actions.Deps{
				Logger:            logger,
				StatusBroadcaster: broadcaster,
				Extra:             deps,
			},
			Pipeline:       pipeline,
			Validator:      s.validator,
			WorkerKind:     s.workerKind,
			DequeueTimeout: cfg.Worker.BRPopLPushTimeout,
		}
	}
	return workers, nil
}
