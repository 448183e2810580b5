// Copyright 2025 James Ross
// Package pattern implements the C7 pattern tracker: an upsert keyed on
// the ordered ruleId sequence, with occurrence counting, optional
// ingredient-line linking, and a non-throwing bounded-retry contract
// (§4.7).
package pattern

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Pattern is the durable entity C7 owns (§3).
type Pattern struct {
	PatternID       string
	RuleIDs         []string
	ExampleLine     string
	OccurrenceCount int
}

// key is the primary-key identity: the exact ordered ruleId sequence.
func key(ruleIDs []string) string {
	return strings.Join(ruleIDs, "\x1f")
}

// Store is the persistence contract TrackPattern relies on; concrete
// adapters live in internal/repository. Upsert must be transactional
// (§5, §6.3).
type Store interface {
	UpsertPattern(ctx context.Context, ruleIDs []string, exampleLine string) (Pattern, error)
	LinkIngredientLine(ctx context.Context, ingredientLineID, patternID string) error
}

// TrackRequest mirrors trackPattern's input shape (§4.7).
type TrackRequest struct {
	JobID        string
	PatternRules []string
	ExampleLine  string
	Metadata     map[string]any
}

// TrackResult is the input echoed back with metadata populated (§4.7).
type TrackResult struct {
	Metadata map[string]any
}

const (
	maxRetries = 3
	retryDelay = 20 * time.Millisecond
)

// isRetryable reports whether err looks like a unique-constraint
// violation or transaction-abort error worth retrying (§4.7). Concrete
// repository adapters are expected to return errors whose message
// surfaces these substrings; a generic message match keeps this package
// decoupled from any one driver's error types.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "conflict") || strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "deadlock") || strings.Contains(msg, "aborted")
}

// TrackPattern runs the atomic upsert described in §4.7. An empty
// PatternRules is a no-op that returns the input unchanged. Persistent
// failures are recorded into metadata rather than thrown, per the
// explicit "pattern-tracker errors are recorded but never propagated"
// design choice (§7).
func TrackPattern(ctx context.Context, store Store, req TrackRequest, logger *zap.Logger) TrackResult {
	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	if len(req.PatternRules) == 0 {
		return TrackResult{Metadata: metadata}
	}

	var (
		p   Pattern
		err error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		p, err = store.UpsertPattern(ctx, req.PatternRules, req.ExampleLine)
		if err == nil {
			break
		}
		if attempt == maxRetries || !isRetryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(retryDelay):
			continue
		}
		break
	}

	if err != nil {
		metadata["error"] = err.Error()
		metadata["errorTimestamp"] = time.Now().UTC()
		if logger != nil {
			logger.Warn("pattern upsert failed persistently", zap.String("jobId", req.JobID), zap.Error(err))
		}
		return TrackResult{Metadata: metadata}
	}

	metadata["patternId"] = p.PatternID
	metadata["trackedAt"] = time.Now().UTC()

	linked := false
	if lineID, ok := metadata["ingredientLineId"].(string); ok && lineID != "" {
		if linkErr := store.LinkIngredientLine(ctx, lineID, p.PatternID); linkErr != nil {
			if logger != nil {
				logger.Warn("failed to link pattern to ingredient line", zap.String("patternId", p.PatternID), zap.Error(linkErr))
			}
		} else {
			linked = true
		}
	}
	metadata["linkedToIngredientLine"] = linked

	return TrackResult{Metadata: metadata}
}
