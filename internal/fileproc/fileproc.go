// Copyright 2025 James Ross
// Package fileproc implements the C10 file processor: streams input
// files to a temp area with bounded concurrency and a per-file size
// limit, validates content, consults the cache for a fingerprint hit,
// and emits fileProcessed events before handing the note job to the
// broker (§4.10). Concurrency is bounded the same way the worker
// runtime bounds itself — a fixed pool of goroutines, not a generic
// worker-pool abstraction — and the rate limiter is
// golang.org/x/time/rate rather than the teacher's hand-rolled
// Redis INCR+EXPIRE limiter, since this runs ahead of any broker.
package fileproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/cache"
	"github.com/awehrman/peas-sub008/internal/queue"
)

// Status is the closed set of outcomes a fileProcessed event reports (§4.10).
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Event mirrors §4.10's fileProcessed event shape.
type Event struct {
	FilePath      string
	FileName      string
	Status        Status
	Size          int64
	ProcessingTime time.Duration
	ImportID      string
	ContentLength int
}

// EventSink receives one fileProcessed event per processed file.
type EventSink func(Event)

// Config configures one Processor instance.
type Config struct {
	TempDir         string
	MaxFileSizeMB   int64
	Concurrency     int
	RateLimitPerSec float64
	ValidateHTML    bool
}

var ErrShuttingDown = errors.New("fileproc: processor is shutting down")
var ErrFileTooLarge = errors.New("fileproc: file exceeds max size")
var ErrEmptyContent = errors.New("fileproc: file content is empty")
var ErrNotHTMLLike = errors.New("fileproc: content does not look like HTML")

// Processor streams files into notes. Each successfully validated file
// is enqueued onto the note queue as a queue.NotePayload.
type Processor struct {
	cfg       Config
	noteQueue string
	brk       broker.Broker
	ch        *cache.Cache
	keys      cache.KeyGenerator
	logger    *zap.Logger
	onEvent   EventSink

	limiter *rate.Limiter
	sem     chan struct{}
	tempDir string

	mu           sync.Mutex
	wg           sync.WaitGroup
	shuttingDown bool
}

// New creates the dedicated temp subdirectory this Processor owns and
// prepares its rate limiter and concurrency gate.
func New(cfg Config, noteQueue string, brk broker.Broker, ch *cache.Cache, logger *zap.Logger, onEvent EventSink) (*Processor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 50
	}
	root := cfg.TempDir
	if root == "" {
		root = os.TempDir()
	}
	tempDir := filepath.Join(root, "pipeline-fileproc-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create fileproc temp dir: %w", err)
	}

	limit := rate.Inf
	if cfg.RateLimitPerSec > 0 {
		limit = rate.Limit(cfg.RateLimitPerSec)
	}

	return &Processor{
		cfg:       cfg,
		noteQueue: noteQueue,
		brk:       brk,
		ch:        ch,
		logger:    logger,
		onEvent:   onEvent,
		limiter:   rate.NewLimiter(limit, max(cfg.Concurrency, 1)),
		sem:       make(chan struct{}, cfg.Concurrency),
		tempDir:   tempDir,
	}, nil
}

// ProcessFile streams one file: rate-limits, bounds concurrency,
// copies bytes to the owned temp directory, validates content, checks
// the cache for a fingerprint hit, and on a cache miss enqueues a note
// job. Always emits exactly one Event via onEvent.
func (p *Processor) ProcessFile(ctx context.Context, path, importID string) error {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return ErrShuttingDown
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	fileName := filepath.Base(path)

	status, contentLength, procErr := p.process(ctx, path, importID)

	p.emit(Event{
		FilePath:      path,
		FileName:      fileName,
		Status:        status,
		ProcessingTime: time.Since(start),
		ImportID:      importID,
		ContentLength: contentLength,
	})

	return procErr
}

func (p *Processor) process(ctx context.Context, path, importID string) (Status, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return StatusFailed, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	maxBytes := p.cfg.MaxFileSizeMB * 1024 * 1024
	if info.Size() > maxBytes {
		return StatusFailed, 0, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), maxBytes)
	}

	src, err := os.Open(path)
	if err != nil {
		return StatusFailed, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	destPath := filepath.Join(p.tempDir, filepath.Base(path)+"-"+uuid.NewString())
	dst, err := os.Create(destPath)
	if err != nil {
		return StatusFailed, 0, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.TeeReader(io.LimitReader(src, maxBytes+1), &buf))
	if err != nil {
		return StatusFailed, 0, fmt.Errorf("stream %s: %w", path, err)
	}
	if n > maxBytes {
		return StatusFailed, 0, fmt.Errorf("%w: %s exceeded limit while streaming", ErrFileTooLarge, path)
	}

	data := buf.Bytes()
	if len(data) == 0 {
		return StatusFailed, 0, ErrEmptyContent
	}
	if p.cfg.ValidateHTML && !looksLikeHTML(data) {
		return StatusFailed, len(data), ErrNotHTMLLike
	}

	if p.ch != nil {
		key := p.keys.FileProcessing(path, info.Size(), sample(data))
		if _, hit := p.ch.Get(key); hit {
			return StatusSkipped, len(data), nil
		}
		_ = p.ch.Set(key, []byte{1}, 24*time.Hour)
	}

	if p.brk != nil {
		payload := queue.NotePayload{ImportID: importID, RawHTML: string(data)}
		if _, err := p.brk.Enqueue(ctx, p.noteQueue, payload, broker.EnqueueOptions{Attempts: 3}); err != nil {
			return StatusFailed, len(data), fmt.Errorf("enqueue note job for %s: %w", path, err)
		}
	}

	return StatusSuccess, len(data), nil
}

func sample(data []byte) []byte {
	const maxSample = 4096
	if len(data) <= maxSample {
		return data
	}
	return data[:maxSample]
}

// looksLikeHTML is a permissive heuristic: a doctype, an html/body tag,
// or simply a leading '<' after trimming whitespace.
func looksLikeHTML(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false
	}
	lower := bytes.ToLower(trimmed)
	if bytes.Contains(lower, []byte("<!doctype html")) ||
		bytes.Contains(lower, []byte("<html")) ||
		bytes.Contains(lower, []byte("<body")) {
		return true
	}
	return trimmed[0] == '<'
}

func (p *Processor) emit(evt Event) {
	if p.onEvent != nil {
		p.onEvent(evt)
	}
}

// Shutdown awaits every in-flight ProcessFile call, rejects new ones,
// then removes the owned temp directory (§4.10).
func (p *Processor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.shuttingDown = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := os.RemoveAll(p.tempDir); err != nil {
		return fmt.Errorf("remove fileproc temp dir: %w", err)
	}
	return nil
}
