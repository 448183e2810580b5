// Copyright 2025 James Ross
// Package cache implements the C8 TTL cache: advisory, content-keyed
// storage for file-processing and action results (§4.8). Large values
// are transparently zstd-compressed above a configurable threshold,
// grounded on the teacher's zstd compressor for the deduplication
// subsystem.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/robfig/cron/v3"
)

// Entry is the stored shape per §3: key, value, expiresAt.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
	packed    bool
}

// Cache is a TTL, content-fingerprint-keyed cache. All failures are
// swallowed at call sites per §4.8 — this type itself never panics, and
// its exported methods only ever return errors the caller may ignore.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry

	compressMinSize int
	encoder         *zstd.Encoder
	decoder         *zstd.Decoder

	sweeper *cron.Cron
	ready   bool
}

// New constructs a Cache. compressMinSize is the byte threshold above
// which Set transparently compresses the value.
func New(compressMinSize int) (*Cache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &Cache{
		entries:         make(map[string]Entry),
		compressMinSize: compressMinSize,
		encoder:         enc,
		decoder:         dec,
		ready:           true,
	}, nil
}

// IsReady reports whether the cache is usable (§4.8).
func (c *Cache) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Set stores value under key with the given ttl, compressing it first
// if it exceeds compressMinSize. Errors are advisory only; callers are
// expected to ignore them per §4.8/§9.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) error {
	packed := false
	stored := value
	if c.compressMinSize > 0 && len(value) >= c.compressMinSize {
		stored = c.encoder.EncodeAll(value, nil)
		packed = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{
		Key:       key,
		Value:     stored,
		ExpiresAt: time.Now().Add(ttl),
		packed:    packed,
	}
	return nil
}

// Get returns the decompressed value and true if present and unexpired.
// A lazily-evicted expired entry is removed on this read (§4.8).
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	if !entry.packed {
		return entry.Value, true
	}
	raw, err := c.decoder.DecodeAll(entry.Value, nil)
	if err != nil {
		// Advisory cache: a corrupt compressed entry is a miss, not an error.
		return nil, false
	}
	return raw, true
}

// sweep drops every expired entry; invoked periodically by StartSweeper.
func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.ExpiresAt) {
			delete(c.entries, k)
		}
	}
}

// StartSweeper schedules a periodic eviction sweep using a cron spec
// (e.g. "@every 1m"), complementing the lazy eviction Get performs.
func (c *Cache) StartSweeper(spec string) error {
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(spec, c.sweep); err != nil {
		return fmt.Errorf("schedule cache sweep: %w", err)
	}
	c.mu.Lock()
	c.sweeper = sweeper
	c.mu.Unlock()
	sweeper.Start()
	return nil
}

// Stop halts the periodic sweeper, if running.
func (c *Cache) Stop(ctx context.Context) {
	c.mu.Lock()
	sweeper := c.sweeper
	c.mu.Unlock()
	if sweeper == nil {
		return
	}
	select {
	case <-sweeper.Stop().Done():
	case <-ctx.Done():
	}
}

// KeyGenerator produces deterministic content fingerprints (§4.8).
type KeyGenerator struct{}

// FileProcessing builds a fingerprint key from a file path, its size,
// and a content sample, matching the "content-addressed inputs"
// requirement for CacheKeyGenerator.fileProcessing (§4.8).
func (KeyGenerator) FileProcessing(path string, size int64, sample []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte(fmt.Sprintf(":%d:", size)))
	h.Write(sample)
	return "fileproc:" + hex.EncodeToString(h.Sum(nil))
}

// ActionResult builds a fingerprint key for caching one action's output
// keyed by action name and its input payload's content.
func (KeyGenerator) ActionResult(actionName string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(actionName))
	h.Write(payload)
	return "action:" + actionName + ":" + hex.EncodeToString(h.Sum(nil))
}
