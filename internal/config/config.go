// Copyright 2025 James Ross
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Redis struct {
	Addr               string        `mapstructure:"addr"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	DB                 int           `mapstructure:"db"`
	PoolSizeMultiplier int           `mapstructure:"pool_size_multiplier"`
	MinIdleConns       int           `mapstructure:"min_idle_conns"`
	DialTimeout        time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
}

type Backoff struct {
	Base time.Duration `mapstructure:"base"`
	Max  time.Duration `mapstructure:"max"`
}

// Queues names every stage queue the pipeline enqueues jobs onto (§4.11).
type Queues struct {
	Note           string `mapstructure:"note"`
	Image          string `mapstructure:"image"`
	Ingredient     string `mapstructure:"ingredient"`
	Instruction    string `mapstructure:"instruction"`
	Categorization string `mapstructure:"categorization"`
	Pattern        string `mapstructure:"pattern"`
}

type Worker struct {
	Count                 int           `mapstructure:"count"`
	HeartbeatTTL          time.Duration `mapstructure:"heartbeat_ttl"`
	MaxRetries            int           `mapstructure:"max_retries"`
	Backoff               Backoff       `mapstructure:"backoff"`
	Queues                Queues        `mapstructure:"queues"`
	ProcessingListPattern string        `mapstructure:"processing_list_pattern"`
	HeartbeatKeyPattern   string        `mapstructure:"heartbeat_key_pattern"`
	DeadLetterList        string        `mapstructure:"dead_letter_list"`
	BRPopLPushTimeout     time.Duration `mapstructure:"brpoplpush_timeout"`
	BreakerPause          time.Duration `mapstructure:"breaker_pause"`
}

type CircuitBreaker struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	Window           time.Duration `mapstructure:"window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	MinSamples       int           `mapstructure:"min_samples"`
}

// Completion configures the C5 tracker's ingredient sub-tracker retries.
type Completion struct {
	IngredientCheckMaxRetries int           `mapstructure:"ingredient_check_max_retries"`
	IngredientCheckDelay      time.Duration `mapstructure:"ingredient_check_delay"`
	ImageCheckMaxRetries      int           `mapstructure:"image_check_max_retries"`
	ImageCheckDelay           time.Duration `mapstructure:"image_check_delay"`
}

// Pattern configures the C7 pattern-tracker upsert retry policy.
type Pattern struct {
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// Cache configures the C8 TTL cache manager.
type Cache struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	CompressMinSize int           `mapstructure:"compress_min_size"`
}

// Health configures the C9 system monitor's cache and cleanup windows.
type Health struct {
	CacheDuration    time.Duration `mapstructure:"cache_duration"`
	MetricRetention  time.Duration `mapstructure:"metric_retention"`
	MetricCap        int           `mapstructure:"metric_cap"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	RedisHost        string        `mapstructure:"redis_host"`
	QueueDegradedPct float64       `mapstructure:"queue_degraded_pct"`
	QueueUnhealthyPct float64      `mapstructure:"queue_unhealthy_pct"`
	JobDegradedPct   float64       `mapstructure:"job_degraded_pct"`
	JobUnhealthyPct  float64       `mapstructure:"job_unhealthy_pct"`
}

// FileProcessor configures C10.
type FileProcessor struct {
	TempDir         string  `mapstructure:"temp_dir"`
	MaxFileSizeMB   int64   `mapstructure:"max_file_size_mb"`
	Concurrency     int     `mapstructure:"concurrency"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	ValidateHTML    bool    `mapstructure:"validate_html"`
}

type TracingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Endpoint         string  `mapstructure:"endpoint"`
	Environment      string  `mapstructure:"environment"`
	SamplingStrategy string  `mapstructure:"sampling_strategy"`
	SamplingRate     float64 `mapstructure:"sampling_rate"`
}

type ObservabilityConfig struct {
	MetricsPort int           `mapstructure:"metrics_port"`
	LogLevel    string        `mapstructure:"log_level"`
	LogFile     string        `mapstructure:"log_file"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// Status configures the C2 broadcaster transport.
type Status struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

// Repository selects and configures the C6.3 repository adapter.
type Repository struct {
	Driver     string `mapstructure:"driver"` // "postgres" | "sqlite" | "memory"
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ImageStore configures the S3-backed image pipeline sink.
type ImageStore struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
	LocalDir string `mapstructure:"local_dir"`
}

type Config struct {
	Redis          Redis               `mapstructure:"redis"`
	Worker         Worker              `mapstructure:"worker"`
	CircuitBreaker CircuitBreaker      `mapstructure:"circuit_breaker"`
	Completion     Completion          `mapstructure:"completion"`
	Pattern        Pattern             `mapstructure:"pattern"`
	Cache          Cache               `mapstructure:"cache"`
	Health         Health              `mapstructure:"health"`
	FileProcessor  FileProcessor       `mapstructure:"file_processor"`
	Observability  ObservabilityConfig `mapstructure:"observability"`
	Status         Status              `mapstructure:"status"`
	Repository     Repository          `mapstructure:"repository"`
	ImageStore     ImageStore          `mapstructure:"image_store"`
}

func defaultConfig() *Config {
	return &Config{
		Redis: Redis{
			Addr:               "localhost:6379",
			PoolSizeMultiplier: 10,
			MinIdleConns:       5,
			DialTimeout:        5 * time.Second,
			ReadTimeout:        3 * time.Second,
			WriteTimeout:       3 * time.Second,
			MaxRetries:         3,
		},
		Worker: Worker{
			Count:        8,
			HeartbeatTTL: 30 * time.Second,
			MaxRetries:   3,
			Backoff:      Backoff{Base: 500 * time.Millisecond, Max: 10 * time.Second},
			// Plain queue names: the note pipeline's fanout and the
			// scheduler's ScheduleCategorizationJob enqueue onto these
			// literal names directly, so the defaults must match them.
			Queues: Queues{
				Note:           "note",
				Image:          "image",
				Ingredient:     "ingredient",
				Instruction:    "instruction",
				Categorization: "categorization",
				Pattern:        "pattern",
			},
			ProcessingListPattern: "pipeline:worker:%s:processing",
			HeartbeatKeyPattern:   "pipeline:heartbeat:worker:%s",
			DeadLetterList:        "pipeline:dead_letter",
			BRPopLPushTimeout:     1 * time.Second,
			BreakerPause:          100 * time.Millisecond,
		},
		CircuitBreaker: CircuitBreaker{
			FailureThreshold: 0.5,
			Window:           1 * time.Minute,
			CooldownPeriod:   30 * time.Second,
			MinSamples:       20,
		},
		Completion: Completion{
			IngredientCheckMaxRetries: 3,
			IngredientCheckDelay:      1 * time.Second,
			ImageCheckMaxRetries:      3,
			ImageCheckDelay:           1 * time.Second,
		},
		Pattern: Pattern{
			MaxRetries: 3,
			RetryDelay: 200 * time.Millisecond,
		},
		Cache: Cache{
			DefaultTTL:      10 * time.Minute,
			SweepInterval:   1 * time.Minute,
			CompressMinSize: 2048,
		},
		Health: Health{
			CacheDuration:     30 * time.Second,
			MetricRetention:   24 * time.Hour,
			MetricCap:         1000,
			CleanupInterval:   1 * time.Hour,
			QueueDegradedPct:  0.10,
			QueueUnhealthyPct: 0.25,
			JobDegradedPct:    0.05,
			JobUnhealthyPct:   0.15,
		},
		FileProcessor: FileProcessor{
			TempDir:         os.TempDir(),
			MaxFileSizeMB:   50,
			Concurrency:     4,
			RateLimitPerSec: 50,
			ValidateHTML:    true,
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
			Tracing:     TracingConfig{Enabled: false},
		},
		Status: Status{
			Subject: "pipeline.status",
		},
		Repository: Repository{
			Driver:     "memory",
			SQLitePath: "./pipeline.db",
		},
		ImageStore: ImageStore{
			Prefix:   "notes",
			LocalDir: "./data/images",
		},
	}
}

// Load reads configuration from a YAML file with env-var overrides, the
// same pattern the teacher's worker config uses.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	setDefaults(v, def)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("redis.addr", def.Redis.Addr)
	v.SetDefault("redis.pool_size_multiplier", def.Redis.PoolSizeMultiplier)
	v.SetDefault("redis.min_idle_conns", def.Redis.MinIdleConns)
	v.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)
	v.SetDefault("redis.max_retries", def.Redis.MaxRetries)

	v.SetDefault("worker.count", def.Worker.Count)
	v.SetDefault("worker.heartbeat_ttl", def.Worker.HeartbeatTTL)
	v.SetDefault("worker.max_retries", def.Worker.MaxRetries)
	v.SetDefault("worker.backoff.base", def.Worker.Backoff.Base)
	v.SetDefault("worker.backoff.max", def.Worker.Backoff.Max)
	v.SetDefault("worker.queues.note", def.Worker.Queues.Note)
	v.SetDefault("worker.queues.image", def.Worker.Queues.Image)
	v.SetDefault("worker.queues.ingredient", def.Worker.Queues.Ingredient)
	v.SetDefault("worker.queues.instruction", def.Worker.Queues.Instruction)
	v.SetDefault("worker.queues.categorization", def.Worker.Queues.Categorization)
	v.SetDefault("worker.queues.pattern", def.Worker.Queues.Pattern)
	v.SetDefault("worker.processing_list_pattern", def.Worker.ProcessingListPattern)
	v.SetDefault("worker.heartbeat_key_pattern", def.Worker.HeartbeatKeyPattern)
	v.SetDefault("worker.dead_letter_list", def.Worker.DeadLetterList)
	v.SetDefault("worker.brpoplpush_timeout", def.Worker.BRPopLPushTimeout)
	v.SetDefault("worker.breaker_pause", def.Worker.BreakerPause)

	v.SetDefault("circuit_breaker.failure_threshold", def.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.window", def.CircuitBreaker.Window)
	v.SetDefault("circuit_breaker.cooldown_period", def.CircuitBreaker.CooldownPeriod)
	v.SetDefault("circuit_breaker.min_samples", def.CircuitBreaker.MinSamples)

	v.SetDefault("completion.ingredient_check_max_retries", def.Completion.IngredientCheckMaxRetries)
	v.SetDefault("completion.ingredient_check_delay", def.Completion.IngredientCheckDelay)
	v.SetDefault("completion.image_check_max_retries", def.Completion.ImageCheckMaxRetries)
	v.SetDefault("completion.image_check_delay", def.Completion.ImageCheckDelay)

	v.SetDefault("pattern.max_retries", def.Pattern.MaxRetries)
	v.SetDefault("pattern.retry_delay", def.Pattern.RetryDelay)

	v.SetDefault("cache.default_ttl", def.Cache.DefaultTTL)
	v.SetDefault("cache.sweep_interval", def.Cache.SweepInterval)
	v.SetDefault("cache.compress_min_size", def.Cache.CompressMinSize)

	v.SetDefault("health.cache_duration", def.Health.CacheDuration)
	v.SetDefault("health.metric_retention", def.Health.MetricRetention)
	v.SetDefault("health.metric_cap", def.Health.MetricCap)
	v.SetDefault("health.cleanup_interval", def.Health.CleanupInterval)
	v.SetDefault("health.redis_host", def.Health.RedisHost)
	v.SetDefault("health.queue_degraded_pct", def.Health.QueueDegradedPct)
	v.SetDefault("health.queue_unhealthy_pct", def.Health.QueueUnhealthyPct)
	v.SetDefault("health.job_degraded_pct", def.Health.JobDegradedPct)
	v.SetDefault("health.job_unhealthy_pct", def.Health.JobUnhealthyPct)

	v.SetDefault("file_processor.temp_dir", def.FileProcessor.TempDir)
	v.SetDefault("file_processor.max_file_size_mb", def.FileProcessor.MaxFileSizeMB)
	v.SetDefault("file_processor.concurrency", def.FileProcessor.Concurrency)
	v.SetDefault("file_processor.rate_limit_per_sec", def.FileProcessor.RateLimitPerSec)
	v.SetDefault("file_processor.validate_html", def.FileProcessor.ValidateHTML)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)

	v.SetDefault("status.nats_url", def.Status.NATSURL)
	v.SetDefault("status.subject", def.Status.Subject)

	v.SetDefault("repository.driver", def.Repository.Driver)
	v.SetDefault("repository.sqlite_path", def.Repository.SQLitePath)

	v.SetDefault("image_store.prefix", def.ImageStore.Prefix)
	v.SetDefault("image_store.local_dir", def.ImageStore.LocalDir)
}

// Validate checks config constraints and returns an error on invalid settings.
func Validate(cfg *Config) error {
	if cfg.Worker.Count < 1 {
		return fmt.Errorf("worker.count must be >= 1")
	}
	if cfg.Worker.Queues.Note == "" || cfg.Worker.Queues.Ingredient == "" ||
		cfg.Worker.Queues.Instruction == "" || cfg.Worker.Queues.Categorization == "" ||
		cfg.Worker.Queues.Pattern == "" || cfg.Worker.Queues.Image == "" {
		return fmt.Errorf("worker.queues must name every stage queue")
	}
	if cfg.Worker.HeartbeatTTL < 5*time.Second {
		return fmt.Errorf("worker.heartbeat_ttl must be >= 5s")
	}
	if cfg.Worker.BRPopLPushTimeout <= 0 || cfg.Worker.BRPopLPushTimeout > cfg.Worker.HeartbeatTTL/2 {
		return fmt.Errorf("worker.brpoplpush_timeout must be >0 and <= heartbeat_ttl/2")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("observability.metrics_port must be 1..65535")
	}
	if cfg.Health.MetricCap <= 0 {
		return fmt.Errorf("health.metric_cap must be > 0")
	}
	switch cfg.Repository.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("repository.driver must be postgres|sqlite|memory, got %q", cfg.Repository.Driver)
	}
	return nil
}
