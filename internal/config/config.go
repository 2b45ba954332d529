// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// StagingPath is the root directory under which per-run evidence
	// directories (<staging_path>/<run_id>/matched.parquet) are written.
	StagingPath string `env:"STAGING_PATH" envDefault:"/var/lib/kalla/staging"`

	// MaxConcurrentJobs bounds the number of jobs executing at once (the
	// semaphore of §5).
	MaxConcurrentJobs int `env:"MAX_CONCURRENT_JOBS" envDefault:"4"`
	// JobQueueCapacity is the size of the bounded job-submission channel.
	JobQueueCapacity int `env:"JOB_QUEUE_CAPACITY" envDefault:"64"`
	// SourcePartitions is the num_partitions passed to C3 when registering
	// each job source, independent of job concurrency.
	SourcePartitions int `env:"SOURCE_PARTITIONS" envDefault:"4"`

	// ClusterSchedulerAddr is the co-located scheduler address the job
	// runner dials when constructing a cluster-mode engine, e.g.
	// "localhost:9443".
	ClusterSchedulerAddr string        `env:"CLUSTER_SCHEDULER_ADDR" envDefault:"localhost:9443"`
	ClusterProbeTimeout  time.Duration `env:"CLUSTER_PROBE_TIMEOUT" envDefault:"10s"`
	// ForceSelectStarRewrite applies the SELECT-* workaround of §4.4 Stage 4
	// in local mode as well; cluster mode always applies it.
	ForceSelectStarRewrite bool `env:"FORCE_SELECT_STAR_REWRITE" envDefault:"false"`

	// KallaExecutorListenAddr is the address the executor daemon's Arrow
	// Flight server binds to.
	KallaExecutorListenAddr string `env:"KALLA_EXECUTOR_LISTEN_ADDR" envDefault:"0.0.0.0:9443"`

	// Object-store credentials (C3 s3:// connector, C1 object-store scan).
	ObjectStoreRegion    string `env:"REGION" envDefault:"us-east-1"`
	ObjectStoreAccessKey string `env:"ACCESS_KEY"`
	ObjectStoreSecretKey string `env:"SECRET_KEY"`
	ObjectStoreEndpoint  string `env:"ENDPOINT_URL"`
	ObjectStoreAllowHTTP bool   `env:"ALLOW_HTTP" envDefault:"false"`

	// RecipeGenAPIKey gates the natural-language recipe generator front-end.
	RecipeGenAPIKey  string `env:"RECIPEGEN_API_KEY"`
	RecipeGenBaseURL string `env:"RECIPEGEN_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	RecipeGenModel   string `env:"RECIPEGEN_MODEL" envDefault:"meta-llama/llama-3.1-8b-instruct:free"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"kalla"`

	CORSAllowOrigins     string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin      int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout      time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout     time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout      time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// StuckJobMaxProcessingAge bounds how long a job may sit "processing"
	// before the sweeper marks it failed.
	StuckJobMaxProcessingAge time.Duration `env:"STUCK_JOB_MAX_PROCESSING_AGE" envDefault:"15m"`
	StuckJobSweepInterval    time.Duration `env:"STUCK_JOB_SWEEP_INTERVAL" envDefault:"1m"`

	// Callback delivery (§4.4 Stage 8).
	CallbackConnectTimeout time.Duration `env:"CALLBACK_CONNECT_TIMEOUT" envDefault:"5s"`
	CallbackTotalTimeout   time.Duration `env:"CALLBACK_TOTAL_TIMEOUT" envDefault:"10s"`
	CallbackMaxRetries     int           `env:"CALLBACK_MAX_RETRIES" envDefault:"3"`
	CallbackInitialDelay   time.Duration `env:"CALLBACK_INITIAL_DELAY" envDefault:"500ms"`
	CallbackMaxDelay       time.Duration `env:"CALLBACK_MAX_DELAY" envDefault:"2s"`
	CallbackMultiplier     float64       `env:"CALLBACK_MULTIPLIER" envDefault:"2.0"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// RecipeGenEnabled reports whether the recipe-generator front-end has a
// usable API key configured.
func (c Config) RecipeGenEnabled() bool { return c.RecipeGenAPIKey != "" }
