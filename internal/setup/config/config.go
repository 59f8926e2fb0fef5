// Package config loads and validates the application's layered TOML
// configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// RepositoryVersion tags the config schema for error messages.
const RepositoryVersion = "v1.0.0-beta.1"

// Current version of each config section.
const (
	CurrentCommonVersion = 1
	CurrentEngineVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Engine EngineConfig
}

// CommonConfig contains ambient configuration shared by every binary.
type CommonConfig struct {
	Version        int            `koanf:"version"`
	Debug          Debug          `koanf:"debug"`
	CircuitBreaker CircuitBreaker `koanf:"circuit_breaker"`
	Retry          Retry          `koanf:"retry"`
	PostgreSQL     PostgreSQL     `koanf:"postgresql"`
	Redis          Redis          `koanf:"redis"`
	Vision         OpenAI         `koanf:"vision"`
	Critique       OpenAI         `koanf:"critique"`
	Uptrace        Uptrace        `koanf:"uptrace"`
	Loki           Loki           `koanf:"loki"`
	ObjectStore    ObjectStore    `koanf:"object_store"`
	ImageGen       ImageGen       `koanf:"image_gen"`
	Feedback       FeedbackConfig `koanf:"feedback"`
	HTTPAPI        HTTPAPI        `koanf:"httpapi"`
}

// HTTPAPI configures the inbound REST/SSE server cmd/httpapi serves.
type HTTPAPI struct {
	// Port the server listens on.
	Port int `koanf:"port"`
	// ReadTimeoutSec/WriteTimeoutSec/IdleTimeoutSec/ReadHeaderTimeoutSec
	// mirror the debug pprof server's http.Server timeout conventions.
	ReadTimeoutSec       int `koanf:"read_timeout_sec"`
	WriteTimeoutSec      int `koanf:"write_timeout_sec"`
	IdleTimeoutSec       int `koanf:"idle_timeout_sec"`
	ReadHeaderTimeoutSec int `koanf:"read_header_timeout_sec"`
	// ShutdownTimeoutSec bounds graceful drain on SIGTERM/SIGINT.
	ShutdownTimeoutSec int `koanf:"shutdown_timeout_sec"`
}

// EngineConfig contains the generation-engine tunables. Only Analysis
// (except PreviewWindow) and Generation's OvergenBufferPct, ImagesPerPrompt
// and MaxConcurrentPrompts are read, by setup.InitializeApp and
// extract.NewExtractor. The Prompt, Bandit, RLHF and Selector sections,
// both PreviewWindow fields and UploadMaxRetries are loaded but not read by
// any package; C5, C6, C7 and C9 use fixed values in their own code.
type EngineConfig struct {
	Version int `koanf:"version"`

	// Analysis controls C2/C3 (Descriptor Extractor / Ingestion Pipeline).
	Analysis AnalysisConfig `koanf:"analysis"`
	// Prompt is the C7 (Prompt Builder) section; not read.
	Prompt PromptConfig `koanf:"prompt"`
	// Generation controls C8 (Generation Orchestrator).
	Generation GenerationConfig `koanf:"generation"`
	// Bandit is the C5 (Bandit Store) section; not read.
	Bandit BanditConfig `koanf:"bandit"`
	// RLHF is the C6 (RLHF Weight Store) section; not read.
	RLHF RLHFConfig `koanf:"rlhf"`
	// Selector is the C9 (Validator & Selector) section; not read.
	Selector SelectorConfig `koanf:"selector"`
}

// AnalysisConfig configures descriptor extraction and ingestion.
type AnalysisConfig struct {
	// ANALYSIS_CONCURRENCY: bounded parallelism for C2 calls within C3 (3-5).
	Concurrency int `koanf:"concurrency"`
	// CONFIDENCE_RETRY: Θ_low below which C2 retries extraction.
	ConfidenceRetryThreshold float64 `koanf:"confidence_retry_threshold"`
	// CompletenessRetryThreshold: Θ_low for completeness_percentage.
	CompletenessRetryThreshold float64 `koanf:"completeness_retry_threshold"`
	// MaxRetries: attempts per image before marking it failed.
	MaxRetries int `koanf:"max_retries"`
	// PreviewWindow: N most recent image URLs kept in the progress stream.
	PreviewWindow int `koanf:"preview_window"`
	// PromptVersion tags extracted descriptors with the prompt revision used.
	PromptVersion string `koanf:"prompt_version"`
}

// PromptConfig configures the prompt builder's word budget and blending.
type PromptConfig struct {
	// PROMPT_MAX_WORDS: hard word budget (default 50).
	MaxWords int `koanf:"max_words"`
	// SIGNATURE_THRESHOLD: θ_sig for signature-piece weight boost.
	SignatureThreshold float64 `koanf:"signature_threshold"`
}

// GenerationConfig configures the generation orchestrator's fan-out.
type GenerationConfig struct {
	// OVERGEN_BUFFER_PCT: b, over-generation buffer percentage (default 20).
	OvergenBufferPct float64 `koanf:"overgen_buffer_pct"`
	// IMAGES_PER_PROMPT: k, paired outputs per PromptSpec (default 2).
	ImagesPerPrompt int `koanf:"images_per_prompt"`
	// MaxConcurrentPrompts: P_prompts fan-out width.
	MaxConcurrentPrompts int `koanf:"max_concurrent_prompts"`
	// PreviewWindow: N most recent preview URLs kept in the progress stream.
	PreviewWindow int `koanf:"preview_window"`
	// UploadMaxRetries: bounded retry count for object-store uploads.
	UploadMaxRetries int `koanf:"upload_max_retries"`
}

// BanditConfig configures the Thompson-Sampling bandit store.
type BanditConfig struct {
	// BANDIT_FLOOR: prior α,β floor (default 1).
	PriorFloor float64 `koanf:"prior_floor"`
}

// RLHFConfig configures the RLHF token weight store.
type RLHFConfig struct {
	// RLHF_LEARNING_RATE: η (default 0.1).
	LearningRate float64 `koanf:"learning_rate"`
	// RLHF_EPSILON: ε (default 0.15).
	Epsilon float64 `koanf:"epsilon"`
}

// SelectorConfig configures quality scoring and coverage analysis.
type SelectorConfig struct {
	// QualityFloor: minimum per-image quality score to survive filtering (60).
	QualityFloor float64 `koanf:"quality_floor"`
	// DiversityAlpha: α in the DPP objective (0.6).
	DiversityAlpha float64 `koanf:"diversity_alpha"`
	// COVERAGE_TARGET_PCT: default coverage target (80).
	CoverageTargetPct float64 `koanf:"coverage_target_pct"`
}

// Debug contains debug-related configuration.
type Debug struct {
	LogLevel      string `koanf:"log_level"`
	MaxLogsToKeep int    `koanf:"max_logs_to_keep"`
	MaxLogLines   int    `koanf:"max_log_lines"`
	EnablePprof   bool   `koanf:"enable_pprof"`
	PprofPort     int    `koanf:"pprof_port"`
}

// CircuitBreaker contains circuit breaker configuration.
type CircuitBreaker struct {
	MaxFailures      uint32 `koanf:"max_failures"`
	FailureThreshold int    `koanf:"failure_threshold"`
	RecoveryTimeout  int    `koanf:"recovery_timeout"`
}

// Retry contains retry configuration.
type Retry struct {
	MaxRetries uint64 `koanf:"max_retries"`
	Delay      int    `koanf:"delay"`
	MaxDelay   int    `koanf:"max_delay"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Password     string `koanf:"password"`
	DBName       string `koanf:"db_name"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	MaxLifetime  int    `koanf:"max_lifetime"`
	MaxIdleTime  int    `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// OpenAI contains configuration for one OpenAI-compatible model endpoint
// (the vision-LLM used by C2, or the critique-LLM used by C10).
type OpenAI struct {
	// BaseURL of the OpenAI-compatible gateway.
	BaseURL string `koanf:"base_url"`
	// Username/Password form the Basic-Auth credentials the gateway expects.
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Model is the logical model name requests are issued against.
	Model string `koanf:"model"`
	// FallbackModel is tried if Model's response is content-blocked.
	FallbackModel string `koanf:"fallback_model"`
	// MaxConcurrent bounds in-flight requests to this endpoint.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// ModelMappings translates logical model names to provider model IDs.
	ModelMappings map[string]string `koanf:"model_mappings"`
	// ModelPricing is used for usage-cost tracking, keyed by logical model name.
	ModelPricing map[string]ModelPricing `koanf:"model_pricing"`
}

// ModelPricing holds per-million-token pricing for a model.
type ModelPricing struct {
	Input      float64 `koanf:"input"`
	Completion float64 `koanf:"completion"`
	Reasoning  float64 `koanf:"reasoning"`
}

// Loki contains configuration for shipping logs to a Loki instance.
type Loki struct {
	Enabled        bool              `koanf:"enabled"`
	URL            string            `koanf:"url"`
	Labels         map[string]string `koanf:"labels"`
	Username       string            `koanf:"username"`
	Password       string            `koanf:"password"`
	BatchMaxSize   int               `koanf:"batch_max_size"`
	BatchMaxWaitMS int               `koanf:"batch_max_wait_ms"`
}

// ObjectStore configures the outbound blob store C3/C8 persist images to.
type ObjectStore struct {
	// BaseURL is the CDN base every Put-returned URL is resolved against.
	BaseURL string `koanf:"base_url"`
	// Bucket is the backing bucket/container name.
	Bucket string `koanf:"bucket"`
}

// ImageGen configures the outbound image-generation adapter C8 fans out
// across.
type ImageGen struct {
	BaseURL       string `koanf:"base_url"`
	APIKey        string `koanf:"api_key"`
	Model         string `koanf:"model"`
	MaxConcurrent int64  `koanf:"max_concurrent"`
}

// FeedbackConfig configures C10's worker pool.
type FeedbackConfig struct {
	// WorkerCount: number of goroutines draining the feedback queue.
	WorkerCount int `koanf:"worker_count"`
	// QueueDepth: bounded channel capacity before Submit starts dropping.
	QueueDepth int `koanf:"queue_depth"`
}

// Uptrace contains Uptrace telemetry configuration.
type Uptrace struct {
	DSN               string `koanf:"dsn"`
	ServiceName       string `koanf:"service_name"`
	ServiceVersion    string `koanf:"service_version"`
	DeployEnvironment string `koanf:"deploy_environment"`
}

// LoadConfig loads the configuration from the common and engine TOML files.
// Returns the config along with the directory it was loaded from.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".styleengine",
		homeDir + "/.styleengine/config",
		"/etc/styleengine/config",
		"/app/config",
		"/config",
		".",
	}

	var usedConfigPath string

	configFiles := []string{"common", "engine"}
	for _, configName := range configFiles {
		configLoaded := false
		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true
				if usedConfigPath == "" {
					usedConfigPath = path
				}
				break
			}
		}
		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", cfg.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}
	if err := checkConfigVersion("engine", cfg.Engine.Version, CurrentEngineVersion); err != nil {
		return nil, "", err
	}

	return &cfg, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}
	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/aureuma/styleengine/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}
	return nil
}
