package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the agent orchestrator.
type Config struct {
	// Server configuration
	HTTPPort int    `env:"AGOR_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Agent loop configuration
	Agent AgentConfig

	// Model backends
	Model ModelConfig

	// Sandboxed code execution
	Sandbox SandboxConfig

	// Document retrieval
	Retrieval RetrievalConfig

	// Market data
	Market MarketConfig

	// Redis configuration
	Redis RedisConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// AgentConfig bounds the plan/execute/verify loop.
type AgentConfig struct {
	MaxIterations int           `env:"AGENT_MAX_ITERATIONS" envDefault:"3"`
	MaxPlanSteps  int           `env:"AGENT_MAX_PLAN_STEPS" envDefault:"10"`
	Concurrency   int           `env:"AGENT_STEP_CONCURRENCY" envDefault:"4"`
	StepTimeout   time.Duration `env:"AGENT_STEP_TIMEOUT" envDefault:"120s"`
	RunBudget     time.Duration `env:"AGENT_RUN_BUDGET" envDefault:"600s"`

	// When true, a NEEDS_IMPROVEMENT verdict re-executes every step of
	// the next plan instead of only the not-yet-successful ones.
	ReexecuteOnImprove bool `env:"AGENT_REEXECUTE_ON_IMPROVE" envDefault:"false"`

	// EventQueueSize bounds per-subscriber progress buffers.
	EventQueueSize int `env:"AGENT_EVENT_QUEUE_SIZE" envDefault:"64"`
}

// ModelConfig holds model backend configuration. Backends with an empty
// API key are skipped when building the fallback chain.
type ModelConfig struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	MaxTokens      int           `env:"MODEL_MAX_TOKENS" envDefault:"4096"`
	RequestTimeout time.Duration `env:"MODEL_REQUEST_TIMEOUT" envDefault:"120s"`

	// Circuit breaker per backend
	BreakerThreshold int           `env:"MODEL_BREAKER_THRESHOLD" envDefault:"3"`
	BreakerRecovery  time.Duration `env:"MODEL_BREAKER_RECOVERY" envDefault:"60s"`
}

// SandboxConfig holds execution service configuration.
type SandboxConfig struct {
	URL            string        `env:"SANDBOX_URL" envDefault:"http://localhost:4970"`
	Timeout        time.Duration `env:"SANDBOX_TIMEOUT" envDefault:"180s"`
	MaxCodeLength  int           `env:"SANDBOX_MAX_CODE_LENGTH" envDefault:"5000"`
	AllowedImports string        `env:"SANDBOX_ALLOWED_IMPORTS" envDefault:"pandas,numpy,json,math,statistics"`
}

// RetrievalConfig holds document retrieval configuration.
type RetrievalConfig struct {
	DBPath        string  `env:"RETRIEVAL_DB_PATH" envDefault:"./data/retrieval.db"`
	TopK          int     `env:"RETRIEVAL_TOP_K" envDefault:"3"`
	MinSimilarity float64 `env:"RETRIEVAL_MIN_SIMILARITY" envDefault:"0.3"`
}

// MarketConfig holds market data defaults.
type MarketConfig struct {
	BaseURL string `env:"MARKET_BASE_URL" envDefault:"http://localhost:4971"`
	Symbol  string `env:"MARKET_SYMBOL" envDefault:"USDBRL=X"`
	Period  string `env:"MARKET_PERIOD" envDefault:"5y"`
}

// RedisConfig holds Redis connection configuration. Optional: when Addr
// is empty the service runs on in-memory adapters.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	ResultTTL time.Duration `env:"REDIS_RESULT_TTL" envDefault:"24h"`
}

// TimeoutConfig holds service-level timeouts.
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1")
	}
	if c.Agent.MaxPlanSteps < 1 {
		return fmt.Errorf("max plan steps must be at least 1")
	}
	if c.Agent.Concurrency < 1 {
		return fmt.Errorf("step concurrency must be at least 1")
	}

	if c.Model.AnthropicAPIKey == "" && c.Model.GeminiAPIKey == "" {
		return fmt.Errorf("at least one model backend API key is required")
	}

	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("retrieval top-k must be at least 1")
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval min similarity must be in [0,1]")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
