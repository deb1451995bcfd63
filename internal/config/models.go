package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the provider-independent LLM settings
type LLMConfig struct {
	Provider        string
	Enabled         bool
	MaxTokens       int
	RepairMaxTokens int
	SubjectLimit    int
	SnippetLimit    int
}

// BreakerConfig represents the circuit breaker wrapped around the provider
type BreakerConfig struct {
	Enabled             bool
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	Temperature float32
	TopP        float32
}

// CacheConfig selects the verdict cache backend
type CacheConfig struct {
	Type        string
	Dir         string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
	RedisAddr   string
	RedisPrefix string
}

// StoreConfig selects the record and profile store backend
type StoreConfig struct {
	Type        string
	Dir         string
	SQLitePath  string
	MySQLDSN    string
	PostgresDSN string
}

// SourceConfig selects where unread messages come from
type SourceConfig struct {
	Type            string
	File            string
	// Dir holds the .eml files read by the maildir source
	Dir             string
	MaxResults      int
	CredentialsFile string
	Query           string
}

// TriageConfig holds the band in which the LLM is consulted
type TriageConfig struct {
	AmbiguousLow  float64
	AmbiguousHigh float64
	Force         bool
}

// RunnerConfig holds the batch runner settings
type RunnerConfig struct {
	UserID  string
	Workers int
	Verbose bool
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:        c.GetString("llm.provider"),
		Enabled:         c.GetBool("llm.enabled"),
		MaxTokens:       c.GetInt("llm.max_tokens"),
		RepairMaxTokens: c.GetInt("llm.repair_max_tokens"),
		SubjectLimit:    c.GetInt("llm.subject_limit"),
		SnippetLimit:    c.GetInt("llm.snippet_limit"),
	}
}

// GetBreaker returns the circuit breaker configuration
func (c *Config) GetBreaker() (BreakerConfig, error) {
	interval, err := c.GetDuration("llm.breaker.interval")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker interval: %w", err)
	}
	timeout, err := c.GetDuration("llm.breaker.timeout")
	if err != nil {
		return BreakerConfig{}, fmt.Errorf("invalid breaker timeout: %w", err)
	}
	return BreakerConfig{
		Enabled:             c.GetBool("llm.breaker.enabled"),
		MaxRequests:         uint32(c.GetInt("llm.breaker.max_requests")),
		Interval:            interval,
		Timeout:             timeout,
		ConsecutiveFailures: uint32(c.GetInt("llm.breaker.consecutive_failures")),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetCache returns the verdict cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:        c.GetString("cache.type"),
		Dir:         c.GetString("cache.dir"),
		SQLitePath:  c.GetString("cache.sqlite_path"),
		MySQLDSN:    c.GetString("cache.mysql_dsn"),
		PostgresDSN: c.GetString("cache.postgres_dsn"),
		RedisAddr:   c.GetString("cache.redis_addr"),
		RedisPrefix: c.GetString("cache.redis_prefix"),
	}
}

// GetStore returns the record store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		Dir:         c.GetString("store.dir"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresDSN: c.GetString("store.postgres_dsn"),
	}
}

// GetSource returns the message source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type:            c.GetString("source.type"),
		File:            c.GetString("source.file"),
		Dir:             c.GetString("source.dir"),
		MaxResults:      c.GetInt("source.max_results"),
		CredentialsFile: c.GetString("gmail.credentials_file"),
		Query:           c.GetString("gmail.query"),
	}
}

// GetTriage returns the ambiguous band configuration
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		AmbiguousLow:  c.GetFloat64("triage.ambiguous_low"),
		AmbiguousHigh: c.GetFloat64("triage.ambiguous_high"),
		Force:         c.GetBool("triage.force"),
	}
}

// GetRunner returns the batch runner configuration
func (c *Config) GetRunner() RunnerConfig {
	return RunnerConfig{
		UserID:  c.GetString("user_id"),
		Workers: c.GetInt("runner.workers"),
		Verbose: c.GetBool("runner.verbose"),
	}
}
