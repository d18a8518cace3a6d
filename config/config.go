package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the hrdesk service.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Knowledge  KnowledgeConfig  `mapstructure:"knowledge"`
	WebSearch  WebSearchConfig  `mapstructure:"web_search"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Capability CapabilityConfig `mapstructure:"capability"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address          string   `mapstructure:"address"`
	JWTSecret        string   `mapstructure:"jwt_secret"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins"`
	AdminEmails      []string `mapstructure:"admin_emails"`
}

// LLMConfig contains the reasoning provider configuration
type LLMConfig struct {
	Provider   string              `mapstructure:"provider"` // openai, anthropic
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Timeout    time.Duration       `mapstructure:"timeout"`
	Models     map[string]LLMModel `mapstructure:"models"`
	Routing    LLMRoutingConfig    `mapstructure:"routing"`
	MaxRetries int                 `mapstructure:"max_retries"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string   `mapstructure:"name"`
	APIName         string   `mapstructure:"api_name"`
	MaxTokens       int      `mapstructure:"max_tokens"`
	Temperature     float64  `mapstructure:"temperature"`
	CostPer1K       float64  `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64  `mapstructure:"cost_per_1k_output"`
	Capabilities    []string `mapstructure:"capabilities"` // planning, selection, reflection, synthesis
}

// LLMRoutingConfig defines which model key handles each reasoning task.
// Embedding model selection lives in KnowledgeConfig.
type LLMRoutingConfig struct {
	Planning   string `mapstructure:"planning"`   // plan generation
	Selection  string `mapstructure:"selection"`  // ambiguous tool choice
	Reflection string `mapstructure:"reflection"` // quality reflection
	Synthesis  string `mapstructure:"synthesis"`  // final answer
	Tools      string `mapstructure:"tools"`      // generative tools (comparator etc.)
	Fallback   string `mapstructure:"fallback"`
}

// Normalize fills unset routes with the fallback model key.
func (r LLMRoutingConfig) Normalize() LLMRoutingConfig {
	if r.Fallback == "" {
		r.Fallback = "default"
	}
	fill := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return r.Fallback
		}
		return s
	}
	r.Planning = fill(r.Planning)
	r.Selection = fill(r.Selection)
	r.Reflection = fill(r.Reflection)
	r.Synthesis = fill(r.Synthesis)
	r.Tools = fill(r.Tools)
	return r
}

// AgentConfig bounds a single orchestrated run.
type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
}

// Normalize applies the documented defaults.
func (a AgentConfig) Normalize() AgentConfig {
	if a.MaxIterations <= 0 {
		a.MaxIterations = 5
	}
	return a
}

func (a AgentConfig) Validate() error {
	if a.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be >= 1")
	}
	return nil
}

// KnowledgeConfig controls the internal knowledge base and its retrieval.
type KnowledgeConfig struct {
	EmbeddingModel string `mapstructure:"embedding_model"`
	DefaultTopK    int    `mapstructure:"default_top_k"`
	RefreshCron    string `mapstructure:"refresh_cron"`
}

// Normalize applies retrieval defaults.
func (k KnowledgeConfig) Normalize() KnowledgeConfig {
	if k.DefaultTopK <= 0 {
		k.DefaultTopK = 5
	}
	if strings.TrimSpace(k.RefreshCron) == "" {
		k.RefreshCron = "@daily"
	}
	return k
}

// WebSearchConfig contains external web search settings
type WebSearchConfig struct {
	Provider      string        `mapstructure:"provider"` // serper, brave
	APIKey        string        `mapstructure:"api_key"`
	MaxResults    int           `mapstructure:"max_results"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FetchContent  bool          `mapstructure:"fetch_content"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	FetchMaxChars int           `mapstructure:"fetch_max_chars"`
}

// Normalize applies search defaults.
func (w WebSearchConfig) Normalize() WebSearchConfig {
	if w.MaxResults <= 0 {
		w.MaxResults = 5
	}
	if w.Timeout <= 0 {
		w.Timeout = 20 * time.Second
	}
	return w
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN renders the connection string, preferring the explicit URL.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. Redis is optional: when
// disabled the answer cache and scheduler locks are skipped.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      string        `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AnswerTTL time.Duration `mapstructure:"answer_ttl"`
}

func (r RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required when redis is enabled")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required when redis is enabled")
	}
	return nil
}

// Addr renders host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	LogFile      string `mapstructure:"log_file"`
	CostTracking bool   `mapstructure:"cost_tracking"`
	PeriodicLogs bool   `mapstructure:"periodic_logs"`
}

// CapabilityConfig controls the ToolCard registry behaviour.
type CapabilityConfig struct {
	SigningSecret string   `mapstructure:"signing_secret"`
	RequiredTools []string `mapstructure:"required_tools"`
}

// LoadConfig loads config from file, falling back to well-known paths when
// path is empty. Fatal problems panic, matching startup-or-die semantics.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "60s")
	viper.SetDefault("server.address", ":8090")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("llm.routing.fallback", "default")
	viper.SetDefault("agent.max_iterations", 5)
	viper.SetDefault("knowledge.default_top_k", 5)
	viper.SetDefault("knowledge.embedding_model", "text-embedding-3-small")
	viper.SetDefault("knowledge.refresh_cron", "@daily")
	viper.SetDefault("web_search.provider", "serper")
	viper.SetDefault("web_search.max_results", 5)
	viper.SetDefault("web_search.fetch_max_chars", 4000)
	viper.SetDefault("storage.redis.answer_ttl", "1h")
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("HRDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	config.LLM.Routing = config.LLM.Routing.Normalize()
	config.Agent = config.Agent.Normalize()
	config.Knowledge = config.Knowledge.Normalize()
	config.WebSearch = config.WebSearch.Normalize()

	if err := config.Agent.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	return &config
}
