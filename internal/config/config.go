package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "DISCLOSURE_CONFIG"

type Config struct {
	Port         string `json:"port"`
	DebugEnabled bool   `json:"debug_enabled"`
	LogLevel     string `json:"log_level"`

	// Token counting
	TokenCounter   string `json:"token_counter"`
	BPEEncoding    string `json:"bpe_encoding"`
	BPERankDir     string `json:"bpe_rank_dir"`
	BPEOffline     bool   `json:"bpe_offline"`
	TokenCacheSize int    `json:"token_cache_size"`

	// Summaries
	Summarizer       string `json:"summarizer"`
	SummaryMaxTokens int    `json:"summary_max_tokens"`

	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	SummaryCacheMode        string `json:"summary_cache_mode"`
	SummaryCacheSize        int    `json:"summary_cache_size"`
	SummaryCacheTTLSeconds  int    `json:"summary_cache_ttl_seconds"`
	SummaryCacheShards      int    `json:"summary_cache_shards"`
	SummaryCacheLog         bool   `json:"summary_cache_log"`
	SummaryCacheRedisAddr   string `json:"summary_cache_redis_addr"`
	SummaryCacheRedisPass   string `json:"summary_cache_redis_password"`
	SummaryCacheRedisDB     int    `json:"summary_cache_redis_db"`
	SummaryCacheRedisPrefix string `json:"summary_cache_redis_prefix"`

	// Outcome journal
	JournalMode          string `json:"journal_mode"`
	JournalPath          string `json:"journal_path"`
	JournalRedisPrefix   string `json:"journal_redis_prefix"`
	JournalMaxPerContext int    `json:"journal_max_per_context"`
	JournalBuffer        int    `json:"journal_buffer"`

	ConcurrencyLimit   int `json:"concurrency_limit"`
	ConcurrencyTimeout int `json:"concurrency_timeout"`
	StreamIntervalMs   int `json:"stream_interval_ms"`
}

// Load reads the config at path. An empty path falls back to $DISCLOSURE_CONFIG
// and then to config.json, config.jsonc, config.yaml or config.yml in the
// working directory. It returns the resolved path alongside the config.
func Load(path string) (*Config, string, error) {
	resolvedPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(resolvedPath))
	if err != nil {
		return nil, "", err
	}
	return cfg, resolvedPath, nil
}

// Parse decodes data according to ext (".json", ".jsonc", ".yaml", ".yml")
// and applies defaults.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Config{}
	ext = strings.ToLower(ext)
	switch ext {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config json: %w", err)
		}
	case ".yaml", ".yml":
		m := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize yaml: %w", err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvPath)); env != "" {
		return env, nil
	}

	candidates := []string{"config.json", "config.jsonc", "config.yaml", "config.yml"}
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	return "", errors.New("config.json/config.jsonc/config.yaml/config.yml not found")
}

func ApplyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "3010"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TokenCounter == "" {
		cfg.TokenCounter = "words"
	}
	if cfg.BPEEncoding == "" {
		cfg.BPEEncoding = "cl100k_base"
	}
	if cfg.BPERankDir == "" {
		cfg.BPERankDir = "data/tiktoken"
	}
	if cfg.TokenCacheSize == 0 {
		cfg.TokenCacheSize = 4096
	}
	if cfg.Summarizer == "" {
		cfg.Summarizer = "head"
	}
	if cfg.SummaryMaxTokens == 0 {
		cfg.SummaryMaxTokens = 64
	}

	if cfg.SummaryCacheMode == "" {
		cfg.SummaryCacheMode = "memory"
	}
	if strings.ToLower(strings.TrimSpace(cfg.SummaryCacheMode)) == "redis" {
		if cfg.SummaryCacheRedisAddr == "" {
			cfg.SummaryCacheRedisAddr = cfg.RedisAddr
		}
		if cfg.SummaryCacheRedisPass == "" {
			cfg.SummaryCacheRedisPass = cfg.RedisPassword
		}
		if cfg.SummaryCacheRedisAddr == "" {
			slog.Warn("summary_cache_mode is redis but no redis address is set; memoization disabled")
		}
	}
	if cfg.SummaryCacheSize == 0 {
		cfg.SummaryCacheSize = 1024
	}
	if cfg.SummaryCacheTTLSeconds == 0 {
		cfg.SummaryCacheTTLSeconds = 3600
	}
	if cfg.SummaryCacheShards == 0 {
		cfg.SummaryCacheShards = 16
	}
	if cfg.SummaryCacheRedisPrefix == "" {
		cfg.SummaryCacheRedisPrefix = "disclosure:summary:"
	}

	if cfg.JournalMode == "" {
		cfg.JournalMode = "off"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "data/journal.db"
	}
	if cfg.JournalRedisPrefix == "" {
		cfg.JournalRedisPrefix = "disclosure:journal:"
	}
	if cfg.JournalMaxPerContext == 0 {
		cfg.JournalMaxPerContext = 1000
	}
	if cfg.JournalBuffer == 0 {
		cfg.JournalBuffer = 256
	}

	if cfg.ConcurrencyLimit == 0 {
		cfg.ConcurrencyLimit = 64
	}
	if cfg.ConcurrencyTimeout == 0 {
		cfg.ConcurrencyTimeout = 30
	}
	if cfg.StreamIntervalMs == 0 {
		cfg.StreamIntervalMs = 1000
	}
}

// SlogLevel maps LogLevel onto slog levels; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
