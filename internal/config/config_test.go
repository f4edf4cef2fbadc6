package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Port != "3010" {
		t.Fatalf("Port=%q want=3010", cfg.Port)
	}
	if cfg.TokenCounter != "words" || cfg.BPEEncoding != "cl100k_base" {
		t.Fatalf("token counter=%q encoding=%q", cfg.TokenCounter, cfg.BPEEncoding)
	}
	if cfg.Summarizer != "head" || cfg.SummaryMaxTokens != 64 {
		t.Fatalf("summarizer=%q max=%d", cfg.Summarizer, cfg.SummaryMaxTokens)
	}
	if cfg.SummaryCacheMode != "memory" || cfg.SummaryCacheSize != 1024 || cfg.SummaryCacheShards != 16 {
		t.Fatalf("summary cache mode=%q size=%d shards=%d", cfg.SummaryCacheMode, cfg.SummaryCacheSize, cfg.SummaryCacheShards)
	}
	if cfg.JournalMode != "off" || cfg.JournalPath != "data/journal.db" {
		t.Fatalf("journal mode=%q path=%q", cfg.JournalMode, cfg.JournalPath)
	}
	if cfg.ConcurrencyLimit != 64 || cfg.ConcurrencyTimeout != 30 || cfg.StreamIntervalMs != 1000 {
		t.Fatalf("limit=%d timeout=%d stream=%d", cfg.ConcurrencyLimit, cfg.ConcurrencyTimeout, cfg.StreamIntervalMs)
	}
}

func TestApplyDefaultsInheritsRedis(t *testing.T) {
	cfg := Config{SummaryCacheMode: "redis", RedisAddr: "127.0.0.1:6379", RedisPassword: "pw"}
	ApplyDefaults(&cfg)
	if cfg.SummaryCacheRedisAddr != "127.0.0.1:6379" || cfg.SummaryCacheRedisPass != "pw" {
		t.Fatalf("addr=%q pass=%q", cfg.SummaryCacheRedisAddr, cfg.SummaryCacheRedisPass)
	}
}

func TestParseJSONC(t *testing.T) {
	raw := []byte(`{
		// listen port
		"port": "8080",
		"summarizer": "outline", /* outline keeps headings */
		"journal_mode": "sqlite",
	}`)
	cfg, err := Parse(raw, ".jsonc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "8080" || cfg.Summarizer != "outline" || cfg.JournalMode != "sqlite" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.SummaryMaxTokens != 64 {
		t.Fatalf("defaults not applied: %d", cfg.SummaryMaxTokens)
	}
}

func TestParseYAML(t *testing.T) {
	raw := []byte(`
# comment
port: "9000"
token_counter: bpe
summary_max_tokens: 32
debug_enabled: true
summary_cache_redis_prefix: "x:#y:"
`)
	cfg, err := Parse(raw, ".yml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "9000" || cfg.TokenCounter != "bpe" || cfg.SummaryMaxTokens != 32 || !cfg.DebugEnabled {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.SummaryCacheRedisPrefix != "x:#y:" {
		t.Fatalf("prefix=%q", cfg.SummaryCacheRedisPrefix)
	}
}

func TestParseUnsupported(t *testing.T) {
	if _, err := Parse([]byte("port = 1"), ".toml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadResolvesEnvAndSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disclosure.json")
	if err := os.WriteFile(path, []byte(`{"port":"7000","log_level":"debug"}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvPath, path)

	cfg, resolved, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path || cfg.Port != "7000" {
		t.Fatalf("resolved=%q port=%q", resolved, cfg.Port)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level=%v", cfg.SlogLevel())
	}

	out := filepath.Join(dir, "saved.json")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, _, err := Load(out)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if *again != *cfg {
		t.Fatalf("saved config differs: %+v vs %+v", again, cfg)
	}
}
