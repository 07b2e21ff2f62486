package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the process configuration for the review binaries.
type AppConfig struct {
	StockfishPath  string `yaml:"stockfish_path"`
	EngineThreads  int    `yaml:"engine_threads"`
	EngineHashMB   int    `yaml:"engine_hash_mb"`
	EnginePoolSize int    `yaml:"engine_pool_size"`

	ReviewPreset     string `yaml:"review_preset"`
	ReviewDepth      int    `yaml:"review_depth"`
	ReviewMoveTimeMS int    `yaml:"review_movetime_ms"`
	ReviewNodes      int    `yaml:"review_nodes"`
	PrefetchWorkers  int    `yaml:"review_prefetch_workers"`

	PolyglotBookPath string        `yaml:"polyglot_book_path"`
	RedisURL         string        `yaml:"redis_url"`
	EvalCacheTTL     time.Duration `yaml:"eval_cache_ttl"`
	DatabaseURL      string        `yaml:"database_url"`

	HTTPAddr           string `yaml:"http_addr"`
	NotifyMode         string `yaml:"notify_mode"`
	NotifyHTTPURL      string `yaml:"notify_http_url"`
	NotifyWSURL        string `yaml:"notify_ws_url"`
	NotifyToken        string `yaml:"notify_token"`
	MessageOverrideDir string `yaml:"message_override_dir"`
}

// Load builds the configuration from defaults, the YAML file named by
// REVIEW_CONFIG_FILE (if any), then the environment. Environment values win.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ReviewPreset:    "standard",
		PrefetchWorkers: 4,
		EvalCacheTTL:    7 * 24 * time.Hour,
		HTTPAddr:        ":8080",
		NotifyMode:      "off",
	}

	if path := strings.TrimSpace(os.Getenv("REVIEW_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) loadEnv() error {
	setString(&c.StockfishPath, "STOCKFISH_PATH")
	setString(&c.ReviewPreset, "REVIEW_PRESET")
	setString(&c.PolyglotBookPath, "CHESS_POLYGLOT_BOOK_PATH")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.NotifyMode, "NOTIFY_MODE")
	setString(&c.NotifyHTTPURL, "NOTIFY_HTTP_URL")
	setString(&c.NotifyWSURL, "NOTIFY_WS_URL")
	setString(&c.NotifyToken, "NOTIFY_TOKEN")
	setString(&c.MessageOverrideDir, "MESSAGE_OVERRIDE_DIR")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.EngineThreads, "ENGINE_THREADS"},
		{&c.EngineHashMB, "ENGINE_HASH_MB"},
		{&c.EnginePoolSize, "ENGINE_POOL_SIZE"},
		{&c.ReviewDepth, "REVIEW_DEPTH"},
		{&c.ReviewMoveTimeMS, "REVIEW_MOVETIME_MS"},
		{&c.ReviewNodes, "REVIEW_NODES"},
		{&c.PrefetchWorkers, "REVIEW_PREFETCH_WORKERS"},
	}
	for _, it := range ints {
		if err := setInt(it.dst, it.key); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(os.Getenv("EVAL_CACHE_TTL")); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("EVAL_CACHE_TTL: %w", err)
		}
		c.EvalCacheTTL = ttl
	}
	return nil
}

func (c *AppConfig) validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    int
	}{
		{"ENGINE_THREADS", c.EngineThreads},
		{"ENGINE_HASH_MB", c.EngineHashMB},
		{"ENGINE_POOL_SIZE", c.EnginePoolSize},
		{"REVIEW_DEPTH", c.ReviewDepth},
		{"REVIEW_MOVETIME_MS", c.ReviewMoveTimeMS},
		{"REVIEW_NODES", c.ReviewNodes},
		{"REVIEW_PREFETCH_WORKERS", c.PrefetchWorkers},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", f.name))
		}
	}
	if c.EvalCacheTTL < 0 {
		errs = append(errs, errors.New("EVAL_CACHE_TTL must not be negative"))
	}
	switch strings.ToLower(c.NotifyMode) {
	case "", "off":
	case "http":
		if c.NotifyHTTPURL == "" {
			errs = append(errs, errors.New("NOTIFY_HTTP_URL is required for NOTIFY_MODE=http"))
		}
	case "ws":
		if c.NotifyWSURL == "" {
			errs = append(errs, errors.New("NOTIFY_WS_URL is required for NOTIFY_MODE=ws"))
		}
	case "auto":
		if c.NotifyHTTPURL == "" && c.NotifyWSURL == "" {
			errs = append(errs, errors.New("NOTIFY_MODE=auto needs NOTIFY_HTTP_URL or NOTIFY_WS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode))
	}
	return errors.Join(errs...)
}

// ReviewLimit is the explicit search bound set by REVIEW_DEPTH,
// REVIEW_MOVETIME_MS and REVIEW_NODES. Zero fields defer to the preset.
func (c *AppConfig) ReviewLimit() (depth int, moveTime time.Duration, nodes int) {
	return c.ReviewDepth, time.Duration(c.ReviewMoveTimeMS) * time.Millisecond, c.ReviewNodes
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// parseTTL accepts a Go duration ("12h") or a number of seconds.
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
