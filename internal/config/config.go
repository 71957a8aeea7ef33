// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvListen            = "BOARDLINK_LISTEN"
	EnvAPIBase           = "BOARDLINK_API_BASE"
	EnvTimeout           = "BOARDLINK_TIMEOUT"
	EnvRateLimit         = "BOARDLINK_RATE_LIMIT"
	EnvRateBurst         = "BOARDLINK_RATE_BURST"
	EnvUserAgent         = "BOARDLINK_USER_AGENT"
	EnvPollBackend       = "BOARDLINK_POLL_BACKEND"
	EnvDataDir           = "BOARDLINK_DATA_DIR"
	EnvRedisAddr         = "BOARDLINK_REDIS_ADDR"
	EnvRedisPassword     = "BOARDLINK_REDIS_PASSWORD"
	EnvRedisDB           = "BOARDLINK_REDIS_DB"
	EnvFieldMode         = "BOARDLINK_FIELD_MODE"
	EnvLogLevel          = "BOARDLINK_LOG_LEVEL"
	EnvTracingEnabled    = "BOARDLINK_TRACING_ENABLED"
	EnvTracingExporter   = "BOARDLINK_TRACING_EXPORTER"
	EnvTracingEndpoint   = "BOARDLINK_TRACING_ENDPOINT"
	EnvTracingSampleRate = "BOARDLINK_TRACING_SAMPLE_RATE"
	EnvHTTPRateLimit     = "BOARDLINK_HTTP_RATE_LIMIT"
)

// Defaults.
const (
	DefaultListen            = ":8088"
	DefaultAPIBase           = "https://api.trello.com"
	DefaultTimeout           = 30 * time.Second
	DefaultRateLimit         = 10.0
	DefaultRateBurst         = 20
	DefaultUserAgent         = "boardlink"
	DefaultPollBackend       = "sqlite"
	DefaultDataDir           = "data"
	DefaultFieldMode         = "advertise"
	DefaultLogLevel          = "info"
	DefaultTracingExporter   = "grpc"
	DefaultTracingEndpoint   = "localhost:4317"
	DefaultTracingSampleRate = 1.0
	DefaultHTTPRateLimit     = 600
)

// FileConfig is the YAML document. Zero values mean "not set".
type FileConfig struct {
	Listen        string      `yaml:"listen,omitempty"`
	DataDir       string      `yaml:"dataDir,omitempty"`
	LogLevel      string      `yaml:"logLevel,omitempty"`
	FieldMode     string      `yaml:"fieldMode,omitempty"`
	HTTPRateLimit *int        `yaml:"httpRateLimit,omitempty"`
	Trello        TrelloFile  `yaml:"trello,omitempty"`
	Poll          PollFile    `yaml:"poll,omitempty"`
	Tracing       TracingFile `yaml:"tracing,omitempty"`
}

// TrelloFile is the upstream section of the YAML document.
type TrelloFile struct {
	APIBase   string   `yaml:"apiBase,omitempty"`
	Timeout   string   `yaml:"timeout,omitempty"`
	RateLimit *float64 `yaml:"rateLimit,omitempty"`
	RateBurst *int     `yaml:"rateBurst,omitempty"`
	UserAgent string   `yaml:"userAgent,omitempty"`
}

// PollFile is the poll store section of the YAML document.
type PollFile struct {
	Backend string    `yaml:"backend,omitempty"`
	Redis   RedisFile `yaml:"redis,omitempty"`
}

// RedisFile configures the redis poll store.
type RedisFile struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       *int   `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// TracingFile is the tracing section of the YAML document.
type TracingFile struct {
	Enabled    *bool    `yaml:"enabled,omitempty"`
	Exporter   string   `yaml:"exporter,omitempty"`
	Endpoint   string   `yaml:"endpoint,omitempty"`
	SampleRate *float64 `yaml:"sampleRate,omitempty"`
	Insecure   *bool    `yaml:"insecure,omitempty"`
}

// AppConfig is the effective configuration.
type AppConfig struct {
	Version   string
	Listen    string
	DataDir   string
	LogLevel  string
	FieldMode string
	// HTTPRateLimit is requests per minute per client IP on the host API.
	// Zero disables the limit.
	HTTPRateLimit int
	Trello        TrelloConfig
	Poll          PollConfig
	Tracing       TracingConfig
}

// TrelloConfig configures the request gateway.
type TrelloConfig struct {
	APIBase   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	UserAgent string
}

// PollConfig configures the poll store.
type PollConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool
	Exporter   string
	Endpoint   string
	SampleRate float64
	Insecure   bool
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}
	l.setDefaults(&cfg)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if cfg.DataDir != "" {
		if abs, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Listen = DefaultListen
	cfg.DataDir = DefaultDataDir
	cfg.LogLevel = DefaultLogLevel
	cfg.FieldMode = DefaultFieldMode
	cfg.HTTPRateLimit = DefaultHTTPRateLimit
	cfg.Trello = TrelloConfig{
		APIBase:   DefaultAPIBase,
		Timeout:   DefaultTimeout,
		RateLimit: DefaultRateLimit,
		RateBurst: DefaultRateBurst,
		UserAgent: DefaultUserAgent,
	}
	cfg.Poll = PollConfig{Backend: DefaultPollBackend}
	cfg.Tracing = TracingConfig{
		Exporter:   DefaultTracingExporter,
		Endpoint:   DefaultTracingEndpoint,
		SampleRate: DefaultTracingSampleRate,
		Insecure:   true,
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}
	return &fileCfg, nil
}

func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.Listen, src.Listen)
	setString(&dst.DataDir, expandEnv(src.DataDir))
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.FieldMode, src.FieldMode)
	if src.HTTPRateLimit != nil {
		dst.HTTPRateLimit = *src.HTTPRateLimit
	}

	setString(&dst.Trello.APIBase, src.Trello.APIBase)
	if src.Trello.Timeout != "" {
		d, err := time.ParseDuration(src.Trello.Timeout)
		if err != nil {
			return fmt.Errorf("trello.timeout: %w", err)
		}
		dst.Trello.Timeout = d
	}
	if src.Trello.RateLimit != nil {
		dst.Trello.RateLimit = *src.Trello.RateLimit
	}
	if src.Trello.RateBurst != nil {
		dst.Trello.RateBurst = *src.Trello.RateBurst
	}
	setString(&dst.Trello.UserAgent, src.Trello.UserAgent)

	setString(&dst.Poll.Backend, src.Poll.Backend)
	setString(&dst.Poll.RedisAddr, src.Poll.Redis.Addr)
	setString(&dst.Poll.RedisPassword, expandEnv(src.Poll.Redis.Password))
	if src.Poll.Redis.DB != nil {
		dst.Poll.RedisDB = *src.Poll.Redis.DB
	}
	setString(&dst.Poll.RedisPrefix, src.Poll.Redis.Prefix)

	if src.Tracing.Enabled != nil {
		dst.Tracing.Enabled = *src.Tracing.Enabled
	}
	setString(&dst.Tracing.Exporter, src.Tracing.Exporter)
	setString(&dst.Tracing.Endpoint, src.Tracing.Endpoint)
	if src.Tracing.SampleRate != nil {
		dst.Tracing.SampleRate = *src.Tracing.SampleRate
	}
	if src.Tracing.Insecure != nil {
		dst.Tracing.Insecure = *src.Tracing.Insecure
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Listen = l.envString(EnvListen, cfg.Listen)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.FieldMode = l.envString(EnvFieldMode, cfg.FieldMode)
	cfg.HTTPRateLimit = l.envInt(EnvHTTPRateLimit, cfg.HTTPRateLimit)

	cfg.Trello.APIBase = l.envString(EnvAPIBase, cfg.Trello.APIBase)
	cfg.Trello.Timeout = l.envDuration(EnvTimeout, cfg.Trello.Timeout)
	cfg.Trello.RateLimit = l.envFloat(EnvRateLimit, cfg.Trello.RateLimit)
	cfg.Trello.RateBurst = l.envInt(EnvRateBurst, cfg.Trello.RateBurst)
	cfg.Trello.UserAgent = l.envString(EnvUserAgent, cfg.Trello.UserAgent)

	cfg.Poll.Backend = l.envString(EnvPollBackend, cfg.Poll.Backend)
	cfg.Poll.RedisAddr = l.envString(EnvRedisAddr, cfg.Poll.RedisAddr)
	cfg.Poll.RedisPassword = l.envString(EnvRedisPassword, cfg.Poll.RedisPassword)
	cfg.Poll.RedisDB = l.envInt(EnvRedisDB, cfg.Poll.RedisDB)

	cfg.Tracing.Enabled = l.envBool(EnvTracingEnabled, cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = l.envFloat(EnvTracingSampleRate, cfg.Tracing.SampleRate)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// expandEnv expands ${VAR} references so secrets can stay out of the file.
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}

// String renders the configuration with secrets masked.
func (c AppConfig) String() string {
	masked := c
	if masked.Poll.RedisPassword != "" {
		masked.Poll.RedisPassword = "***"
	}
	type plain AppConfig
	return fmt.Sprintf("%+v", plain(masked))
}
