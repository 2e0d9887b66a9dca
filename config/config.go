// Package config 加载服务配置：默认值 -> YAML 文件 -> 环境变量，优先级依次升高。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/ratingkit/pkg/dsl"
	"github.com/rushteam/ratingkit/source"
)

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "RATINGKIT_CONFIG"

// DefaultConfigPaths 未指定路径时依次查找的配置文件
var DefaultConfigPaths = []string{
	"config.yaml",
	"/etc/ratingkit/config.yaml",
}

// Config 服务配置
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Sources   SourcesConfig   `koanf:"sources"`
	Model     ModelConfig     `koanf:"model"`
	Audit     AuditConfig     `koanf:"audit"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	CORS      CORSConfig      `koanf:"cors"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SourcesConfig 两种存储的连接配置，base_url 为空的存储不启用
type SourcesConfig struct {
	SQL   source.Config `koanf:"sql"`
	NoSQL source.Config `koanf:"nosql"`
}

// ModelConfig 模型产物配置
type ModelConfig struct {
	// Artifact 产物地址：本地路径、http(s):// 或 redis://host:port/db/key
	Artifact    string        `koanf:"artifact" validate:"required"`
	LoadTimeout time.Duration `koanf:"load_timeout" validate:"gt=0"`
}

// AuditConfig 审计规则
type AuditConfig struct {
	Rules []dsl.Rule `koanf:"rules" validate:"dive"`
}

// RateLimitConfig 按 IP 限流
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8002,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sources: SourcesConfig{
			SQL: source.Config{
				BaseURL: "http://localhost:8000",
				Timeout: 5 * time.Second,
				Breaker: source.DefaultBreakerConfig(),
			},
			NoSQL: source.Config{
				BaseURL: "http://localhost:8001",
				Timeout: 5 * time.Second,
				Breaker: source.DefaultBreakerConfig(),
			},
		},
		Model: ModelConfig{
			Artifact:    "model/rating_model.json",
			LoadTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 100,
			Window:   time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load 加载配置。path 为空时按 RATINGKIT_CONFIG 与 DefaultConfigPaths 查找，找不到则只用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings 环境变量（小写）到配置路径。SQL_API_URL / NOSQL_API_URL 沿用存储服务部署时的变量名。
var envMappings = map[string]string{
	"sql_api_url":                  "sources.sql.base_url",
	"nosql_api_url":                "sources.nosql.base_url",
	"ratingkit_sql_timeout":        "sources.sql.timeout",
	"ratingkit_nosql_timeout":      "sources.nosql.timeout",
	"ratingkit_host":               "server.host",
	"ratingkit_port":               "server.port",
	"ratingkit_read_timeout":       "server.read_timeout",
	"ratingkit_write_timeout":      "server.write_timeout",
	"ratingkit_shutdown_timeout":   "server.shutdown_timeout",
	"ratingkit_log_level":          "logging.level",
	"ratingkit_log_format":         "logging.format",
	"ratingkit_log_caller":         "logging.caller",
	"ratingkit_model_artifact":     "model.artifact",
	"ratingkit_model_load_timeout": "model.load_timeout",
	"ratingkit_ratelimit_enabled":  "ratelimit.enabled",
	"ratingkit_ratelimit_requests": "ratelimit.requests",
	"ratingkit_ratelimit_window":   "ratelimit.window",
	"ratingkit_cors_origins":       "cors.allowed_origins",
}

// envTransformFunc 把环境变量名映射为配置路径，未知变量返回 "" 被忽略。
//
//   - SQL_API_URL -> sources.sql.base_url
//   - RATINGKIT_PORT -> server.port
//   - RATINGKIT_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths 环境变量中以逗号分隔的列表字段
var sliceConfigPaths = []string{
	"cors.allowed_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("ratelimit.requests and ratelimit.window must be positive when rate limiting is enabled")
	}
	if c.Sources.SQL.BaseURL == "" && c.Sources.NoSQL.BaseURL == "" {
		return errors.New("at least one of sources.sql.base_url and sources.nosql.base_url is required")
	}
	for name, sc := range map[string]source.Config{"sql": c.Sources.SQL, "nosql": c.Sources.NoSQL} {
		if sc.BaseURL == "" {
			continue
		}
		if err := validate.Var(sc.BaseURL, "url"); err != nil {
			return fmt.Errorf("sources.%s.base_url %q is not a valid url", name, sc.BaseURL)
		}
		if sc.Timeout <= 0 {
			return fmt.Errorf("sources.%s.timeout must be positive", name)
		}
	}
	return nil
}
