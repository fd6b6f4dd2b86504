package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 描述了 enpeakd 在启动阶段需要加载的全部配置。
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	LLM           LLMConfig           `json:"llm" yaml:"llm"`
	Scenarios     ScenarioConfig      `json:"scenarios" yaml:"scenarios"`
	Storage       StorageConfig       `json:"storage" yaml:"storage"`
	Events        EventsConfig        `json:"events" yaml:"events"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Runtime       RuntimeConfig       `json:"runtime" yaml:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address                string `json:"address" yaml:"address" env:"ENPEAK_SERVER_ADDRESS"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	MaxBodyBytes           int64  `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// LLMConfig 用于配置大模型推理的调用方式。
type LLMConfig struct {
	Provider                 string             `json:"provider" yaml:"provider" env:"ENPEAK_LLM_PROVIDER"`
	Model                    string             `json:"model" yaml:"model" env:"ENPEAK_LLM_MODEL"`
	BaseURL                  string             `json:"base_url" yaml:"base_url" env:"ENPEAK_LLM_BASE_URL"`
	MistralAPIKey            string             `json:"mistral_api_key" yaml:"mistral_api_key" env:"MISTRAL_API_KEY"`
	GroqAPIKey               string             `json:"groq_api_key" yaml:"groq_api_key" env:"GROQ_API_KEY"`
	OpenAIAPIKey             string             `json:"openai_api_key" yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	GeminiAPIKey             string             `json:"gemini_api_key" yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	TimeoutSeconds           int                `json:"timeout_seconds" yaml:"timeout_seconds" env:"ENPEAK_LLM_TIMEOUT_SECONDS"`
	MaxAttempts              int                `json:"max_attempts" yaml:"max_attempts" env:"ENPEAK_LLM_MAX_ATTEMPTS"`
	DefaultRetryAfterSeconds int                `json:"default_retry_after_seconds" yaml:"default_retry_after_seconds"`
	MaxRetryAfterSeconds     int                `json:"max_retry_after_seconds" yaml:"max_retry_after_seconds" env:"ENPEAK_LLM_MAX_RETRY_AFTER_SECONDS"`
	RateLimitPerMinute       int                `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute" env:"ENPEAK_LLM_RATE_LIMIT_PER_MINUTE"`
	Python                   PythonBridgeConfig `json:"python_bridge" yaml:"python_bridge"`
}

// PythonBridgeConfig 描述通过 Python 脚本完成推理时所需的信息。
type PythonBridgeConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	PythonExecutable string `json:"python_executable" yaml:"python_executable"`
	ScriptPath       string `json:"script_path" yaml:"script_path"`
	WorkingDir       string `json:"working_dir" yaml:"working_dir"`
	Model            string `json:"model" yaml:"model"`
}

// ScenarioConfig 指定内置场景文件所在目录。
type ScenarioConfig struct {
	Dir string `json:"dir" yaml:"dir" env:"ENPEAK_SCENARIO_DIR"`
}

// StorageConfig 统一描述 SQL、Redis、Firestore 等后端的连接信息，以及各组件选用的驱动。
type StorageConfig struct {
	SQL          SQLConfig          `json:"sql" yaml:"sql"`
	Redis        RedisConfig        `json:"redis" yaml:"redis"`
	Firestore    FirestoreConfig    `json:"firestore" yaml:"firestore"`
	Sessions     SessionStoreConfig `json:"sessions" yaml:"sessions"`
	Community    DriverConfig       `json:"community" yaml:"community"`
	TutorHistory DriverConfig       `json:"tutor_history" yaml:"tutor_history"`
	Archive      ArchiveConfig      `json:"archive" yaml:"archive"`
}

// SQLConfig 描述 MySQL 或 SQLite 连接。
type SQLConfig struct {
	Driver string `json:"driver" yaml:"driver" env:"ENPEAK_SQL_DRIVER"`
	DSN    string `json:"dsn" yaml:"dsn" env:"ENPEAK_SQL_DSN"`
}

// RedisConfig 描述 Redis 连接。
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr" env:"ENPEAK_REDIS_ADDR"`
	Password  string `json:"password" yaml:"password" env:"ENPEAK_REDIS_PASSWORD"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// FirestoreConfig 描述 Firestore 项目。
type FirestoreConfig struct {
	ProjectID  string `json:"project_id" yaml:"project_id" env:"ENPEAK_FIRESTORE_PROJECT"`
	Collection string `json:"collection" yaml:"collection"`
}

// DriverConfig 仅包含驱动名称。
type DriverConfig struct {
	Driver string `json:"driver" yaml:"driver"`
}

// SessionStoreConfig 描述会话存储。
type SessionStoreConfig struct {
	Driver           string `json:"driver" yaml:"driver" env:"ENPEAK_SESSION_DRIVER"`
	TTLMinutes       int    `json:"ttl_minutes" yaml:"ttl_minutes"`
	FallbackToMemory bool   `json:"fallback_to_memory" yaml:"fallback_to_memory"`
}

// ArchiveConfig 描述会话报告归档。
type ArchiveConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	Path   string `json:"path" yaml:"path"`
}

// EventsConfig 描述会话结束事件的发布方式。
type EventsConfig struct {
	Driver       string `json:"driver" yaml:"driver" env:"ENPEAK_EVENTS_DRIVER"`
	RabbitMQURL  string `json:"rabbitmq_url" yaml:"rabbitmq_url" env:"ENPEAK_RABBITMQ_URL"`
	Queue        string `json:"queue" yaml:"queue"`
	RedisChannel string `json:"redis_channel" yaml:"redis_channel"`
}

// ObservabilityConfig 描述指标、链路追踪与告警。
type ObservabilityConfig struct {
	MetricsEnabled  bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsAddress  string `json:"metrics_address" yaml:"metrics_address"`
	TracingEndpoint string `json:"tracing_endpoint" yaml:"tracing_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName     string `json:"service_name" yaml:"service_name"`
	AlertWebhookURL string `json:"alert_webhook_url" yaml:"alert_webhook_url" env:"ENPEAK_ALERT_WEBHOOK_URL"`
}

// LoggingConfig 对应 pkg/logger 的配置。
type LoggingConfig struct {
	Level   string      `json:"level" yaml:"level" env:"ENPEAK_LOG_LEVEL"`
	Format  string      `json:"format" yaml:"format"`
	Outputs []string    `json:"outputs" yaml:"outputs"`
	Audit   AuditConfig `json:"audit" yaml:"audit"`
}

// AuditConfig 描述审计日志输出。
type AuditConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir" env:"ENPEAK_DATA_DIR"`
}

// Load 解析指定路径的 JSON 或 YAML 配置文件，并叠加环境变量。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置失败: %w", err)
		}
	default:
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}

	return finish(&cfg, filepath.Dir(path))
}

// FromEnv 在没有配置文件时仅依赖环境变量与默认值构造配置。
func FromEnv(baseDir string) (*Config, error) {
	return finish(&Config{}, baseDir)
}

func finish(cfg *Config, baseDir string) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = 3
	}
	if c.LLM.DefaultRetryAfterSeconds <= 0 {
		c.LLM.DefaultRetryAfterSeconds = 10
	}
	if c.LLM.MaxRetryAfterSeconds <= 0 {
		c.LLM.MaxRetryAfterSeconds = 10
	}
	if c.LLM.Python.PythonExecutable == "" {
		c.LLM.Python.PythonExecutable = "python3"
	}
	c.LLM.Python.WorkingDir = resolve(baseDir, c.LLM.Python.WorkingDir, baseDir)

	c.Runtime.DataDir = resolve(baseDir, c.Runtime.DataDir, filepath.Join(baseDir, "data"))
	c.Scenarios.Dir = resolve(baseDir, c.Scenarios.Dir, filepath.Join(c.Runtime.DataDir, "scenarios"))

	if c.Storage.SQL.Driver == "" {
		c.Storage.SQL.Driver = "sqlite"
	}
	if c.Storage.SQL.Driver == "sqlite" && c.Storage.SQL.DSN == "" {
		c.Storage.SQL.DSN = filepath.Join(c.Runtime.DataDir, "enpeak.db")
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Storage.Redis.KeyPrefix == "" {
		c.Storage.Redis.KeyPrefix = "enpeak"
	}
	if c.Storage.Firestore.Collection == "" {
		c.Storage.Firestore.Collection = "community_scenarios"
	}
	if c.Storage.Sessions.Driver == "" {
		c.Storage.Sessions.Driver = "memory"
	}
	if c.Storage.Sessions.TTLMinutes <= 0 {
		c.Storage.Sessions.TTLMinutes = 120
	}
	if c.Storage.Community.Driver == "" {
		c.Storage.Community.Driver = "memory"
	}
	if c.Storage.TutorHistory.Driver == "" {
		c.Storage.TutorHistory.Driver = "memory"
	}
	if c.Storage.Archive.Driver == "" {
		c.Storage.Archive.Driver = "file"
	}
	c.Storage.Archive.Path = resolve(baseDir, c.Storage.Archive.Path, filepath.Join(c.Runtime.DataDir, "reports.jsonl"))

	if c.Events.Driver == "" {
		c.Events.Driver = "log"
	}
	if c.Events.Queue == "" {
		c.Events.Queue = "enpeak.session.ended"
	}
	if c.Events.RedisChannel == "" {
		c.Events.RedisChannel = "enpeak:session:ended"
	}

	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "enpeakd"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Enabled {
		c.Logging.Audit.Path = resolve(baseDir, c.Logging.Audit.Path, filepath.Join(c.Runtime.DataDir, "audit.log"))
	}
}

// Validate 检查驱动名称等枚举值是否合法。
func (c *Config) Validate() error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"storage.sql.driver", c.Storage.SQL.Driver, []string{"mysql", "sqlite"}},
		{"storage.sessions.driver", c.Storage.Sessions.Driver, []string{"memory", "sql", "redis"}},
		{"storage.community.driver", c.Storage.Community.Driver, []string{"memory", "sql", "firestore"}},
		{"storage.tutor_history.driver", c.Storage.TutorHistory.Driver, []string{"memory", "redis"}},
		{"storage.archive.driver", c.Storage.Archive.Driver, []string{"file", "sql"}},
		{"events.driver", c.Events.Driver, []string{"log", "rabbitmq", "redis"}},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("配置项 %s 不支持取值 %q，可选: %s", check.field, check.value, strings.Join(check.allowed, ", "))
		}
	}
	if c.Storage.Community.Driver == "firestore" && c.Storage.Firestore.ProjectID == "" {
		return errors.New("使用 firestore 存储社区场景时必须配置 storage.firestore.project_id")
	}
	if c.Events.Driver == "rabbitmq" && c.Events.RabbitMQURL == "" {
		return errors.New("使用 rabbitmq 发布事件时必须配置 events.rabbitmq_url")
	}
	return nil
}

func resolve(baseDir, value, fallback string) string {
	if value == "" {
		return fallback
	}
	if filepath.IsAbs(value) || baseDir == "" {
		return value
	}
	return filepath.Join(baseDir, value)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
