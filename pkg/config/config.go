// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体；启动时构建一次，按值传入各组件（算法代码内部不读环境变量）
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Extract    ExtractConfig    `mapstructure:"extract"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Upload     UploadConfig     `mapstructure:"upload"`
	JobStore   JobStoreConfig   `mapstructure:"jobstore"`
	Collection CollectionConfig `mapstructure:"collection"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Host    string     `mapstructure:"host"`
	Port    int        `mapstructure:"port"`
	Timeout string     `mapstructure:"timeout"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// ExtractConfig 文本提取级联配置（阈值单位与 PDF 坐标一致）
type ExtractConfig struct {
	LineThreshold        float64 `mapstructure:"line_threshold"`
	ParaThreshold        float64 `mapstructure:"para_threshold"`
	ColumnThreshold      float64 `mapstructure:"column_threshold"`
	MinTextLength        int     `mapstructure:"min_text_length"`
	SufficientTextLength int     `mapstructure:"sufficient_text_length"`
	MaxItemsPerPage      int     `mapstructure:"max_items_per_page"`
	EnableDynamicScaling bool    `mapstructure:"enable_dynamic_scaling"`
	ProcessingTimeout    int     `mapstructure:"processing_timeout"` // 秒，提取与整个 Job 的总超时
}

// ProcessingTimeoutDuration 返回总超时时长
func (c ExtractConfig) ProcessingTimeoutDuration() time.Duration {
	if c.ProcessingTimeout <= 0 {
		return 600 * time.Second
	}
	return time.Duration(c.ProcessingTimeout) * time.Second
}

// OCRConfig OCR 引擎配置
type OCRConfig struct {
	Language       string  `mapstructure:"language"`
	MaxPages       int     `mapstructure:"max_pages"`
	Scale          float64 `mapstructure:"scale"`
	MaxTimeSeconds int     `mapstructure:"max_time_seconds"`
	PageSegMode    int     `mapstructure:"page_seg_mode"`
}

// MaxTime 返回 OCR 整体超时时长
func (c OCRConfig) MaxTime() time.Duration {
	if c.MaxTimeSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.MaxTimeSeconds) * time.Second
}

// UploadConfig 上传暂存配置
type UploadConfig struct {
	TempDir       string `mapstructure:"temp_dir"`
	MaxFileSizeMB int    `mapstructure:"max_file_size_mb"`
}

// JobStoreConfig Job 存储配置；多实例部署时必须使用 postgres（内存版不跨进程）
type JobStoreConfig struct {
	Type          string `mapstructure:"type"`           // memory | postgres
	DSN           string `mapstructure:"dsn"`            // type=postgres 时必填
	Retention     string `mapstructure:"retention"`      // 终态 Job 保留时长，如 "24h"
	SweepInterval string `mapstructure:"sweep_interval"` // 清理定时器周期，如 "1h"
}

// RetentionDuration 返回终态 Job 保留时长
func (c JobStoreConfig) RetentionDuration() time.Duration {
	if d, err := time.ParseDuration(c.Retention); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// SweepIntervalDuration 返回清理周期
func (c JobStoreConfig) SweepIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.SweepInterval); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

// CollectionConfig 向量集合存储配置
type CollectionConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Provider          string  `mapstructure:"provider"` // openai 兼容
	Model             string  `mapstructure:"model"`
	BaseURL           string  `mapstructure:"base_url"`
	APIKeySecret      string  `mapstructure:"api_key_secret"` // secrets.Store 中的 key 名
	Dimension         int     `mapstructure:"dimension"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // <=0 不限流
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider string            `mapstructure:"provider"` // env | memory | vault
	Config   map[string]string `mapstructure:"config"`
}

// WorkerConfig Worker/Dispatcher 配置
type WorkerConfig struct {
	Concurrency  int    `mapstructure:"concurrency"`
	QueueSize    int    `mapstructure:"queue_size"`
	PollInterval string `mapstructure:"poll_interval"` // 独立 Worker 轮询间隔，如 "2s"
}

// PollIntervalDuration 返回轮询间隔
func (c WorkerConfig) PollIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.PollInterval); err == nil && d > 0 {
		return d
	}
	return 2 * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// legacyEnvBindings 历史环境变量名（与原部署保持兼容），key 为 viper 配置键
var legacyEnvBindings = map[string]string{
	"extract.line_threshold":         "PDF_LINE_THRESHOLD",
	"extract.para_threshold":         "PDF_PARA_THRESHOLD",
	"extract.column_threshold":       "PDF_COLUMN_THRESHOLD",
	"extract.min_text_length":        "MIN_TEXT_LENGTH",
	"extract.sufficient_text_length": "SUFFICIENT_TEXT_LENGTH",
	"extract.max_items_per_page":     "MAX_ITEMS_PER_PAGE",
	"extract.enable_dynamic_scaling": "ENABLE_DYNAMIC_SCALING",
	"extract.processing_timeout":     "PROCESSING_TIMEOUT",
	"ocr.language":                   "OCR_LANGUAGE",
	"ocr.max_pages":                  "OCR_MAX_PAGES",
	"ocr.scale":                      "OCR_SCALE",
	"ocr.max_time_seconds":           "OCR_MAX_TIME_SECONDS",
	"ocr.page_seg_mode":              "OCR_PAGE_SEG_MODE",
}

// setDefaults 写入全部默认值；配置文件缺失时也可直接运行
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("extract.line_threshold", 5.0)
	v.SetDefault("extract.para_threshold", 10.0)
	v.SetDefault("extract.column_threshold", 50.0)
	v.SetDefault("extract.min_text_length", 100)
	v.SetDefault("extract.sufficient_text_length", 300)
	v.SetDefault("extract.max_items_per_page", 5000)
	v.SetDefault("extract.enable_dynamic_scaling", true)
	v.SetDefault("extract.processing_timeout", 600)

	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.max_pages", 10)
	v.SetDefault("ocr.scale", 1.2)
	v.SetDefault("ocr.max_time_seconds", 300)
	v.SetDefault("ocr.page_seg_mode", 1)

	v.SetDefault("upload.temp_dir", "tmp/pdf_queue")
	v.SetDefault("upload.max_file_size_mb", 100)

	v.SetDefault("jobstore.type", "memory")
	v.SetDefault("jobstore.retention", "24h")
	v.SetDefault("jobstore.sweep_interval", "1h")

	v.SetDefault("collection.type", "memory")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.api_key_secret", "OPENAI_API_KEY")
	v.SetDefault("embedding.dimension", 1536)

	v.SetDefault("secrets.provider", "env")

	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queue_size", 128)
	v.SetDefault("worker.poll_interval", "2s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig 加载配置文件；configPath 为空或文件不存在时仅用默认值 + 环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range legacyEnvBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s failed: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate 启动期校验；算法组件假定配置已合法
func validate(c *Config) error {
	if c.Extract.SufficientTextLength < c.Extract.MinTextLength {
		return fmt.Errorf("sufficient_text_length(%d) 不能小于 min_text_length(%d)",
			c.Extract.SufficientTextLength, c.Extract.MinTextLength)
	}
	if c.JobStore.Type == "postgres" && c.JobStore.DSN == "" {
		return fmt.Errorf("jobstore.type=postgres 时必须配置 dsn")
	}
	if c.Collection.Type == "redis" && c.Collection.Addr == "" {
		return fmt.Errorf("collection.type=redis 时必须配置 addr")
	}
	return nil
}
