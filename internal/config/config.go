/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for jbossctl.
// config 包提供 jbossctl 的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line arguments / 命令行参数
// 2. Environment variables (JBOSSCTL_*) / 环境变量（JBOSSCTL_*）
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jbossctl/jbossctl/internal/target"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath      = "/etc/jbossctl/config.yaml"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultLogOutput       = "stderr"
	DefaultLogFile         = "/var/log/jbossctl/jbossctl.log"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAge       = 7 // days
	DefaultProbeInterval   = time.Second
	DefaultPreCheckTimeout = 3
	DefaultRequestTimeout  = 5 * time.Second
	DefaultServiceName     = "jbossctl"
	DefaultMetricsJob      = "jbossctl"
	DefaultSubjectPrefix   = "jbossctl"
	DefaultEventBatchSize  = 50
	DefaultEventFlush      = 5 * time.Second
)

// Config represents the jbossctl configuration
// Config 表示 jbossctl 配置
type Config struct {
	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Management endpoint client configuration / 管理端点客户端配置
	Management ManagementConfig `mapstructure:"management" yaml:"management"`

	// Readiness probe configuration / 就绪探测配置
	Probe ProbeConfig `mapstructure:"probe" yaml:"probe"`

	// Tracing configuration / 链路追踪配置
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics export configuration / 指标导出配置
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Lifecycle event configuration / 生命周期事件配置
	Events EventsConfig `mapstructure:"events" yaml:"events"`

	// Servers is the ordered target registry / Servers 是有序的目标注册表
	Servers []ServerConfig `mapstructure:"servers" yaml:"servers"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// Format is json or console
	// Format 为 json 或 console
	Format string `mapstructure:"format" yaml:"format"`

	// Output is stdout, stderr or file
	// Output 为 stdout、stderr 或 file
	Output string `mapstructure:"output" yaml:"output"`

	// FilePath is the log file path when Output is file
	// FilePath 是 Output 为 file 时的日志文件路径
	FilePath string `mapstructure:"file_path" yaml:"file_path"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age" yaml:"max_age"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`

	// Compress gzips rotated files
	// Compress 压缩轮转后的文件
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ManagementConfig contains Jolokia client settings
// ManagementConfig 包含 Jolokia 客户端设置
type ManagementConfig struct {
	Scheme         string        `mapstructure:"scheme" yaml:"scheme"`
	Path           string        `mapstructure:"path" yaml:"path"`
	Username       string        `mapstructure:"username" yaml:"username"`
	Password       string        `mapstructure:"password" yaml:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ProbeConfig contains readiness probe settings
// ProbeConfig 包含就绪探测设置
type ProbeConfig struct {
	// Interval is the probe cadence (one second unless testing)
	// Interval 是探测节奏（除测试外为一秒）
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// PreCheckTimeout bounds the "is it already running" check, in intervals
	// PreCheckTimeout 限制"是否已在运行"检查的时长，以间隔数计
	PreCheckTimeout int `mapstructure:"pre_check_timeout" yaml:"pre_check_timeout"`
}

// TelemetryConfig contains OpenTelemetry tracing settings
// TelemetryConfig 包含 OpenTelemetry 追踪设置
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Exporter    string `mapstructure:"exporter" yaml:"exporter"` // otlp, stdout
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// MetricsConfig contains Prometheus export settings
// MetricsConfig 包含 Prometheus 导出设置
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url"`
	Job            string `mapstructure:"job" yaml:"job"`
	Textfile       string `mapstructure:"textfile" yaml:"textfile"`
}

// EventsConfig contains NATS event publishing settings
// EventsConfig 包含 NATS 事件发布设置
type EventsConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	NATSURL       string `mapstructure:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	BatchSize     int    `mapstructure:"batch_size" yaml:"batch_size"`

	// FlushInterval is the period of the background flush / 后台刷新周期
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
}

// ServerConfig is the persisted form of a target descriptor
// ServerConfig 是目标描述符的持久化形式
type ServerConfig struct {
	Name           string `mapstructure:"name" yaml:"name"`
	Kind           string `mapstructure:"kind" yaml:"kind"`
	Address        string `mapstructure:"address" yaml:"address"`
	ManagementPort int    `mapstructure:"management_port" yaml:"management_port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`

	// Local only / 仅本地
	Profile      string `mapstructure:"profile" yaml:"profile,omitempty"`
	InstallDir   string `mapstructure:"install_dir" yaml:"install_dir,omitempty"`
	ValidateHome bool   `mapstructure:"validate_home" yaml:"validate_home,omitempty"`

	// Remote only / 仅远程
	StartCommand string `mapstructure:"start_command" yaml:"start_command,omitempty"`
	StopCommand  string `mapstructure:"stop_command" yaml:"stop_command,omitempty"`
}

// Load loads configuration from file and environment variables
// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("JBOSSCTL_CONFIG_PATH"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		v.SetConfigFile(DefaultConfigPath)
	}

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix("JBOSSCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to defaults / 配置文件不存在时使用默认值
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadFromYAML loads configuration from YAML bytes
// LoadFromYAML 从 YAML 字节加载配置
func LoadFromYAML(yamlData []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(string(yamlData))); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output", DefaultLogOutput)
	v.SetDefault("log.file_path", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.compress", false)

	v.SetDefault("management.scheme", "http")
	v.SetDefault("management.path", "/jolokia/")
	v.SetDefault("management.request_timeout", DefaultRequestTimeout)

	v.SetDefault("probe.interval", DefaultProbeInterval)
	v.SetDefault("probe.pre_check_timeout", DefaultPreCheckTimeout)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter", "otlp")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", DefaultServiceName)

	v.SetDefault("metrics.job", DefaultMetricsJob)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.subject_prefix", DefaultSubjectPrefix)
	v.SetDefault("events.batch_size", DefaultEventBatchSize)
	v.SetDefault("events.flush_interval", DefaultEventFlush)
}

// Validate validates the configuration, including every server entry
// Validate 验证配置，包括每个服务器条目
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch c.Log.Output {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			return errors.New("log.file_path is required when log.output is file")
		}
	default:
		return fmt.Errorf("invalid log output: %s (must be stdout, stderr, or file)", c.Log.Output)
	}

	if c.Probe.Interval <= 0 {
		return errors.New("probe.interval must be positive")
	}
	if c.Probe.PreCheckTimeout <= 0 {
		return errors.New("probe.pre_check_timeout must be positive")
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "otlp", "stdout":
		default:
			return fmt.Errorf("invalid telemetry exporter: %s (must be otlp or stdout)", c.Telemetry.Exporter)
		}
	}
	if c.Events.Enabled && c.Events.NATSURL == "" {
		return errors.New("events.nats_url is required when events are enabled")
	}

	_, err := c.Targets()
	return err
}

// Targets converts the server entries into validated descriptors, in order
// Targets 将服务器条目按顺序转换为经过校验的描述符
func (c *Config) Targets() ([]target.Descriptor, error) {
	out := make([]target.Descriptor, 0, len(c.Servers))
	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		d, err := s.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("servers[%d]: %w", i, err)
		}
		if seen[d.Name()] {
			return nil, fmt.Errorf("servers[%d]: %w: %s", i, target.ErrDuplicateName, d.Name())
		}
		seen[d.Name()] = true
		out = append(out, d)
	}
	return out, nil
}

// Descriptor builds the target descriptor for one server entry
// Descriptor 为一个服务器条目构建目标描述符
func (s ServerConfig) Descriptor() (target.Descriptor, error) {
	kindName := s.Kind
	if kindName == "" {
		kindName = string(target.KindLocal)
	}
	kind, err := target.ParseKind(kindName)
	if err != nil {
		return target.Descriptor{}, err
	}

	common := target.Common{
		Name:           s.Name,
		Address:        s.Address,
		ManagementPort: s.ManagementPort,
		TimeoutSeconds: s.TimeoutSeconds,
	}
	if kind == target.KindRemote {
		if s.InstallDir != "" {
			return target.Descriptor{}, fmt.Errorf("remote server %s must not set install_dir", s.Name)
		}
		return target.NewRemote(target.RemoteParams{
			Common:       common,
			StartCommand: s.StartCommand,
			StopCommand:  s.StopCommand,
		})
	}

	if s.StartCommand != "" || s.StopCommand != "" {
		return target.Descriptor{}, fmt.Errorf("local server %s must not set start_command or stop_command", s.Name)
	}
	if s.ValidateHome {
		if err := target.ValidateInstallDirectory(s.InstallDir); err != nil {
			return target.Descriptor{}, err
		}
	}
	return target.NewLocal(target.LocalParams{
		Common:           common,
		Profile:          s.Profile,
		InstallDirectory: s.InstallDir,
	})
}

// String returns a string representation of the config (for debugging)
// String 返回配置的字符串表示（用于调试）
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Servers: %d, Log.Level: %s, Probe.Interval: %v, Telemetry.Enabled: %t, Events.Enabled: %t}",
		len(c.Servers),
		c.Log.Level,
		c.Probe.Interval,
		c.Telemetry.Enabled,
		c.Events.Enabled,
	)
}

// RedactedSecret replaces secrets in exported configuration
// RedactedSecret 用于替换导出配置中的敏感信息
const RedactedSecret = "******"

// ToYAML serializes the configuration to YAML format with the management
// password redacted
// ToYAML 将配置序列化为 YAML 格式，管理密码会被脱敏
func (c *Config) ToYAML() ([]byte, error) {
	out := *c
	if out.Management.Password != "" {
		out.Management.Password = RedactedSecret
	}
	return yaml.Marshal(&out)
}
