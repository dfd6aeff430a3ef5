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

// Package config provides configuration management for kproc.
// config 包提供 kproc 的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line arguments / 命令行参数
// 2. Environment variables (KPROC_*) / 环境变量（KPROC_*）
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultMaxProcs      = 65536
	DefaultPageSize      = 4096
	DefaultStackSize     = 56 * 1024
	DefaultProcNameLen   = 256
	DefaultLogLevel      = "info"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 3
	DefaultLogMaxAge     = 7 // days
	DefaultServiceName   = "kproc"
	DefaultTraceEndpoint = "localhost:4317"
	DefaultDebugListen   = "127.0.0.1:6060"

	// EnvPrefix prefixes every environment override
	// EnvPrefix 是所有环境变量覆盖的前缀
	EnvPrefix = "KPROC"
)

// Load loads configuration from file and environment variables. A missing
// file is not an error; defaults apply.
// Load 从文件和环境变量加载配置。文件不存在不是错误，使用默认值。
func Load(configPath string) (*Config, error) {
	return LoadWithPriority(configPath, nil)
}

// LoadWithPriority loads configuration with explicit priority handling
// LoadWithPriority 使用显式优先级处理加载配置
// Priority: cmdArgs > envVars > configFile > defaults
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值
func LoadWithPriority(configPath string, cmdArgs map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG_PATH")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				if _, statErr := os.Stat(configPath); statErr == nil {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
				// File doesn't exist, use defaults / 文件不存在，使用默认值
			}
		}
	}

	// Apply command line arguments (highest priority)
	// 应用命令行参数（最高优先级）
	for key, value := range cmdArgs {
		v.Set(key, value)
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
	// Kernel defaults / 内核默认值
	v.SetDefault("kernel.max_procs", DefaultMaxProcs)
	v.SetDefault("kernel.page_size", DefaultPageSize)
	v.SetDefault("kernel.stack_size", DefaultStackSize)
	v.SetDefault("kernel.max_stack_pages", 0)
	v.SetDefault("kernel.proc_name_len", DefaultProcNameLen)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)

	// Trace defaults / 追踪默认值
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.endpoint", DefaultTraceEndpoint)
	v.SetDefault("trace.insecure", true)
	v.SetDefault("trace.service_name", DefaultServiceName)

	// Debug server defaults / 调试服务默认值
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.listen", DefaultDebugListen)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	if c.Kernel.MaxProcs < 2 {
		return fmt.Errorf("kernel.max_procs must be at least 2 (idle and init), got %d", c.Kernel.MaxProcs)
	}
	if c.Kernel.PageSize <= 0 || c.Kernel.PageSize&(c.Kernel.PageSize-1) != 0 {
		return fmt.Errorf("kernel.page_size must be a positive power of two, got %d", c.Kernel.PageSize)
	}
	if c.Kernel.StackSize <= 0 {
		return errors.New("kernel.stack_size must be positive")
	}
	if c.Kernel.MaxStackPages < 0 {
		return errors.New("kernel.max_stack_pages must not be negative")
	}
	if c.Kernel.ProcNameLen <= 0 {
		return errors.New("kernel.proc_name_len must be positive")
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Trace.Enabled && c.Trace.Endpoint == "" {
		return errors.New("trace.endpoint is required when tracing is enabled")
	}
	if c.Debug.Enabled && c.Debug.Listen == "" {
		return errors.New("debug.listen is required when the debug server is enabled")
	}
	return nil
}

// ToYAML serializes the configuration to YAML format
// ToYAML 将配置序列化为 YAML 格式
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
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
