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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestLoadConfig tests configuration loading
// TestLoadConfig 测试配置加载
func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
kernel:
  max_procs: 128
  stack_size: 8192
  proc_name_len: 16

log:
  level: debug
  file: /tmp/kproc.log
  max_size: 50

trace:
  enabled: true
  endpoint: collector:4317

debug:
  enabled: true
  listen: ":7070"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 128, cfg.Kernel.MaxProcs)
	assert.Equal(t, 8192, cfg.Kernel.StackSize)
	assert.Equal(t, DefaultPageSize, cfg.Kernel.PageSize)
	assert.Equal(t, 16, cfg.Kernel.ProcNameLen)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/kproc.log", cfg.Log.File)
	assert.Equal(t, 50, cfg.Log.MaxSize)
	assert.Equal(t, DefaultLogMaxBackups, cfg.Log.MaxBackups)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "collector:4317", cfg.Trace.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.Trace.ServiceName)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, ":7070", cfg.Debug.Listen)
	assert.NoError(t, cfg.Validate())
}

// TestLoadConfigDefaults tests default configuration values
// TestLoadConfigDefaults 测试默认配置值
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxProcs, cfg.Kernel.MaxProcs)
	assert.Equal(t, DefaultPageSize, cfg.Kernel.PageSize)
	assert.Equal(t, DefaultStackSize, cfg.Kernel.StackSize)
	assert.Equal(t, 0, cfg.Kernel.MaxStackPages)
	assert.Equal(t, DefaultProcNameLen, cfg.Kernel.ProcNameLen)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
	assert.False(t, cfg.Trace.Enabled)
	assert.False(t, cfg.Debug.Enabled)
	assert.Equal(t, DefaultDebugListen, cfg.Debug.Listen)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigBadFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("kernel: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

// TestLoadWithPriority tests that flags beat environment beats file
// TestLoadWithPriority 测试命令行参数优先于环境变量，环境变量优先于文件
func TestLoadWithPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("kernel:\n  max_procs: 100\n  proc_name_len: 10\nlog:\n  level: warn\n"), 0644))

	t.Setenv("KPROC_KERNEL_MAX_PROCS", "200")
	t.Setenv("KPROC_LOG_LEVEL", "error")

	cfg, err := LoadWithPriority(configPath, map[string]any{"log.level": "debug"})
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Kernel.MaxProcs)
	assert.Equal(t, 10, cfg.Kernel.ProcNameLen)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("kernel:\n  max_procs: 42\n"), 0644))
	t.Setenv("KPROC_CONFIG_PATH", configPath)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Kernel.MaxProcs)
}

// TestValidateConfig tests configuration validation
// TestValidateConfig 测试配置验证
func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadFromYAML([]byte("{}"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "no room for init", mutate: func(c *Config) { c.Kernel.MaxProcs = 1 }, wantErr: "max_procs"},
		{name: "odd page size", mutate: func(c *Config) { c.Kernel.PageSize = 3000 }, wantErr: "page_size"},
		{name: "zero stack", mutate: func(c *Config) { c.Kernel.StackSize = 0 }, wantErr: "stack_size"},
		{name: "negative stack budget", mutate: func(c *Config) { c.Kernel.MaxStackPages = -1 }, wantErr: "max_stack_pages"},
		{name: "zero name length", mutate: func(c *Config) { c.Kernel.ProcNameLen = 0 }, wantErr: "proc_name_len"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "upper log level", mutate: func(c *Config) { c.Log.Level = "WARN" }},
		{name: "trace without endpoint", mutate: func(c *Config) {
			c.Trace.Enabled = true
			c.Trace.Endpoint = ""
		}, wantErr: "trace.endpoint"},
		{name: "debug without listen", mutate: func(c *Config) {
			c.Debug.Enabled = true
			c.Debug.Listen = ""
		}, wantErr: "debug.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

// Property: For any valid configuration, serializing to YAML and parsing back
// produces an equal configuration.
// 属性：对于任何有效配置，序列化为 YAML 并解析回来应产生相等的配置。
func TestProperty_ConfigYAMLRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &Config{
			Kernel: KernelConfig{
				MaxProcs:      rapid.IntRange(2, 1<<20).Draw(t, "maxProcs"),
				PageSize:      1 << rapid.IntRange(9, 16).Draw(t, "pageShift"),
				StackSize:     rapid.IntRange(1, 1<<20).Draw(t, "stackSize"),
				MaxStackPages: rapid.IntRange(0, 1<<16).Draw(t, "maxStackPages"),
				ProcNameLen:   rapid.IntRange(1, 1024).Draw(t, "procNameLen"),
			},
			Log: LogConfig{
				Level:      rapid.SampledFrom([]string{"debug", "info", "warn", "error"}).Draw(t, "level"),
				File:       rapid.StringMatching(`(/[a-z][a-z0-9_]{0,8}){0,3}`).Draw(t, "file"),
				MaxSize:    rapid.IntRange(1, 1000).Draw(t, "maxSize"),
				MaxBackups: rapid.IntRange(0, 30).Draw(t, "maxBackups"),
				MaxAge:     rapid.IntRange(0, 365).Draw(t, "maxAge"),
			},
			Trace: TraceConfig{
				Enabled:     rapid.Bool().Draw(t, "traceEnabled"),
				Endpoint:    rapid.StringMatching(`[a-z][a-z0-9]{0,10}:[1-9][0-9]{3}`).Draw(t, "endpoint"),
				Insecure:    rapid.Bool().Draw(t, "insecure"),
				ServiceName: rapid.StringMatching(`[a-z][a-z0-9-]{0,15}`).Draw(t, "serviceName"),
			},
			Debug: DebugConfig{
				Enabled: rapid.Bool().Draw(t, "debugEnabled"),
				Listen:  rapid.StringMatching(`127\.0\.0\.1:[1-9][0-9]{3}`).Draw(t, "listen"),
			},
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("generated config is invalid: %v", err)
		}

		data, err := cfg.ToYAML()
		if err != nil {
			t.Fatalf("Failed to serialize config to YAML: %v", err)
		}
		parsed, err := LoadFromYAML(data)
		if err != nil {
			t.Fatalf("Failed to parse config from YAML: %v\nYAML content:\n%s", err, data)
		}
		if *cfg != *parsed {
			t.Fatalf("Round-trip failed\nOriginal: %+v\nParsed: %+v\nYAML:\n%s", cfg, parsed, data)
		}
	})
}
