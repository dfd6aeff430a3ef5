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

// Config is the kproc configuration
// Config 是 kproc 的配置
type Config struct {
	// Kernel sizes the process core / 进程核心的规模配置
	Kernel KernelConfig `mapstructure:"kernel" yaml:"kernel"`

	// Log configuration / 日志配置
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Trace configuration / 链路追踪配置
	Trace TraceConfig `mapstructure:"trace" yaml:"trace"`

	// Debug server configuration / 调试服务配置
	Debug DebugConfig `mapstructure:"debug" yaml:"debug"`
}

// KernelConfig sizes the PID space, stacks and names
// KernelConfig 配置 PID 空间、栈和进程名的大小
type KernelConfig struct {
	// MaxProcs is the size of the PID space
	// MaxProcs 是 PID 空间大小
	MaxProcs int `mapstructure:"max_procs" yaml:"max_procs"`

	// PageSize is the stack allocator page size in bytes
	// PageSize 是栈分配器的页大小（字节）
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// StackSize is the usable stack size of a thread in bytes
	// StackSize 是线程可用栈大小（字节）
	StackSize int `mapstructure:"stack_size" yaml:"stack_size"`

	// MaxStackPages caps the pages handed out to stacks, 0 means unlimited
	// MaxStackPages 限制分配给栈的页数，0 表示不限制
	MaxStackPages int `mapstructure:"max_stack_pages" yaml:"max_stack_pages"`

	// ProcNameLen truncates process names
	// ProcNameLen 用于截断进程名
	ProcNameLen int `mapstructure:"proc_name_len" yaml:"proc_name_len"`
}

// LogConfig contains logging settings
// LogConfig 包含日志设置
type LogConfig struct {
	// Level is the log level (debug, info, warn, error)
	// Level 是日志级别（debug, info, warn, error）
	Level string `mapstructure:"level" yaml:"level"`

	// File is the log file path, empty logs to stderr
	// File 是日志文件路径，为空时输出到标准错误
	File string `mapstructure:"file" yaml:"file"`

	// MaxSize is the maximum size of log file in MB before rotation
	// MaxSize 是日志文件轮转前的最大大小（MB）
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`

	// MaxBackups is the maximum number of old log files to retain
	// MaxBackups 是保留的旧日志文件的最大数量
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`

	// MaxAge is the maximum number of days to retain old log files
	// MaxAge 是保留旧日志文件的最大天数
	MaxAge int `mapstructure:"max_age" yaml:"max_age"`
}

// TraceConfig contains OpenTelemetry export settings
// TraceConfig 包含 OpenTelemetry 导出设置
type TraceConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// DebugConfig contains the diagnostics HTTP server settings
// DebugConfig 包含诊断 HTTP 服务设置
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}
