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

// Package main is the entry point of the kproc CLI.
// main 包是 kproc 命令行工具的入口点。
//
// kproc boots the process lifecycle core of a teaching kernel on goroutines:
// kproc 在 goroutine 上启动教学内核的进程生命周期核心：
// - idle (pid 0) creates init (pid 1) and waits for it / idle（pid 0）创建 init（pid 1）并等待它
// - init runs a workload and reaps every orphan / init 运行工作负载并回收所有孤儿进程
// - diagnostics are served over HTTP when enabled / 启用时通过 HTTP 提供诊断信息
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/config"
	"github.com/teachos/kproc/internal/debugserver"
	"github.com/teachos/kproc/internal/logger"
	"github.com/teachos/kproc/internal/metrics"
	"github.com/teachos/kproc/internal/mm"
	"github.com/teachos/kproc/internal/otel_trace"
	"github.com/teachos/kproc/internal/process"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Kernel wires the process core to its collaborators and ambient services
// Kernel 将进程核心与其协作者和周边服务连接起来
type Kernel struct {
	// config holds the kernel configuration
	// config 保存内核配置
	config *config.Config

	logger  *zap.Logger
	tracing *otel_trace.Tracing

	// collector counts lifecycle transitions
	// collector 统计生命周期转换
	collector *metrics.Collector

	// procs is the process core
	// procs 是进程核心
	procs *process.ProcessManager

	// debug is nil unless debug.enabled is set
	// debug 仅在设置 debug.enabled 时非空
	debug *debugserver.Server
}

// NewKernel creates a Kernel with all components initialized
// NewKernel 创建一个初始化所有组件的 Kernel
func NewKernel(ctx context.Context, cfg *config.Config, log *zap.Logger) *Kernel {
	tracing := otel_trace.Init(ctx, cfg.Trace, log)
	collector := metrics.NewCollector()

	procs := process.NewProcessManager(process.Options{
		MaxProcs:       cfg.Kernel.MaxProcs,
		StackSize:      cfg.Kernel.StackSize,
		ProcNameLen:    cfg.Kernel.ProcNameLen,
		AddressSpaces:  mm.NewPageDirectories(log),
		Stacks:         mm.NewPageAllocator(cfg.Kernel.PageSize, cfg.Kernel.MaxStackPages, log),
		Logger:         log,
		TracerProvider: tracing.Provider(),
		Observer:       collector,
	})

	k := &Kernel{
		config:    cfg,
		logger:    log,
		tracing:   tracing,
		collector: collector,
		procs:     procs,
	}
	if cfg.Debug.Enabled {
		k.debug = debugserver.New(procs, debugserver.Options{
			Listen:         cfg.Debug.Listen,
			ServiceName:    cfg.Trace.ServiceName,
			Metrics:        collector.Handler(),
			TracerProvider: tracing.Provider(),
			Logger:         log,
		})
	}
	return k
}

// Boot runs workload as init and returns init's exit status
// Boot 以 init 身份运行 workload 并返回 init 的退出状态
func (k *Kernel) Boot(workload process.EntryFunc) (int, error) {
	if k.debug != nil {
		k.debug.Start()
	}
	k.logger.Info("kernel boot", zap.String("boot_id", k.procs.BootID().String()))
	return k.procs.Boot(workload, nil)
}

// Shutdown stops the ambient services, collecting every error
// Shutdown 停止周边服务并汇总所有错误
func (k *Kernel) Shutdown(ctx context.Context) error {
	var err error
	if k.debug != nil {
		err = multierr.Append(err, k.debug.Shutdown(ctx))
	}
	err = multierr.Append(err, k.tracing.Shutdown(ctx))
	_ = k.logger.Sync()
	return err
}

// rootCmd is the root command for the kproc CLI
// rootCmd 是 kproc CLI 的根命令
var rootCmd = &cobra.Command{
	Use:   "kproc",
	Short: "kproc - process lifecycle core of a teaching kernel",
	Long: `kproc boots the process lifecycle core of a teaching kernel.
kproc 启动教学内核的进程生命周期核心。

It models:
它模拟：
- PID allocation and the process table / PID 分配与进程表
- exit, zombie and reap / 退出、僵尸与回收
- cancel, kill and kill-all / 取消、终止与全部终止`,
	SilenceUsage: true,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kproc\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// configCmd prints the effective configuration
// configCmd 打印生效的配置
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML / 以 YAML 打印生效配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.ToYAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// bootCmd boots a kernel running the demo workload
// bootCmd 启动运行演示工作负载的内核
var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot a kernel and run the demo workload / 启动内核并运行演示工作负载",
	RunE:  runBoot,
}

var (
	// configFile is the path to the configuration file
	// configFile 是配置文件的路径
	configFile string

	workers int
	depth   int
)

func init() {
	// Add flags to root command
	// 向根命令添加标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: $KPROC_CONFIG_PATH)")
	bootCmd.Flags().IntVarP(&workers, "workers", "w", 3, "number of worker processes init spawns")
	bootCmd.Flags().IntVarP(&depth, "depth", "d", 2, "descendants each worker spawns in a chain")

	// Add subcommands
	// 添加子命令
	rootCmd.AddCommand(bootCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w / 加载配置失败：%w", err, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w / 无效配置：%w", err, err)
	}
	return cfg, nil
}

// runBoot is the main entry point of the boot command
// runBoot 是 boot 命令的主入口点
func runBoot(cmd *cobra.Command, args []string) error {
	if workers < 0 || depth < 0 {
		return fmt.Errorf("--workers and --depth must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	k := NewKernel(ctx, cfg, log)

	out := cmd.OutOrStdout()
	status, bootErr := k.Boot(demoWorkload(workers, depth, out))
	if bootErr == nil {
		fmt.Fprintf(out, "init exited with status %d / init 退出状态 %d\n", status, status)
	}

	if k.debug != nil && bootErr == nil {
		// Keep serving diagnostics until interrupted
		// 持续提供诊断信息直到被中断
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		fmt.Fprintf(out, "serving diagnostics on %s, press Ctrl+C to exit\n", cfg.Debug.Listen)
		sig := <-sigChan
		fmt.Fprintf(out, "\nReceived signal: %v / 收到信号：%v\n", sig, sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return multierr.Append(bootErr, k.Shutdown(shutdownCtx))
}

// Execute runs the root command with args, writing to out
// Execute 使用 args 运行根命令并输出到 out
func Execute(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	return rootCmd.Execute()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
