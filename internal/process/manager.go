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

package process

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/mm"
	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/sched"
)

// Default configuration values
// 默认配置值
const (
	// DefaultMaxProcs is the size of the PID space
	// DefaultMaxProcs 是 PID 空间大小
	DefaultMaxProcs = 65536

	// DefaultProcNameLen is the maximum process name length
	// DefaultProcNameLen 是进程名的最大长度
	DefaultProcNameLen = 256
)

// Options configures a ProcessManager. Zero values pick defaults.
// Options 配置 ProcessManager，零值使用默认值。
type Options struct {
	// MaxProcs is the size of the PID space
	// MaxProcs 是 PID 空间大小
	MaxProcs int

	// StackSize is the usable stack size of every thread in bytes
	// StackSize 是每个线程的可用栈大小（字节）
	StackSize int

	// ProcNameLen truncates process names
	// ProcNameLen 用于截断进程名
	ProcNameLen int

	// AddressSpaces creates and destroys address spaces
	// AddressSpaces 创建和销毁地址空间
	AddressSpaces mm.AddressSpaces

	// Stacks allocates thread stacks
	// Stacks 分配线程栈
	Stacks mm.StackAllocator

	// Logger receives lifecycle logs
	// Logger 接收生命周期日志
	Logger *zap.Logger

	// TracerProvider receives lifecycle transition spans
	// TracerProvider 接收生命周期转换的 span
	TracerProvider trace.TracerProvider

	// Observer is notified of lifecycle transitions
	// Observer 在生命周期转换时收到通知
	Observer Observer
}

// ProcessManager owns the process table and drives the lifecycle protocol
// ProcessManager 持有进程表并驱动生命周期协议
type ProcessManager struct {
	bootID      uuid.UUID
	sched       *sched.Scheduler
	pids        *pid.Allocator
	table       *table
	addrSpaces  mm.AddressSpaces
	stacks      mm.StackAllocator
	stackSize   int
	procNameLen int

	// initProc is the cached reparenting target
	// initProc 是缓存的重新父化目标
	initProc *Process

	logger   *zap.Logger
	olog     *otelzap.Logger
	tracer   trace.Tracer
	observer Observer

	bootMu sync.Mutex
	booted bool
}

// NewProcessManager creates a ProcessManager instance
// NewProcessManager 创建 ProcessManager 实例
func NewProcessManager(opts Options) *ProcessManager {
	if opts.MaxProcs <= 0 {
		opts.MaxProcs = DefaultMaxProcs
	}
	if opts.StackSize <= 0 {
		opts.StackSize = mm.DefaultStackSize
	}
	if opts.ProcNameLen <= 0 {
		opts.ProcNameLen = DefaultProcNameLen
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.AddressSpaces == nil {
		opts.AddressSpaces = mm.NewPageDirectories(opts.Logger)
	}
	if opts.Stacks == nil {
		opts.Stacks = mm.NewPageAllocator(mm.DefaultPageSize, 0, opts.Logger)
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = noop.NewTracerProvider()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	bootID := uuid.New()
	logger := opts.Logger.Named("process").With(zap.String("boot_id", bootID.String()))

	return &ProcessManager{
		bootID:      bootID,
		sched:       sched.New(opts.Logger),
		pids:        pid.NewAllocator(opts.MaxProcs),
		table:       newTable(),
		addrSpaces:  opts.AddressSpaces,
		stacks:      opts.Stacks,
		stackSize:   opts.StackSize,
		procNameLen: opts.ProcNameLen,
		logger:      logger,
		olog:        otelzap.New(logger),
		tracer:      opts.TracerProvider.Tracer("github.com/teachos/kproc/internal/process"),
		observer:    opts.Observer,
	}
}

// BootID identifies this manager instance in logs and spans
// BootID 在日志和 span 中标识此管理器实例
func (m *ProcessManager) BootID() uuid.UUID { return m.bootID }

// CreateProcess creates a process whose parent is the caller's process. A nil
// caller creates the idle process, which must be the first process.
// CreateProcess 创建以调用方进程为父进程的进程。调用方为 nil 时创建 idle 进程，它必须是第一个进程。
func (m *ProcessManager) CreateProcess(cur *Task, name string) (*Process, error) {
	var parent *Process
	if cur != nil {
		parent = cur.proc
	}

	id, err := m.pids.Allocate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	}
	if err := validateCreate(id, parent, m.table.empty()); err != nil {
		m.pids.Release(id)
		m.fatal("proc_create", "%s", err.Msg)
	}

	as, err := m.addrSpaces.Create()
	if err != nil {
		m.pids.Release(id)
		return nil, fmt.Errorf("%w: create address space: %v", ErrResourceExhausted, err)
	}

	name = truncateName(name, m.procNameLen)
	p := &Process{
		pid:       id,
		name:      name,
		parent:    pid.None,
		state:     StateRunning,
		wait:      sched.NewWaitQueue(fmt.Sprintf("p_wait:%d", id)),
		addrSpace: as,
	}
	if id == pid.Init {
		m.initProc = p
	}
	if parent != nil {
		p.parent = parent.pid
		parent.children = append(parent.children, id)
	}
	m.table.insert(p)

	m.event(cur.Context(), "proc.create", id,
		attribute.String("name", name),
		attribute.Int("parent", int(p.parent)),
	)
	m.observer.ProcessCreated(id, name)
	return p, nil
}

// validateCreate checks the bootstrap ordering rules for a new PID
// validateCreate 检查新 PID 的引导顺序规则
func validateCreate(id pid.PID, parent *Process, tableEmpty bool) *InvariantError {
	switch {
	case id == pid.Idle && !tableEmpty:
		return &InvariantError{Op: "proc_create", Msg: "idle pid handed out with a non-empty table"}
	case id != pid.Idle && parent == nil:
		return &InvariantError{Op: "proc_create", Msg: fmt.Sprintf("pid %d created without a parent", id)}
	case id == pid.Init && parent.pid != pid.Idle:
		return &InvariantError{Op: "proc_create", Msg: fmt.Sprintf("init created by pid %d instead of idle", parent.pid)}
	}
	return nil
}

// abortCreate undoes a CreateProcess whose thread could not be created
// abortCreate 撤销线程创建失败的 CreateProcess
func (m *ProcessManager) abortCreate(cur *Task, p *Process) {
	cur.proc.removeChild(p.pid)
	m.table.unlist(p.pid)
	m.table.free(p.pid)
	m.pids.Release(p.pid)
	m.addrSpaces.Destroy(p.addrSpace)
	if p == m.initProc {
		m.initProc = nil
	}
	m.logger.Warn("process creation aborted", zap.Int("pid", int(p.pid)), zap.String("name", p.name))
	m.event(cur.Context(), "proc.abort", p.pid, attribute.String("name", p.name))
	m.observer.ProcessAborted(p.pid)
}

// Exit ends the calling process with status. It never returns.
// Exit 以 status 结束调用进程，永不返回。
func (m *ProcessManager) Exit(t *Task, status int) {
	m.ThreadExit(t, status)
}

// Boot creates the idle process, which creates init running initMain(args)
// and waits for it. Init reaps every remaining child before it exits, see
// ThreadExit. Boot blocks until idle halts and returns init's exit status.
// Boot 创建 idle 进程，由它创建运行 initMain(args) 的 init 并等待其结束。init 退出前会回收所有剩余子进程，
// 参见 ThreadExit。Boot 阻塞直到 idle 停机，返回 init 的退出状态。
func (m *ProcessManager) Boot(initMain EntryFunc, args any) (int, error) {
	m.bootMu.Lock()
	if m.booted {
		m.bootMu.Unlock()
		return 0, ErrAlreadyBooted
	}
	m.booted = true
	m.bootMu.Unlock()

	var (
		status  int
		bootErr error
	)
	idleMain := func(t *Task, _ any) int {
		initp, err := m.CreateProcess(t, "init")
		if err != nil {
			bootErr = fmt.Errorf("create init: %w", err)
			m.halt(t)
		}
		thr, err := m.CreateThread(initp, initMain, args)
		if err != nil {
			m.abortCreate(t, initp)
			bootErr = fmt.Errorf("create init thread: %w", err)
			m.halt(t)
		}
		m.MakeRunnable(thr)

		// Idle outlives everything, so its wait ignores cancellation
		_, status, bootErr = m.wait(t, pid.Init, 0, false)
		m.halt(t)
		return 0
	}

	m.sched.Critical(func() {
		idle, err := m.CreateProcess(nil, "idle")
		if err != nil {
			bootErr = fmt.Errorf("create idle: %w", err)
			return
		}
		thr, err := m.CreateThread(idle, idleMain, nil)
		if err != nil {
			bootErr = fmt.Errorf("create idle thread: %w", err)
			return
		}
		m.logger.Info("booting", zap.Int("max_procs", m.pids.Max()))
		m.MakeRunnable(thr)
	})
	m.sched.Wait()

	return status, bootErr
}

// halt stops the idle thread without the process exit path; idle has no
// parent to collect it
// halt 停止 idle 线程而不走进程退出路径；idle 没有父进程来回收它
func (m *ProcessManager) halt(t *Task) {
	m.logger.Info("halted")
	t.thr.unit.SetExited()
	m.sched.SwitchAway(t.thr.unit)
}

// Lookup returns the live process with PID id. It takes the CPU, so it must
// not be called from a running Task; use Task.Lookup there.
// Lookup 返回 PID 为 id 的存活进程。它会获取 CPU，因此不能在运行中的 Task 内调用，请改用 Task.Lookup。
func (m *ProcessManager) Lookup(id pid.PID) (p *Process, ok bool) {
	m.sched.Critical(func() {
		p = m.table.lookup(id)
	})
	return p, p != nil
}

// truncateName cuts name to at most n bytes without splitting a rune
// truncateName 将 name 截断到最多 n 字节，且不拆分字符
func truncateName(name string, n int) string {
	if len(name) <= n {
		return name
	}
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}
