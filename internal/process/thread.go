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

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/mm"
	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/sched"
)

// EntryFunc is the code a thread runs. Its return value becomes the thread's
// exit value.
// EntryFunc 是线程运行的代码，其返回值即线程的退出值。
type EntryFunc func(t *Task, args any) int

// Thread is a thread record. It belongs to one process for its whole life.
// Thread 是线程记录，终生属于同一个进程。
type Thread struct {
	proc   pid.PID
	unit   *sched.Unit
	stack  *mm.Stack
	ctx    *mm.Context
	retval int
}

// Process returns the PID of the owning process
// Process 返回所属进程的 PID
func (thr *Thread) Process() pid.PID { return thr.proc }

// State returns the scheduling state. Anything between NoState and Exited is
// the scheduler's refinement of "scheduled".
// State 返回调度状态。NoState 与 Exited 之间的状态是调度器对"已调度"的细分。
func (thr *Thread) State() sched.State { return thr.unit.State() }

// Cancelled reports whether the thread has been cancelled
// Cancelled 报告线程是否已被取消
func (thr *Thread) Cancelled() bool { return thr.unit.Cancelled() }

// Retval returns the pending or final return value
// Retval 返回待定或最终的返回值
func (thr *Thread) Retval() int { return thr.retval }

// WaitChannel returns the queue the thread sleeps on, or nil
// WaitChannel 返回线程睡眠所在的队列，未睡眠时为 nil
func (thr *Thread) WaitChannel() *sched.WaitQueue { return thr.unit.WaitChannel() }

// Stack returns the thread stack, nil once destroyed
// Stack 返回线程栈，销毁后为 nil
func (thr *Thread) Stack() *mm.Stack { return thr.stack }

// CreateThread allocates a thread for p that will run entry(args). The thread
// is left in NoState; MakeRunnable hands it to the scheduler.
// CreateThread 为 p 分配一个将运行 entry(args) 的线程。线程保持 NoState，由 MakeRunnable 交给调度器。
func (m *ProcessManager) CreateThread(p *Process, entry EntryFunc, args any) (*Thread, error) {
	if p == nil {
		m.fatal("thread_create", "nil process")
	}

	stack, err := m.stacks.Allocate(m.stackSize)
	if err != nil {
		return nil, fmt.Errorf("%w: allocate stack for pid %d: %v", ErrResourceExhausted, p.pid, err)
	}

	thr := &Thread{
		proc:  p.pid,
		unit:  sched.NewUnit(fmt.Sprintf("%d:%s", p.pid, p.name)),
		stack: stack,
	}
	thr.ctx = mm.BuildContext(func(arg any) {
		m.trampoline(thr, entry, arg)
	}, args, stack, p.addrSpace)
	p.threads = append(p.threads, thr)

	m.logger.Debug("thread created", zap.Int("pid", int(p.pid)), zap.Int("stack_pages", stack.Pages()))
	return thr, nil
}

// MakeRunnable hands a freshly created thread to the scheduler
// MakeRunnable 将新创建的线程交给调度器
func (m *ProcessManager) MakeRunnable(thr *Thread) {
	m.sched.Spawn(thr.unit, thr.ctx.Run)
}

// trampoline is where every thread starts. A thread cancelled before it ever
// ran exits straight away; otherwise the entry's return value is its exit value.
// trampoline 是每个线程的起点。运行前已被取消的线程直接退出；否则入口函数的返回值即退出值。
func (m *ProcessManager) trampoline(thr *Thread, entry EntryFunc, arg any) {
	t := &Task{m: m, thr: thr, proc: m.table.record(thr.proc)}
	if thr.Cancelled() {
		m.ThreadExit(t, thr.retval)
	}
	m.ThreadExit(t, entry(t, arg))
}

// ThreadExit ends the calling thread with retval and, since a process owns
// one thread, the process with it. Init first reaps every child it still
// has. It never returns.
// ThreadExit 以 retval 结束调用线程；由于每个进程只有一个线程，进程也随之结束。
// init 会先回收它仍拥有的所有子进程。永不返回。
func (m *ProcessManager) ThreadExit(t *Task, retval int) {
	thr := t.thr
	if t.proc == m.initProc {
		m.reapAll(t)
	}
	if wchan := thr.unit.WaitChannel(); wchan != nil {
		m.fatal("thread_exit", "pid %d exits while linked into %s", thr.proc, wchan.Name())
	}
	if thr.proc != t.proc.pid {
		m.fatal("thread_exit", "thread of pid %d exiting on behalf of pid %d", thr.proc, t.proc.pid)
	}

	thr.retval = retval
	thr.unit.SetExited()
	m.markExited(t, retval)
	m.sched.SwitchAway(thr.unit)
}

// Cancel cancels thr with retval as its pending return value. Cancelling the
// caller's own thread is ThreadExit and does not return. A thread in a
// cancellable sleep is woken; any other thread notices on its next check.
// Cancel 以 retval 作为待定返回值取消 thr。取消调用方自身线程等同 ThreadExit 且不返回。
// 处于可取消睡眠的线程会被唤醒；其他线程在下次检查时感知。
func (m *ProcessManager) Cancel(t *Task, thr *Thread, retval int) {
	if thr == t.thr {
		m.ThreadExit(t, retval)
	}
	if thr.State() == sched.Exited {
		return
	}

	thr.retval = retval
	m.sched.Cancel(thr.unit)

	m.event(t.Context(), "thread.cancel", thr.proc, attribute.Int("retval", retval))
	m.observer.ThreadCancelled(thr.proc)
}

// destroyThread releases an exited, detached thread's stack and context
// destroyThread 释放已退出且已分离线程的栈和上下文
func (m *ProcessManager) destroyThread(thr *Thread) {
	if thr.State() != sched.Exited {
		m.fatal("thread_destroy", "thread of pid %d in state %s", thr.proc, thr.State())
	}
	if err := m.stacks.Free(thr.stack); err != nil {
		m.logger.Error("thread stack release reported a problem", zap.Int("pid", int(thr.proc)), zap.Error(err))
	}
	thr.stack = nil
	thr.ctx = nil
}
