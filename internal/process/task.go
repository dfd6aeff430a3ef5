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
	"context"

	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/sched"
)

// Task is the execution context of the running thread. It is handed to every
// thread entry and threaded through every lifecycle call.
// Task 是当前运行线程的执行上下文，传给每个线程入口并贯穿所有生命周期调用。
type Task struct {
	m    *ProcessManager
	thr  *Thread
	proc *Process
}

// Thread returns the running thread
// Thread 返回当前运行线程
func (t *Task) Thread() *Thread { return t.thr }

// Process returns the running process
// Process 返回当前运行进程
func (t *Task) Process() *Process { return t.proc }

// PID returns the running process's PID
// PID 返回当前运行进程的 PID
func (t *Task) PID() pid.PID { return t.proc.pid }

// Context returns the thread's cancellation token
// Context 返回线程的取消令牌
func (t *Task) Context() context.Context {
	if t == nil || t.thr == nil {
		return context.Background()
	}
	return t.thr.unit.Context()
}

// Cancelled reports whether the running thread has been cancelled
// Cancelled 报告当前线程是否已被取消
func (t *Task) Cancelled() bool { return t.thr.Cancelled() }

// ExitIfCancelled exits with the pending return value if cancelled
// ExitIfCancelled 若已被取消则以待定返回值退出
func (t *Task) ExitIfCancelled() {
	if t.thr.Cancelled() {
		t.m.ThreadExit(t, t.thr.retval)
	}
}

// Exit ends the running process with status. It never returns.
// Exit 以 status 结束当前进程，永不返回。
func (t *Task) Exit(status int) { t.m.Exit(t, status) }

// Spawn creates a child process running entry(args) and makes it runnable
// Spawn 创建运行 entry(args) 的子进程并使其可运行
func (t *Task) Spawn(name string, entry EntryFunc, args any) (pid.PID, error) {
	p, err := t.m.CreateProcess(t, name)
	if err != nil {
		return pid.None, err
	}
	thr, err := t.m.CreateThread(p, entry, args)
	if err != nil {
		t.m.abortCreate(t, p)
		return pid.None, err
	}
	t.m.MakeRunnable(thr)
	return p.pid, nil
}

// Wait waits for a child, see ProcessManager.Wait
// Wait 等待子进程，参见 ProcessManager.Wait
func (t *Task) Wait(target pid.PID) (pid.PID, int, error) {
	return t.m.Wait(t, target, 0)
}

// Kill terminates the process with PID target
// Kill 终止 PID 为 target 的进程
func (t *Task) Kill(target pid.PID, status int) error {
	p := t.m.table.lookup(target)
	if p == nil {
		return ErrNoSuchProcess
	}
	t.m.Kill(t, p, status)
	return nil
}

// KillAll tears down every process except idle, idle's children and the
// caller, then the caller. It never returns.
// KillAll 终止除 idle、idle 的子进程和调用方以外的所有进程，最后终止调用方。永不返回。
func (t *Task) KillAll() { t.m.KillAll(t) }

// SleepOn puts the running thread to sleep on q
// SleepOn 使当前线程在 q 上睡眠
func (t *Task) SleepOn(q *sched.WaitQueue, cancellable bool) error {
	return t.m.sched.SleepOn(t.thr.unit, q, cancellable)
}

// WakeAll wakes every thread sleeping on q
// WakeAll 唤醒 q 上所有睡眠线程
func (t *Task) WakeAll(q *sched.WaitQueue) { t.m.sched.WakeAll(q) }

// Yield lets other runnable threads run
// Yield 让其他可运行线程运行
func (t *Task) Yield() { t.m.sched.Yield() }

// Lookup returns the live process with PID id, or nil
// Lookup 返回 PID 为 id 的存活进程，不存在时为 nil
func (t *Task) Lookup(id pid.PID) *Process { return t.m.table.lookup(id) }

// Info returns the diagnostic dump of a live or zombie process
// Info 返回存活或僵尸进程的诊断信息
func (t *Task) Info(id pid.PID) (string, error) { return t.m.info(id) }

// ListInfo returns the diagnostic listing of the process table
// ListInfo 返回进程表的诊断列表
func (t *Task) ListInfo() string { return t.m.listInfo() }
