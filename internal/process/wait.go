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
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/sched"
)

// AnyChild makes Wait collect whichever child dies first
// AnyChild 使 Wait 回收最先死亡的任一子进程
const AnyChild pid.PID = -1

// Wait reaps a dead child of the calling process and returns its PID and exit
// status. target is AnyChild or the PID of a child; options must be zero.
// The sleep is cancellable: a cancelled caller exits with its pending return
// value and Wait does not return.
// Wait 回收调用进程的一个已死亡子进程，返回其 PID 和退出状态。target 为 AnyChild 或某个子进程的 PID；
// options 必须为 0。睡眠可被取消：被取消的调用方以待定返回值退出，Wait 不再返回。
func (m *ProcessManager) Wait(t *Task, target pid.PID, options int) (pid.PID, int, error) {
	id, status, err := m.wait(t, target, options, true)
	if errors.Is(err, sched.ErrCancelled) {
		m.ThreadExit(t, t.thr.retval)
	}
	return id, status, err
}

func (m *ProcessManager) wait(t *Task, target pid.PID, options int, cancellable bool) (pid.PID, int, error) {
	if options != 0 {
		return pid.None, 0, fmt.Errorf("%w: wait options %#x", ErrInvalidArgument, options)
	}
	if target != AnyChild && target <= 0 {
		return pid.None, 0, fmt.Errorf("%w: wait target %d", ErrInvalidArgument, target)
	}

	self := t.proc
	for {
		if len(self.children) == 0 {
			return pid.None, 0, ErrNoChildren
		}

		var child *Process
		if target == AnyChild {
			for _, id := range self.children {
				if c := m.table.record(id); c.state == StateDead {
					child = c
					break
				}
			}
		} else {
			if !self.hasChild(target) {
				return pid.None, 0, fmt.Errorf("%w: pid %d is not a child of pid %d", ErrNoChildren, target, self.pid)
			}
			if c := m.table.record(target); c.state == StateDead {
				child = c
			}
		}

		if child != nil {
			return child.pid, m.reap(t, child), nil
		}
		if err := m.sched.SleepOn(t.thr.unit, self.wait, cancellable); err != nil {
			return pid.None, 0, err
		}
	}
}

// reapAll collects every child of the caller, sleeping through cancellation
// reapAll 回收调用方的所有子进程，睡眠期间忽略取消
func (m *ProcessManager) reapAll(t *Task) {
	for {
		if _, _, err := m.wait(t, AnyChild, 0, false); err != nil {
			return
		}
	}
}

// markExited moves the caller's process from RUNNING to DEAD once its thread
// has exited. Children are handed to init and the record leaves the live
// table; it stays reachable from its parent as a zombie until reaped.
// markExited 在线程退出后将调用进程从 RUNNING 置为 DEAD。子进程移交给 init，记录离开存活表；
// 在被回收前它作为僵尸进程仍可从父进程访问。
func (m *ProcessManager) markExited(t *Task, status int) {
	p := t.proc
	if m.initProc == nil {
		m.fatal("proc_exit", "pid %d exits with no init process", p.pid)
	}
	if p.pid < pid.Init {
		m.fatal("proc_exit", "idle process cannot exit")
	}
	parent := m.table.record(p.parent)
	if parent == nil {
		m.fatal("proc_exit", "pid %d has no parent record", p.pid)
	}
	for _, thr := range p.threads {
		if thr.State() != sched.Exited {
			m.fatal("proc_exit", "pid %d has a thread in state %s", p.pid, thr.State())
		}
	}

	p.status = status
	p.state = StateDead
	m.sched.WakeAll(parent.wait)

	if p != m.initProc && len(p.children) > 0 {
		initp := m.initProc
		wakeInit := false
		for _, id := range p.children {
			c := m.table.record(id)
			c.parent = initp.pid
			initp.children = append(initp.children, id)
			if c.state == StateDead {
				wakeInit = true
			}
		}
		m.logger.Debug("children reparented to init", zap.Int("pid", int(p.pid)), zap.Int("count", len(p.children)))
		p.children = nil
		// Dead orphans would otherwise never wake a sleeping init
		if wakeInit {
			m.sched.WakeAll(initp.wait)
		}
	}
	m.table.unlist(p.pid)

	m.event(t.Context(), "proc.exit", p.pid, attribute.Int("status", status))
	m.observer.ProcessExited(p.pid, status)
}

// reap destroys a dead child of the caller and returns its exit status. The
// child is unreachable afterwards and its PID can be handed out again.
// reap 销毁调用方的一个已死亡子进程并返回其退出状态。此后该子进程不可访问，其 PID 可被重新分配。
func (m *ProcessManager) reap(t *Task, child *Process) int {
	if child.state != StateDead {
		m.fatal("proc_reap", "pid %d reaped in state %s", child.pid, child.state)
	}
	if child.parent != t.proc.pid {
		m.fatal("proc_reap", "pid %d reaped by pid %d, parent is %d", child.pid, t.proc.pid, child.parent)
	}

	threads := child.threads
	child.threads = nil
	for _, thr := range threads {
		m.destroyThread(thr)
	}
	m.addrSpaces.Destroy(child.addrSpace)

	t.proc.removeChild(child.pid)
	m.table.free(child.pid)
	m.pids.Release(child.pid)
	if child == m.initProc {
		m.initProc = nil
	}

	m.event(t.Context(), "proc.reap", child.pid, attribute.Int("status", child.status))
	m.observer.ProcessReaped(child.pid, child.status)
	return child.status
}
