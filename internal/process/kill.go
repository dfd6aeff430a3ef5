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
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/pid"
)

// Kill terminates p with status. Killing the caller's own process is Exit
// and does not return; any other process has its thread cancelled.
// Kill 以 status 终止 p。终止调用方自身进程等同 Exit 且不返回；其他进程的线程会被取消。
func (m *ProcessManager) Kill(t *Task, p *Process, status int) {
	if p == t.proc {
		m.Exit(t, status)
	}
	m.event(t.Context(), "proc.kill", p.pid,
		attribute.Int("status", status),
		attribute.Int("killer", int(t.proc.pid)),
	)
	for _, thr := range p.Threads() {
		m.Cancel(t, thr, status)
	}
}

// KillAll kills every live process except idle, the direct children of idle
// and the caller, then kills the caller. It never returns.
// KillAll 终止除 idle、idle 的直接子进程和调用方以外的所有存活进程，最后终止调用方。永不返回。
func (m *ProcessManager) KillAll(t *Task) {
	if t.proc.pid == pid.Idle {
		m.fatal("proc_kill_all", "idle process cannot kill all")
	}
	killed := 0
	for _, p := range m.table.liveSnapshot() {
		if p.pid == pid.Idle || p.parent == pid.Idle || p == t.proc {
			continue
		}
		m.Kill(t, p, p.status)
		killed++
	}
	m.logger.Info("kill all", zap.Int("caller", int(t.proc.pid)), zap.Int("killed", killed))
	m.Kill(t, t.proc, t.proc.status)
}
