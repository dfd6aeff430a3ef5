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
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/teachos/kproc/internal/pid"
)

// ChildInfo names one child of a process
// ChildInfo 描述进程的一个子进程
type ChildInfo struct {
	PID  pid.PID `json:"pid"`
	Name string  `json:"name"`
}

// ProcessInfo is a point-in-time view of one process record
// ProcessInfo 是某个进程记录的时间点视图
type ProcessInfo struct {
	PID         pid.PID     `json:"pid"`
	Name        string      `json:"name"`
	Parent      pid.PID     `json:"parent"`
	ParentName  string      `json:"parent_name,omitempty"`
	Threads     int         `json:"threads"`
	Children    []ChildInfo `json:"children"`
	Status      int         `json:"status"`
	State       string      `json:"state"`
	ThreadState string      `json:"thread_state,omitempty"`
	StackBytes  int         `json:"stack_bytes"`
}

func (m *ProcessManager) describe(p *Process) ProcessInfo {
	info := ProcessInfo{
		PID:      p.pid,
		Name:     p.name,
		Parent:   p.parent,
		Threads:  len(p.threads),
		Children: make([]ChildInfo, 0, len(p.children)),
		Status:   p.status,
		State:    p.state.String(),
	}
	if parent := m.table.record(p.parent); parent != nil {
		info.ParentName = parent.name
	}
	for _, id := range p.children {
		if c := m.table.record(id); c != nil {
			info.Children = append(info.Children, ChildInfo{PID: id, Name: c.name})
		}
	}
	for _, thr := range p.threads {
		info.ThreadState = thr.State().String()
		if thr.stack != nil {
			info.StackBytes += thr.stack.Size()
		}
	}
	return info
}

// Format renders the record in the kernel's proc info layout
// Format 以内核 proc info 布局渲染记录
func (i ProcessInfo) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pid:          %d\n", i.PID)
	fmt.Fprintf(&b, "name:         %s\n", i.Name)
	if i.Parent == pid.None {
		b.WriteString("parent:       -\n")
	} else {
		fmt.Fprintf(&b, "parent:       %d (%s)\n", i.Parent, i.ParentName)
	}
	fmt.Fprintf(&b, "thread count: %d\n", i.Threads)
	if len(i.Children) == 0 {
		b.WriteString("children:     -\n")
	} else {
		b.WriteString("children:\n")
	}
	for _, c := range i.Children {
		fmt.Fprintf(&b, "     %d (%s)\n", c.PID, c.Name)
	}
	fmt.Fprintf(&b, "status:       %d\n", i.Status)
	fmt.Fprintf(&b, "state:        %s\n", i.State)
	fmt.Fprintf(&b, "stack:        %s\n", humanize.IBytes(uint64(i.StackBytes)))
	return b.String()
}

func (m *ProcessManager) info(id pid.PID) (string, error) {
	p := m.table.record(id)
	if p == nil {
		return "", fmt.Errorf("%w: pid %d", ErrNoSuchProcess, id)
	}
	return m.describe(p).Format(), nil
}

func (m *ProcessManager) listInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%5s %-13s %-s\n", "PID", "NAME", "PARENT")
	for _, p := range m.table.liveSnapshot() {
		parent := "  -"
		if pp := m.table.record(p.parent); pp != nil {
			parent = fmt.Sprintf("%3d (%s)", pp.pid, pp.name)
		}
		fmt.Fprintf(&b, " %3d  %-13s %-s\n", p.pid, p.name, parent)
	}
	return b.String()
}

// Info returns the diagnostic dump of a live or zombie process. It takes the
// CPU and must not be called from a running Task.
// Info 返回存活或僵尸进程的诊断信息。它会获取 CPU，不能在运行中的 Task 内调用。
func (m *ProcessManager) Info(id pid.PID) (out string, err error) {
	m.sched.Critical(func() {
		out, err = m.info(id)
	})
	return out, err
}

// ListInfo returns the diagnostic listing of the live process table
// ListInfo 返回存活进程表的诊断列表
func (m *ProcessManager) ListInfo() (out string) {
	m.sched.Critical(func() {
		out = m.listInfo()
	})
	return out
}

// Snapshot returns every live process in table order
// Snapshot 按表顺序返回所有存活进程
func (m *ProcessManager) Snapshot() []ProcessInfo {
	var infos []ProcessInfo
	m.sched.Critical(func() {
		for _, p := range m.table.liveSnapshot() {
			infos = append(infos, m.describe(p))
		}
	})
	return infos
}

// Describe returns the view of a live or zombie process
// Describe 返回存活或僵尸进程的视图
func (m *ProcessManager) Describe(id pid.PID) (info ProcessInfo, err error) {
	m.sched.Critical(func() {
		p := m.table.record(id)
		if p == nil {
			err = fmt.Errorf("%w: pid %d", ErrNoSuchProcess, id)
			return
		}
		info = m.describe(p)
	})
	return info, err
}
