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

	"github.com/teachos/kproc/internal/mm"
	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/sched"
)

// State represents the lifecycle state of a process
// State 表示进程的生命周期状态
type State int

const (
	// StateRunning indicates the process has not exited
	// StateRunning 表示进程尚未退出
	StateRunning State = iota

	// StateDead indicates the process exited and awaits its parent (zombie)
	// StateDead 表示进程已退出，等待父进程回收（僵尸）
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Process is a process record. Parent and children are PIDs into the
// manager's arena; the record exclusively owns its threads and address space.
// Process 是进程记录。父进程和子进程以 PID 引用管理器的记录区；记录独占其线程和地址空间。
type Process struct {
	pid       pid.PID
	name      string
	parent    pid.PID
	children  []pid.PID
	threads   []*Thread
	state     State
	status    int
	wait      *sched.WaitQueue
	addrSpace mm.Handle
}

// PID returns the process identifier
// PID 返回进程标识符
func (p *Process) PID() pid.PID { return p.pid }

// Name returns the process name
// Name 返回进程名称
func (p *Process) Name() string { return p.name }

// Parent returns the parent PID, pid.None for the idle process
// Parent 返回父进程 PID，idle 进程返回 pid.None
func (p *Process) Parent() pid.PID { return p.parent }

// Children returns a copy of the child PIDs, live and zombie
// Children 返回子进程 PID 的副本（含存活与僵尸）
func (p *Process) Children() []pid.PID {
	return append([]pid.PID(nil), p.children...)
}

// Threads returns a copy of the owned threads
// Threads 返回所拥有线程的副本
func (p *Process) Threads() []*Thread {
	return append([]*Thread(nil), p.threads...)
}

// State returns the lifecycle state
// State 返回生命周期状态
func (p *Process) State() State { return p.state }

// Status returns the exit status, meaningful once the process is dead
// Status 返回退出状态，进程死亡后才有意义
func (p *Process) Status() int { return p.status }

// AddressSpace returns the address-space handle
// AddressSpace 返回地址空间句柄
func (p *Process) AddressSpace() mm.Handle { return p.addrSpace }

func (p *Process) hasChild(id pid.PID) bool {
	for _, c := range p.children {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Process) removeChild(id pid.PID) {
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}
