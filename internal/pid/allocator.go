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

// Package pid provides the process identifier allocator.
// pid 包提供进程标识符分配器。
//
// Identifiers come from the fixed space [0, max). Allocation starts at a
// rotating cursor and returns the lowest free id at or after it, wrapping
// around once before giving up.
// 标识符来自固定空间 [0, max)。分配从轮转游标开始，返回游标处或之后最小的空闲 ID，
// 最多回绕一圈后放弃。
package pid

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// PID is a process identifier
// PID 是进程标识符
type PID int

const (
	// None marks the absence of a process (the idle process has no parent)
	// None 表示不存在的进程（idle 进程没有父进程）
	None PID = -1

	// Idle is reserved for the bootstrap process
	// Idle 保留给引导进程
	Idle PID = 0

	// Init is reserved for the init process, the universal reparenting target
	// Init 保留给 init 进程，即统一的重新父化目标
	Init PID = 1
)

// ErrExhausted indicates every id in the space is in use
// ErrExhausted 表示 ID 空间已全部占用
var ErrExhausted = errors.New("pid space exhausted")

// Allocator hands out unique PIDs. It is not safe for concurrent use; callers
// serialize through the scheduler.
// Allocator 分配唯一 PID。非并发安全，调用方通过调度器串行化。
type Allocator struct {
	max   int
	next  PID
	inUse mapset.Set[PID]
}

// NewAllocator creates an allocator over [0, max)
// NewAllocator 创建覆盖 [0, max) 的分配器
func NewAllocator(max int) *Allocator {
	if max <= 0 {
		panic(fmt.Sprintf("pid: invalid id space size %d", max))
	}
	return &Allocator{
		max:   max,
		inUse: mapset.NewThreadUnsafeSet[PID](),
	}
}

// Allocate returns the lowest free id at or after the cursor, scanning the
// id space cyclically. The cursor moves past the returned id.
// Allocate 循环扫描 ID 空间，返回游标处或之后最小的空闲 ID，并将游标移过该 ID。
func (a *Allocator) Allocate() (PID, error) {
	start := a.next
	id := start
	for a.inUse.Contains(id) {
		id = (id + 1) % PID(a.max)
		if id == start {
			return None, fmt.Errorf("%w: all %d ids in use", ErrExhausted, a.max)
		}
	}
	a.inUse.Add(id)
	a.next = (id + 1) % PID(a.max)
	return id, nil
}

// Release returns id to the free space. Releasing a free id is a no-op.
// Release 将 ID 归还到空闲空间。归还空闲 ID 不做任何操作。
func (a *Allocator) Release(id PID) {
	a.inUse.Remove(id)
}

// InUse reports whether id is currently allocated
// InUse 报告 ID 是否已分配
func (a *Allocator) InUse(id PID) bool {
	return a.inUse.Contains(id)
}

// Len returns the number of allocated ids
// Len 返回已分配的 ID 数量
func (a *Allocator) Len() int {
	return a.inUse.Cardinality()
}

// Max returns the size of the id space
// Max 返回 ID 空间大小
func (a *Allocator) Max() int {
	return a.max
}
