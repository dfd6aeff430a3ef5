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

// Package mm provides the memory collaborators of the process core: address
// space handles, thread stacks and execution contexts.
// mm 包提供进程核心依赖的内存协作者：地址空间句柄、线程栈和执行上下文。
package mm

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Common errors for memory management
// 内存管理的常见错误
var (
	// ErrOutOfMemory indicates the page budget is spent
	// ErrOutOfMemory 表示页面配额已用尽
	ErrOutOfMemory = errors.New("out of memory")

	// ErrStackOverflow indicates the sentinel page of a stack was overwritten
	// ErrStackOverflow 表示栈的哨兵页已被覆盖
	ErrStackOverflow = errors.New("stack sentinel page overwritten")

	// ErrDoubleFree indicates a stack was freed twice
	// ErrDoubleFree 表示栈被重复释放
	ErrDoubleFree = errors.New("stack freed twice")
)

// Handle is an opaque address-space handle
// Handle 是不透明的地址空间句柄
type Handle uint64

// NoHandle is the zero handle, never returned by Create
// NoHandle 是零句柄，Create 不会返回它
const NoHandle Handle = 0

// AddressSpaces creates and destroys address spaces
// AddressSpaces 创建和销毁地址空间
type AddressSpaces interface {
	Create() (Handle, error)
	Destroy(h Handle)
}

// PageDirectories is an in-memory AddressSpaces that tracks live handles
// PageDirectories 是跟踪存活句柄的内存版 AddressSpaces
type PageDirectories struct {
	mu     sync.Mutex
	next   Handle
	live   map[Handle]struct{}
	logger *zap.Logger
}

// NewPageDirectories creates an empty page directory manager
// NewPageDirectories 创建空的页目录管理器
func NewPageDirectories(logger *zap.Logger) *PageDirectories {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageDirectories{
		live:   make(map[Handle]struct{}),
		logger: logger.Named("pagedir"),
	}
}

// Create returns a fresh handle
// Create 返回新的句柄
func (d *PageDirectories) Create() (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.live[d.next] = struct{}{}
	return d.next, nil
}

// Destroy releases h. Destroying an unknown handle is fatal.
// Destroy 释放 h。销毁未知句柄是致命错误。
func (d *PageDirectories) Destroy(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[h]; !ok {
		d.logger.Error("destroy of unknown page directory", zap.Uint64("handle", uint64(h)))
		panic(fmt.Sprintf("mm: destroy of unknown page directory %d", h))
	}
	delete(d.live, h)
}

// Live returns the number of handles not yet destroyed
// Live 返回尚未销毁的句柄数量
func (d *PageDirectories) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}
