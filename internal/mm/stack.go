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

package mm

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Default sizes
// 默认大小
const (
	// DefaultPageSize is the page size in bytes
	// DefaultPageSize 是页面大小（字节）
	DefaultPageSize = 4096

	// DefaultStackSize is the usable thread stack size in bytes
	// DefaultStackSize 是线程栈的可用大小（字节）
	DefaultStackSize = 56 * 1024
)

// sentinel fills the extra page below every stack
var sentinel = [...]byte{0xde, 0xad, 0xbe, 0xef}

// Stack is a thread stack. The lowest page is reserved for sentinel data and
// is not part of the usable region.
// Stack 是线程栈。最低的一页保留给哨兵数据，不属于可用区域。
type Stack struct {
	mem      []byte
	pages    int
	pageSize int
}

// Pages returns the number of pages backing the stack, sentinel page included
// Pages 返回栈占用的页数（含哨兵页）
func (s *Stack) Pages() int { return s.pages }

// Size returns the usable size in bytes
// Size 返回可用大小（字节）
func (s *Stack) Size() int { return (s.pages - 1) * s.pageSize }

// Usable returns the usable region
// Usable 返回可用区域
func (s *Stack) Usable() []byte { return s.mem[s.pageSize:] }

func (s *Stack) intact() bool {
	for i := 0; i < s.pageSize; i++ {
		if s.mem[i] != sentinel[i%len(sentinel)] {
			return false
		}
	}
	return true
}

// StackAllocator allocates and frees thread stacks
// StackAllocator 分配和释放线程栈
type StackAllocator interface {
	Allocate(size int) (*Stack, error)
	Free(s *Stack) error
}

// PageAllocator hands out page-granular stacks from an optional page budget
// PageAllocator 从可选的页面配额中分配以页为粒度的栈
type PageAllocator struct {
	pageSize  int
	maxPages  int
	livePages int
	mu        sync.Mutex
	logger    *zap.Logger
}

// NewPageAllocator creates an allocator. maxPages <= 0 means unlimited.
// NewPageAllocator 创建分配器。maxPages <= 0 表示不限制。
func NewPageAllocator(pageSize, maxPages int, logger *zap.Logger) *PageAllocator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageAllocator{
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger.Named("stack"),
	}
}

// Allocate returns a stack with at least size usable bytes plus one extra
// page holding the sentinel
// Allocate 返回至少 size 字节可用空间的栈，另加一页存放哨兵
func (a *PageAllocator) Allocate(size int) (*Stack, error) {
	npages := 1 + (size+a.pageSize-1)/a.pageSize

	a.mu.Lock()
	if a.maxPages > 0 && a.livePages+npages > a.maxPages {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: need %d pages, %d of %d in use", ErrOutOfMemory, npages, a.livePages, a.maxPages)
	}
	a.livePages += npages
	a.mu.Unlock()

	s := &Stack{
		mem:      make([]byte, npages*a.pageSize),
		pages:    npages,
		pageSize: a.pageSize,
	}
	for i := 0; i < a.pageSize; i++ {
		s.mem[i] = sentinel[i%len(sentinel)]
	}

	a.logger.Debug("stack allocated",
		zap.Int("pages", npages),
		zap.String("size", humanize.IBytes(uint64(s.Size()))),
	)
	return s, nil
}

// Free returns the stack's pages. It reports ErrStackOverflow when the
// sentinel page was overwritten; the pages are released either way.
// Free 归还栈的页面。哨兵页被覆盖时返回 ErrStackOverflow，但页面都会被释放。
func (a *PageAllocator) Free(s *Stack) error {
	if s.mem == nil {
		return ErrDoubleFree
	}
	intact := s.intact()
	s.mem = nil

	a.mu.Lock()
	a.livePages -= s.pages
	a.mu.Unlock()

	if !intact {
		a.logger.Warn("stack sentinel overwritten", zap.Int("pages", s.pages))
		return ErrStackOverflow
	}
	return nil
}

// LivePages returns the number of pages currently handed out
// LivePages 返回当前已分配的页数
func (a *PageAllocator) LivePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.livePages
}
