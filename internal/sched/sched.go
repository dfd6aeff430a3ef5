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

// Package sched provides the scheduler the process core delegates all
// blocking to.
// sched 包提供进程核心所依赖的调度器，所有阻塞操作都委托给它。
//
// Exactly one schedulable unit holds the CPU at any instant. A unit gives the
// CPU up only by sleeping on a wait queue, yielding, or switching away for
// good after it exits. Every state check and the mutation that follows it
// therefore happen without interleaving from other units.
// 任意时刻只有一个可调度单元持有 CPU。单元只有在等待队列上睡眠、让出或退出后永久切走时
// 才会释放 CPU，因此状态检查与随后的修改之间不会被其他单元打断。
package sched

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// ErrCancelled is returned from a cancellable sleep when the unit's
// cancellation token fired
// ErrCancelled 在可取消睡眠因取消令牌触发而返回时使用
var ErrCancelled = errors.New("sleep interrupted by cancellation")

// State is the scheduling state of a unit
// State 是单元的调度状态
type State int

const (
	// NoState means the unit has not been handed to the scheduler yet
	// NoState 表示单元尚未交给调度器
	NoState State = iota
	// Run means the unit is on the CPU or waiting for it
	// Run 表示单元正在运行或等待 CPU
	Run
	// Sleep is a sleep that only its wake condition can end
	// Sleep 表示只能由唤醒条件结束的睡眠
	Sleep
	// SleepCancellable is a sleep that cancellation also ends
	// SleepCancellable 表示取消也能结束的睡眠
	SleepCancellable
	// Exited means the unit has switched away for good
	// Exited 表示单元已永久切走
	Exited
)

func (s State) String() string {
	switch s {
	case NoState:
		return "no_state"
	case Run:
		return "run"
	case Sleep:
		return "sleep"
	case SleepCancellable:
		return "sleep_cancellable"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Unit is a schedulable unit. Its fields are only touched while holding the CPU.
// Unit 是可调度单元，其字段只在持有 CPU 时访问。
type Unit struct {
	name   string
	state  State
	wchan  *WaitQueue
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewUnit creates a unit with a fresh cancellation token
// NewUnit 创建带有新取消令牌的单元
func NewUnit(name string) *Unit {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Unit{
		name:   name,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the unit label used in logs
// Name 返回日志中使用的单元标签
func (u *Unit) Name() string { return u.name }

// State returns the scheduling state
// State 返回调度状态
func (u *Unit) State() State { return u.state }

// SetExited marks the unit as exited ahead of SwitchAway
// SetExited 在 SwitchAway 之前将单元标记为已退出
func (u *Unit) SetExited() { u.state = Exited }

// WaitChannel returns the queue the unit is linked into, or nil
// WaitChannel 返回单元当前所在的等待队列，未在队列中时为 nil
func (u *Unit) WaitChannel() *WaitQueue { return u.wchan }

// Context returns the unit's cancellation token
// Context 返回单元的取消令牌
func (u *Unit) Context() context.Context { return u.ctx }

// Cancelled reports whether the cancellation token fired
// Cancelled 报告取消令牌是否已触发
func (u *Unit) Cancelled() bool { return u.ctx.Err() != nil }

// Scheduler owns the CPU and the wait queues' wake protocol
// Scheduler 持有 CPU 并负责等待队列的唤醒协议
type Scheduler struct {
	// cpu is held by whichever unit is running
	// cpu 由当前运行的单元持有
	cpu sync.Mutex

	// wg tracks unit goroutines
	// wg 跟踪单元 goroutine
	wg sync.WaitGroup

	logger *zap.Logger
}

// New creates a scheduler
// New 创建调度器
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger.Named("sched")}
}

// Spawn makes u runnable. fn runs on its own goroutine once it holds the CPU
// and is expected to end with SwitchAway.
// Spawn 使 u 可运行。fn 在获得 CPU 后于独立 goroutine 中运行，应以 SwitchAway 结束。
func (s *Scheduler) Spawn(u *Unit, fn func()) {
	if u.state != NoState {
		panic(fmt.Sprintf("sched: spawn of %s in state %s", u.name, u.state))
	}
	u.state = Run
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cpu.Lock()
		fn()
		u.state = Exited
		s.cpu.Unlock()
	}()
}

// SleepOn links u into q and gives up the CPU until woken. A cancellable
// sleep also ends when the token fires and then returns ErrCancelled; the
// token is checked before sleeping as well.
// SleepOn 将 u 链入 q 并让出 CPU 直到被唤醒。可取消睡眠在令牌触发时也会结束并返回
// ErrCancelled；睡眠前同样会检查令牌。
func (s *Scheduler) SleepOn(u *Unit, q *WaitQueue, cancellable bool) error {
	if u.wchan != nil {
		panic(fmt.Sprintf("sched: %s already sleeping on %s", u.name, u.wchan.name))
	}
	if cancellable && u.Cancelled() {
		return ErrCancelled
	}

	q.push(u)
	u.wchan = q
	if cancellable {
		u.state = SleepCancellable
	} else {
		u.state = Sleep
	}

	s.cpu.Unlock()
	if cancellable {
		select {
		case <-u.wake:
		case <-u.ctx.Done():
		}
	} else {
		<-u.wake
	}
	s.cpu.Lock()

	if u.wchan != nil {
		u.wchan.remove(u)
		u.wchan = nil
	}
	// Drop a wake-up that raced with cancellation / 丢弃与取消竞争的唤醒
	select {
	case <-u.wake:
	default:
	}
	u.state = Run

	if cancellable && u.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// WakeAll makes every unit sleeping on q runnable
// WakeAll 使 q 上所有睡眠单元变为可运行
func (s *Scheduler) WakeAll(q *WaitQueue) {
	for _, u := range q.drain() {
		s.wakeUnit(u)
	}
}

// Cancel fires u's cancellation token. A unit in a cancellable sleep is
// force-woken; any other unit only observes the token when it next checks.
// Cancel 触发 u 的取消令牌。处于可取消睡眠的单元会被强制唤醒；其他单元只能在下次检查时感知。
func (s *Scheduler) Cancel(u *Unit) {
	u.cancel(ErrCancelled)
	if u.state == SleepCancellable {
		s.ForceWake(u)
	}
	s.logger.Debug("unit cancelled", zap.String("unit", u.name), zap.Stringer("state", u.state))
}

// ForceWake unlinks u from its wait queue and makes it runnable
// ForceWake 将 u 从等待队列摘除并使其可运行
func (s *Scheduler) ForceWake(u *Unit) {
	if u.wchan != nil {
		u.wchan.remove(u)
	}
	s.wakeUnit(u)
}

func (s *Scheduler) wakeUnit(u *Unit) {
	u.wchan = nil
	u.state = Run
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// Yield gives other runnable units a chance at the CPU
// Yield 给其他可运行单元获得 CPU 的机会
func (s *Scheduler) Yield() {
	s.cpu.Unlock()
	runtime.Gosched()
	s.cpu.Lock()
}

// SwitchAway relinquishes the CPU for good. It never returns.
// SwitchAway 永久让出 CPU，永不返回。
func (s *Scheduler) SwitchAway(u *Unit) {
	u.state = Exited
	s.cpu.Unlock()
	runtime.Goexit()
}

// Critical runs fn holding the CPU, from outside any unit
// Critical 在任何单元之外持有 CPU 运行 fn
func (s *Scheduler) Critical(fn func()) {
	s.cpu.Lock()
	defer s.cpu.Unlock()
	fn()
}

// Wait blocks until every spawned unit has finished
// Wait 阻塞直到所有已启动单元结束
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
