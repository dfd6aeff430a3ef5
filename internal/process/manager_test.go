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
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/pid"
)

// invariantPanic runs fn and returns the InvariantError it panicked with
// invariantPanic 运行 fn 并返回其 panic 的 InvariantError
func invariantPanic(t *testing.T, fn func()) *InvariantError {
	t.Helper()
	var got *InvariantError
	func() {
		defer func() {
			got, _ = recover().(*InvariantError)
		}()
		fn()
	}()
	require.NotNil(t, got, "expected an invariant panic")
	return got
}

// bootstrapByHand creates idle and init without running any thread
// bootstrapByHand 在不运行任何线程的情况下创建 idle 和 init
func bootstrapByHand(t *testing.T, m *ProcessManager) (idle, initp *Task) {
	m.sched.Critical(func() {
		ip, err := m.CreateProcess(nil, "idle")
		require.NoError(t, err)
		idle = &Task{m: m, proc: ip}

		np, err := m.CreateProcess(idle, "init")
		require.NoError(t, err)
		initp = &Task{m: m, proc: np}
	})
	return idle, initp
}

func TestValidateCreate(t *testing.T) {
	idle := &Process{pid: pid.Idle}
	initp := &Process{pid: pid.Init, parent: pid.Idle}

	tests := []struct {
		name    string
		id      pid.PID
		parent  *Process
		empty   bool
		wantErr bool
	}{
		{name: "idle first", id: pid.Idle, empty: true},
		{name: "idle late", id: pid.Idle, empty: false, wantErr: true},
		{name: "init by idle", id: pid.Init, parent: idle},
		{name: "init by other", id: pid.Init, parent: initp, wantErr: true},
		{name: "orphan", id: 5, wantErr: true},
		{name: "child of init", id: 5, parent: initp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreate(tt.id, tt.parent, tt.empty)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, "proc_create", err.Op)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

// TestCreateOrderingIsFatal tests that bootstrap ordering violations halt create
// TestCreateOrderingIsFatal 测试违反引导顺序会中止创建
func TestCreateOrderingIsFatal(t *testing.T) {
	m := NewProcessManager(Options{MaxProcs: 8})
	bootstrapByHand(t, m)

	err := invariantPanic(t, func() {
		m.sched.Critical(func() { _, _ = m.CreateProcess(nil, "stray") })
	})
	assert.Contains(t, err.Msg, "without a parent")
	assert.Equal(t, 2, m.pids.Len(), "the stray pid is released")
}

func TestReapRunningIsFatal(t *testing.T) {
	m := NewProcessManager(Options{})
	idle, initp := bootstrapByHand(t, m)

	err := invariantPanic(t, func() {
		m.sched.Critical(func() { m.reap(idle, initp.proc) })
	})
	assert.Equal(t, "proc_reap", err.Op)
}

func TestIdleExitIsFatal(t *testing.T) {
	m := NewProcessManager(Options{})
	idle, _ := bootstrapByHand(t, m)

	err := invariantPanic(t, func() {
		m.sched.Critical(func() { m.markExited(idle, 0) })
	})
	assert.Equal(t, "proc_exit", err.Op)
}

// TestKillAllFromIdleIsFatal tests that the violation is raised before any
// process is cancelled
// TestKillAllFromIdleIsFatal 测试在取消任何进程之前就触发违规
func TestKillAllFromIdleIsFatal(t *testing.T) {
	m := NewProcessManager(Options{})
	idle, initp := bootstrapByHand(t, m)

	var thr *Thread
	m.sched.Critical(func() {
		p, err := m.CreateProcess(initp, "A")
		require.NoError(t, err)
		thr, err = m.CreateThread(p, exitWith(0), nil)
		require.NoError(t, err)
	})

	err := invariantPanic(t, func() {
		m.sched.Critical(func() { m.KillAll(idle) })
	})
	assert.Equal(t, "proc_kill_all", err.Op)
	assert.False(t, thr.Cancelled(), "nothing is torn down before the violation")
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "init", 8, "init"},
		{"exact", "init", 4, "init"},
		{"ascii", "worker", 4, "work"},
		{"split two-byte rune", "aé", 2, "a"},
		{"split three-byte rune", "a世界", 3, "a"},
		{"whole rune kept", "a世界", 4, "a世"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateName(tt.in, tt.n))
		})
	}
}

// TestExitWithLiveThreadIsFatal tests that a process cannot die before its thread
// TestExitWithLiveThreadIsFatal 测试进程不能先于其线程死亡
func TestExitWithLiveThreadIsFatal(t *testing.T) {
	m := NewProcessManager(Options{})
	_, initp := bootstrapByHand(t, m)

	var thr *Thread
	m.sched.Critical(func() {
		var err error
		thr, err = m.CreateThread(initp.proc, exitWith(0), nil)
		require.NoError(t, err)
	})

	err := invariantPanic(t, func() {
		m.sched.Critical(func() { m.markExited(initp, 0) })
	})
	assert.Contains(t, err.Msg, "no_state")

	err = invariantPanic(t, func() {
		m.sched.Critical(func() { m.destroyThread(thr) })
	})
	assert.Equal(t, "thread_destroy", err.Op)
}

// TestInfo tests the diagnostic dumps of live, zombie and missing processes
// TestInfo 测试存活、僵尸和不存在进程的诊断输出
func TestInfo(t *testing.T) {
	k := newTestKernel(t, Options{})

	var initInfo, zombieInfo, list string
	k.boot(t, func(tk *Task, _ any) int {
		a, err := tk.Spawn("A", exitWith(7), nil)
		assert.NoError(t, err)
		for tk.Lookup(a) != nil {
			tk.Yield()
		}

		initInfo, err = tk.Info(pid.Init)
		assert.NoError(t, err)
		zombieInfo, err = tk.Info(a)
		assert.NoError(t, err)
		list = tk.ListInfo()

		_, _, err = tk.Wait(a)
		assert.NoError(t, err)
		return 0
	})

	assert.Contains(t, initInfo, "name:         init\n")
	assert.Contains(t, initInfo, "parent:       0 (idle)\n")
	assert.Contains(t, initInfo, "     2 (A)\n")
	assert.Contains(t, initInfo, "state:        running\n")
	assert.Contains(t, initInfo, "stack:        56 KiB\n")

	assert.Contains(t, zombieInfo, "status:       7\n")
	assert.Contains(t, zombieInfo, "state:        dead\n")

	assert.Contains(t, list, "  PID NAME          PARENT\n")
	assert.Contains(t, list, "   1  init            0 (idle)\n")
	assert.NotContains(t, list, " A ")

	idleInfo, err := k.m.Info(pid.Idle)
	require.NoError(t, err)
	assert.Contains(t, idleInfo, "parent:       -\n")

	_, err = k.m.Info(999)
	assert.ErrorIs(t, err, ErrNoSuchProcess)

	d, err := k.m.Describe(pid.Idle)
	require.NoError(t, err)
	assert.Equal(t, "idle", d.Name)
	assert.Equal(t, "exited", d.ThreadState)
	assert.Contains(t, k.m.ListInfo(), "idle")
}

// TestLifecycleSpans tests that transitions are recorded as spans
// TestLifecycleSpans 测试生命周期转换被记录为 span
func TestLifecycleSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	k := newTestKernel(t, Options{TracerProvider: tp})

	k.boot(t, func(tk *Task, _ any) int {
		a, err := tk.Spawn("A", exitWith(7), nil)
		assert.NoError(t, err)
		_, _, err = tk.Wait(a)
		assert.NoError(t, err)
		return 0
	})

	counts := map[string]int{}
	var exitStatus attribute.Value
	for _, s := range sr.Ended() {
		counts[s.Name()]++
		if s.Name() != "proc.exit" {
			continue
		}
		for _, kv := range s.Attributes() {
			if kv.Key == "pid" && kv.Value.AsInt64() == 2 {
				for _, kv := range s.Attributes() {
					if kv.Key == "status" {
						exitStatus = kv.Value
					}
				}
			}
		}
	}

	assert.Equal(t, 3, counts["proc.create"])
	assert.Equal(t, 2, counts["proc.exit"])
	assert.Equal(t, 2, counts["proc.reap"])
	assert.Equal(t, int64(7), exitStatus.AsInt64())
}

// **Property: sequential creates return distinct PIDs in [0, max)**
//
// For any N sequential creates with no intervening exits the returned PIDs
// are pairwise distinct and within the PID space.
// 属性：N 次连续创建（期间无退出）返回的 PID 两两不同且位于 PID 空间内。
func TestProperty_SpawnedPIDsDistinct(t *testing.T) {
	const maxProcs = 64

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 25
	properties := gopter.NewProperties(params)

	properties.Property("sequential spawns yield distinct pids", prop.ForAll(
		func(n int) bool {
			m := NewProcessManager(Options{MaxProcs: maxProcs, Logger: zap.NewNop()})
			seen := map[pid.PID]bool{pid.Idle: true, pid.Init: true}
			ok := true

			_, err := m.Boot(func(tk *Task, _ any) int {
				for i := 0; i < n; i++ {
					id, err := tk.Spawn("p", exitWith(0), nil)
					if err != nil || seen[id] || id < 0 || id >= maxProcs {
						ok = false
					}
					seen[id] = true
				}
				return 0
			}, nil)
			return ok && err == nil && m.pids.Len() == 1
		},
		gen.IntRange(1, maxProcs-2),
	))

	properties.TestingRun(t)
}
