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

package pid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestAllocateSequential tests that a fresh allocator hands out ids in order
// TestAllocateSequential 测试新分配器按顺序分配 ID
func TestAllocateSequential(t *testing.T) {
	a := NewAllocator(8)
	for want := PID(0); want < 8; want++ {
		got, err := a.Allocate()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 8, a.Len())
}

// TestAllocateExhausted tests the full id space error
// TestAllocateExhausted 测试 ID 空间耗尽错误
func TestAllocateExhausted(t *testing.T) {
	a := NewAllocator(3)
	for i := 0; i < 3; i++ {
		_, err := a.Allocate()
		require.NoError(t, err)
	}

	got, err := a.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, None, got)
}

// TestAllocateRotatingCursor tests that released ids are not reused until the cursor wraps
// TestAllocateRotatingCursor 测试释放的 ID 在游标回绕前不会被复用
func TestAllocateRotatingCursor(t *testing.T) {
	a := NewAllocator(4)
	for i := 0; i < 3; i++ {
		_, err := a.Allocate()
		require.NoError(t, err)
	}
	a.Release(1)

	got, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, PID(3), got, "cursor continues past the last id")

	got, err = a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, PID(1), got, "wraps around to the lowest free id")
	assert.False(t, a.InUse(4))
}

func TestReleaseFreeIDIsNoop(t *testing.T) {
	a := NewAllocator(2)
	a.Release(1)
	assert.Equal(t, 0, a.Len())
}

func TestNewAllocatorRejectsEmptySpace(t *testing.T) {
	assert.Panics(t, func() { NewAllocator(0) })
}

// **Property: allocated ids are pairwise distinct and in range**
// For any sequence of allocations and releases, every live id is unique and
// lies in [0, max).
// 对于任意分配与释放序列，所有存活 ID 唯一且位于 [0, max)。
func TestProperty_UniqueInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		max := rapid.IntRange(1, 64).Draw(t, "max")
		a := NewAllocator(max)
		live := map[PID]bool{}

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Bool().Draw(t, "release") {
				for id := range live {
					a.Release(id)
					delete(live, id)
					break
				}
				continue
			}

			id, err := a.Allocate()
			if len(live) == max {
				if err == nil {
					t.Fatalf("allocated %d from a full space", id)
				}
				continue
			}
			if err != nil {
				t.Fatalf("unexpected error with %d/%d live: %v", len(live), max, err)
			}
			if id < 0 || int(id) >= max {
				t.Fatalf("id %d out of range [0, %d)", id, max)
			}
			if live[id] {
				t.Fatalf("id %d handed out twice", id)
			}
			live[id] = true
		}

		if a.Len() != len(live) {
			t.Fatalf("allocator tracks %d ids, expected %d", a.Len(), len(live))
		}
	})
}
