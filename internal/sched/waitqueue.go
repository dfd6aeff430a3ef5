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

package sched

// WaitQueue is a FIFO of sleeping units
// WaitQueue 是睡眠单元的先进先出队列
type WaitQueue struct {
	name  string
	units []*Unit
}

// NewWaitQueue creates an empty queue
// NewWaitQueue 创建空队列
func NewWaitQueue(name string) *WaitQueue {
	return &WaitQueue{name: name}
}

// Name returns the queue label
// Name 返回队列标签
func (q *WaitQueue) Name() string { return q.name }

// Len returns the number of sleepers
// Len 返回睡眠者数量
func (q *WaitQueue) Len() int { return len(q.units) }

// Empty reports whether nobody sleeps on q
// Empty 报告队列是否为空
func (q *WaitQueue) Empty() bool { return len(q.units) == 0 }

func (q *WaitQueue) push(u *Unit) {
	q.units = append(q.units, u)
}

func (q *WaitQueue) remove(u *Unit) {
	for i, w := range q.units {
		if w == u {
			q.units = append(q.units[:i], q.units[i+1:]...)
			return
		}
	}
}

func (q *WaitQueue) drain() []*Unit {
	units := q.units
	q.units = nil
	return units
}
