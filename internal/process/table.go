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
	"github.com/teachos/kproc/internal/pid"
)

// table holds every process record from create until reap (the arena) and,
// separately, the ordered set of live PIDs (the process table proper).
// Zombies are in the arena but not in the live table.
// table 保存从创建到回收的所有进程记录（记录区），并单独维护有序的存活 PID 集合（进程表本身）。
// 僵尸进程在记录区中，但不在存活表中。
type table struct {
	arena map[pid.PID]*Process
	live  []pid.PID
}

func newTable() *table {
	return &table{arena: make(map[pid.PID]*Process)}
}

func (t *table) insert(p *Process) {
	t.arena[p.pid] = p
	t.live = append(t.live, p.pid)
}

// unlist removes id from the live table, keeping the record
func (t *table) unlist(id pid.PID) {
	for i, l := range t.live {
		if l == id {
			t.live = append(t.live[:i], t.live[i+1:]...)
			return
		}
	}
}

// free drops the record for good
func (t *table) free(id pid.PID) {
	delete(t.arena, id)
}

// lookup returns a live process
func (t *table) lookup(id pid.PID) *Process {
	for _, l := range t.live {
		if l == id {
			return t.arena[id]
		}
	}
	return nil
}

// record returns a live or zombie process
func (t *table) record(id pid.PID) *Process {
	return t.arena[id]
}

func (t *table) empty() bool {
	return len(t.live) == 0
}

// liveSnapshot returns the live processes in table order
func (t *table) liveSnapshot() []*Process {
	procs := make([]*Process, 0, len(t.live))
	for _, id := range t.live {
		procs = append(procs, t.arena[id])
	}
	return procs
}
