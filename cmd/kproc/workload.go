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

package main

import (
	"fmt"
	"io"

	"github.com/teachos/kproc/internal/process"
	"github.com/teachos/kproc/internal/sched"
)

// demoWorkload is init's main: it grows a tree of sleeping chains, prints
// the process table, then has a "halt" process tear everything down with
// KillAll.
// demoWorkload 是 init 的主函数：它构建若干睡眠进程链，打印进程表，然后由 "halt" 进程通过 KillAll 全部终止。
func demoWorkload(workers, depth int, out io.Writer) process.EntryFunc {
	return func(tk *process.Task, _ any) int {
		formed := sched.NewWaitQueue("formed")
		want := workers * (depth + 1)
		started := 0
		status := 0

		for i := 0; i < workers; i++ {
			name := fmt.Sprintf("worker%d", i)
			if _, err := tk.Spawn(name, chain(name, depth, formed, &started), nil); err != nil {
				fmt.Fprintf(out, "spawn %s: %v\n", name, err)
				want -= (workers - i) * (depth + 1)
				status = 1
				break
			}
		}

		for started < want {
			_ = tk.SleepOn(formed, false)
		}
		fmt.Fprint(out, tk.ListInfo())

		halt, err := tk.Spawn("halt", func(tk *process.Task, _ any) int {
			tk.KillAll()
			return 0
		}, nil)
		if err != nil {
			// No pid left for halt, so init tears down the tree itself
			fmt.Fprintf(out, "spawn halt: %v\n", err)
			tk.KillAll()
		}
		if _, _, err := tk.Wait(halt); err != nil {
			fmt.Fprintf(out, "wait halt: %v\n", err)
			status = 1
		}
		return status
	}
}

// chain spawns the next link (if any), reports in, then sleeps until killed.
// A link never waits for its child, so when a link dies its descendants pass
// to init.
// chain 创建下一个链节（如有），报到后睡眠直到被终止。链节从不等待其子进程，因此链节死亡后其后代归 init 所有。
func chain(name string, remaining int, formed *sched.WaitQueue, started *int) process.EntryFunc {
	return func(tk *process.Task, _ any) int {
		if remaining > 0 {
			next := fmt.Sprintf("%s.%d", name, remaining)
			if _, err := tk.Spawn(next, chain(next, remaining-1, formed, started), nil); err != nil {
				// The missing links still count as reported
				*started += remaining
			}
		}
		*started++
		tk.WakeAll(formed)

		idle := sched.NewWaitQueue(fmt.Sprintf("idle:%d", tk.PID()))
		for {
			if err := tk.SleepOn(idle, true); err != nil {
				tk.ExitIfCancelled()
			}
		}
	}
}
