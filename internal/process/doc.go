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

// Package process provides the process and thread lifecycle core: the process
// table, the parent/child tree, the exit -> zombie -> reap protocol and
// cooperative thread cancellation.
// process 包提供进程与线程生命周期核心：进程表、父子进程树、退出 -> 僵尸 -> 回收协议
// 以及协作式线程取消。
//
// Every process owns exactly one thread. All blocking goes through the
// scheduler in package sched, which also serializes every structural
// mutation: a lifecycle call runs on the thread holding the CPU and keeps it
// until it sleeps or exits.
// 每个进程恰好拥有一个线程。所有阻塞都经由 sched 包的调度器完成，调度器同时串行化所有
// 结构性修改：生命周期调用在持有 CPU 的线程上执行，直到睡眠或退出才释放。
//
// The running thread is never looked up from global state. Each lifecycle
// call receives the caller's *Task, which names the running thread, its
// process and its cancellation token.
// 当前运行线程从不通过全局状态获取。每个生命周期调用都接收调用方的 *Task，
// 其中包含运行线程、所属进程及其取消令牌。
//
// Process states / 进程状态:
//
//	RUNNING --exit--> DEAD (zombie) --parent wait--> reaped
//
// A zombie leaves the live table at exit but stays linked in its parent's
// children until the parent reaps it. Its PID stays reserved until then.
// 僵尸进程在退出时离开存活表，但仍链接在父进程的子进程列表中直到被回收，其 PID 也保留到那时。
//
// Orphans are handed to init. Init reaps every child on its own exit path,
// so no process outlives it except idle.
// 孤儿进程交给 init。init 在自身退出路径上回收全部子进程，因此除 idle 外没有进程比它存活更久。
package process
