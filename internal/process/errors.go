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
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Common errors for process lifecycle operations
// 进程生命周期操作的常见错误
var (
	// ErrResourceExhausted indicates the PID space or memory is exhausted
	// ErrResourceExhausted 表示 PID 空间或内存已耗尽
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrNoChildren indicates there is no matching child to wait on
	// ErrNoChildren 表示没有可等待的匹配子进程
	ErrNoChildren = errors.New("no child processes")

	// ErrInvalidArgument indicates an unsupported wait target or option
	// ErrInvalidArgument 表示不支持的等待目标或选项
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSuchProcess indicates the PID is not in the process table
	// ErrNoSuchProcess 表示 PID 不在进程表中
	ErrNoSuchProcess = errors.New("no such process")

	// ErrAlreadyBooted indicates Boot was called twice
	// ErrAlreadyBooted 表示 Boot 被重复调用
	ErrAlreadyBooted = errors.New("process manager already booted")
)

// InvariantError is the panic value of a broken lifecycle invariant. No
// caller can compensate for one, so the offending operation halts.
// InvariantError 是生命周期不变量被破坏时的 panic 值。调用方无法补救，因此出错操作直接中止。
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s: %s", e.Op, e.Msg)
}

// fatal logs and panics with an InvariantError
// fatal 记录日志并以 InvariantError 触发 panic
func (m *ProcessManager) fatal(op, format string, args ...any) {
	err := &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
	m.logger.Error("lifecycle invariant violated", zap.String("op", op), zap.Error(err))
	panic(err)
}
