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
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/pid"
)

// Observer is notified of lifecycle transitions. Calls are made while the
// caller holds the CPU, so implementations must not block.
// Observer 在生命周期转换时收到通知。调用发生在持有 CPU 期间，实现不得阻塞。
type Observer interface {
	ProcessCreated(id pid.PID, name string)
	ProcessAborted(id pid.PID)
	ProcessExited(id pid.PID, status int)
	ProcessReaped(id pid.PID, status int)
	ThreadCancelled(id pid.PID)
}

type nopObserver struct{}

func (nopObserver) ProcessCreated(pid.PID, string) {}
func (nopObserver) ProcessAborted(pid.PID)         {}
func (nopObserver) ProcessExited(pid.PID, int)     {}
func (nopObserver) ProcessReaped(pid.PID, int)     {}
func (nopObserver) ThreadCancelled(pid.PID)        {}

// event records a lifecycle transition as a span and a debug log line
// event 将生命周期转换记录为 span 和一条 debug 日志
func (m *ProcessManager) event(ctx context.Context, name string, id pid.PID, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.Int("pid", int(id)), attribute.String("boot_id", m.bootID.String()))
	ctx, span := m.tracer.Start(ctx, name)
	span.SetAttributes(attrs...)
	span.End()

	fields := make([]zap.Field, 0, len(attrs)+1)
	fields = append(fields, zap.String("event", name))
	for _, a := range attrs {
		fields = append(fields, zap.Any(string(a.Key), a.Value.AsInterface()))
	}
	m.olog.Ctx(ctx).Debug("lifecycle event", fields...)
}
