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

// Package metrics exports process lifecycle counters to Prometheus.
// metrics 包将进程生命周期计数导出到 Prometheus。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/process"
)

const namespace = "kproc"

var _ process.Observer = (*Collector)(nil)

// Collector counts lifecycle transitions. It is a process.Observer; its
// methods only touch Prometheus primitives and never block.
// Collector 统计生命周期转换。它实现 process.Observer，方法只操作 Prometheus 原语且从不阻塞。
type Collector struct {
	registry *prometheus.Registry

	created   prometheus.Counter
	aborted   prometheus.Counter
	exited    prometheus.Counter
	reaped    prometheus.Counter
	cancelled prometheus.Counter
	running   prometheus.Gauge
	zombies   prometheus.Gauge
	status    prometheus.Histogram
}

// NewCollector registers the lifecycle metrics on a fresh registry
// NewCollector 在新的注册表上注册生命周期指标
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		created: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_created_total",
			Help:      "The total number of processes created",
		}),
		aborted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_aborted_total",
			Help:      "The total number of creations undone because no thread could be created",
		}),
		exited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_exited_total",
			Help:      "The total number of processes that became zombies",
		}),
		reaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_reaped_total",
			Help:      "The total number of zombies collected by their parent",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_cancelled_total",
			Help:      "The total number of threads cancelled by another process",
		}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_running",
			Help:      "Processes in the live table",
		}),
		zombies: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_zombie",
			Help:      "Dead processes not yet reaped",
		}),
		status: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_exit_status",
			Help:      "Exit status of reaped processes",
			Buckets:   []float64{0, 1, 2, 8, 64, 128, 255},
		}),
	}
}

func (c *Collector) ProcessCreated(pid.PID, string) {
	c.created.Inc()
	c.running.Inc()
}

func (c *Collector) ProcessAborted(pid.PID) {
	c.aborted.Inc()
	c.running.Dec()
}

func (c *Collector) ProcessExited(pid.PID, int) {
	c.exited.Inc()
	c.running.Dec()
	c.zombies.Inc()
}

func (c *Collector) ProcessReaped(_ pid.PID, status int) {
	c.reaped.Inc()
	c.zombies.Dec()
	c.status.Observe(float64(status))
}

func (c *Collector) ThreadCancelled(pid.PID) {
	c.cancelled.Inc()
}

// Registry returns the registry holding the lifecycle metrics
// Registry 返回保存生命周期指标的注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format
// Handler 以 Prometheus 暴露格式提供指标
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
