/*
 * MIT License
 *
 * Copyright (c) 2025 linux.do
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package otel_trace sets up OpenTelemetry tracing for kproc. Lifecycle
// transitions of the process core are exported as spans when enabled.
// otel_trace 包为 kproc 配置 OpenTelemetry 追踪。启用后进程核心的生命周期转换会作为 span 导出。
package otel_trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/teachos/kproc/internal/config"
)

// Tracing owns the tracer provider and its shutdown hooks
// Tracing 持有追踪提供者及其关闭钩子
type Tracing struct {
	provider      trace.TracerProvider
	tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
	enabled       bool
}

// Init initializes the OpenTelemetry tracing based on configuration. A
// provider that cannot be built falls back to noop.
// Init 根据配置初始化 OpenTelemetry 追踪。无法构建提供者时回退为空操作实现。
func Init(ctx context.Context, cfg config.TraceConfig, logger *zap.Logger) *Tracing {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("trace")

	if !cfg.Enabled {
		logger.Debug("OpenTelemetry tracing is disabled / OpenTelemetry 追踪已禁用")
		return disabled()
	}

	logger.Info("Initializing OpenTelemetry tracing... / 正在初始化 OpenTelemetry 追踪...",
		zap.String("endpoint", cfg.Endpoint))

	// 初始化 Propagator
	otel.SetTextMapPropagator(newPropagator())

	// 初始化 Trace Provider
	tracerProvider, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to init trace provider, using noop tracer / 初始化追踪提供者失败，使用空操作追踪器", zap.Error(err))
		return disabled()
	}
	otel.SetTracerProvider(tracerProvider)

	logger.Info("OpenTelemetry tracing initialized / OpenTelemetry 追踪已初始化")
	return &Tracing{
		provider:      tracerProvider,
		tracer:        tracerProvider.Tracer("github.com/teachos/kproc"),
		shutdownFuncs: []func(context.Context) error{tracerProvider.Shutdown},
		enabled:       true,
	}
}

func disabled() *Tracing {
	tp := noop.NewTracerProvider()
	return &Tracing{provider: tp, tracer: tp.Tracer("noop")}
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(ctx context.Context, cfg config.TraceConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Provider returns the tracer provider to hand to instrumented components
// Provider 返回交给被观测组件的追踪提供者
func (t *Tracing) Provider() trace.TracerProvider {
	return t.provider
}

// IsEnabled returns whether tracing is enabled.
// IsEnabled 返回追踪是否已启用。
func (t *Tracing) IsEnabled() bool {
	return t.enabled
}

// Shutdown flushes and stops every exporter
// Shutdown 刷新并停止所有导出器
func (t *Tracing) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdownFuncs {
		err = multierr.Append(err, fn(ctx))
	}
	t.shutdownFuncs = nil
	return err
}

func (t *Tracing) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}
