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

// Package debugserver 提供只读的进程诊断 HTTP 接口
// Package debugserver provides the read-only process diagnostics HTTP API
package debugserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/teachos/kproc/internal/pid"
	"github.com/teachos/kproc/internal/process"
)

// Inspector reads the process table from outside any running thread
// Inspector 在任何运行线程之外读取进程表
type Inspector interface {
	Snapshot() []process.ProcessInfo
	Describe(id pid.PID) (process.ProcessInfo, error)
	Info(id pid.PID) (string, error)
	ListInfo() string
}

// Response is the JSON envelope of every API reply
// Response 是所有 API 响应的 JSON 封装
type Response struct {
	ErrorMsg string `json:"error_msg"`
	Data     any    `json:"data"`
}

// Options configures a Server
// Options 配置 Server
type Options struct {
	Listen         string
	ServiceName    string
	Metrics        http.Handler
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// Server serves diagnostics for one ProcessManager
// Server 为一个 ProcessManager 提供诊断服务
type Server struct {
	engine *gin.Engine
	http   *http.Server
	procs  Inspector
	logger *zap.Logger
}

// New builds the router. Call Start to listen.
// New 构建路由，调用 Start 开始监听。
func New(procs Inspector, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "kproc"
	}

	s := &Server{procs: procs, logger: opts.Logger.Named("debugserver")}

	// 初始化路由
	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())

	// 补充中间件
	// Add middleware
	var otelOpts []otelgin.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelgin.WithTracerProvider(opts.TracerProvider))
	}
	r.Use(otelgin.Middleware(opts.ServiceName, otelOpts...), s.loggerMiddleware())

	apiV1Router := r.Group("/api/v1")
	{
		apiV1Router.GET("/health", s.health)
		apiV1Router.GET("/procs", s.listProcs)
		apiV1Router.GET("/procs/:pid", s.getProc)
	}
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	s.engine = r
	s.http = &http.Server{
		Addr:              opts.Listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for embedding and tests
// Handler 暴露路由，便于嵌入和测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens in the background until Shutdown
// Start 在后台监听直到 Shutdown
func (s *Server) Start() {
	go func() {
		s.logger.Info("debug server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("debug server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully
// Shutdown 优雅地停止服务
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Data: "ok"})
}

// listProcs returns the live table as JSON, or the proc list text with ?format=text
// listProcs 以 JSON 返回存活进程表，?format=text 时返回文本列表
func (s *Server) listProcs(c *gin.Context) {
	if c.Query("format") == "text" {
		c.String(http.StatusOK, s.procs.ListInfo())
		return
	}
	c.JSON(http.StatusOK, Response{Data: s.procs.Snapshot()})
}

func (s *Server) getProc(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("pid"))
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: "pid must be a non-negative integer"})
		return
	}

	if c.Query("format") == "text" {
		out, err := s.procs.Info(pid.PID(id))
		if err != nil {
			c.String(statusFor(err), err.Error())
			return
		}
		c.String(http.StatusOK, out)
		return
	}

	info, err := s.procs.Describe(pid.PID(id))
	if err != nil {
		c.JSON(statusFor(err), Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: info})
}

func statusFor(err error) int {
	if errors.Is(err, process.ErrNoSuchProcess) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// loggerMiddleware 记录请求日志
// loggerMiddleware logs every request
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
