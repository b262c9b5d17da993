// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	apihttp "pdf-ingest/internal/api/http"
	"pdf-ingest/internal/api/http/middleware"
	"pdf-ingest/internal/app"
	"pdf-ingest/internal/processor"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：HTTP 接入 + 进程内调度器 + 周期清扫
type App struct {
	bootstrap    *app.Bootstrap
	dispatcher   *processor.Dispatcher
	submitter    apihttp.JobSubmitter
	router       *apihttp.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
	cancel       context.CancelFunc
}

// storeSubmitter 共享 Job 存储模式下的投递入口：pending Job 由独立
// Worker 从存储认领，API 侧触发仅确认登记，不占用进程内队列
type storeSubmitter struct{}

func (storeSubmitter) Submit(jobID string) error { return nil }

// NewApp 装配 API 应用（由 cmd/api 调用）
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config

	// jobstore=postgres 时 API 只做控制面，不装进程内调度器
	var dispatcher *processor.Dispatcher
	var submitter apihttp.JobSubmitter = storeSubmitter{}
	if cfg.JobStore.Type != "postgres" {
		dispatcher = processor.NewDispatcher(bootstrap.Processor,
			cfg.Worker.Concurrency, cfg.Worker.QueueSize, bootstrap.Logger)
		submitter = dispatcher
	}

	handler := apihttp.NewHandler(bootstrap.Queue, submitter, bootstrap.Collections, cfg.Upload)
	mw := middleware.NewMiddleware(cfg.API.CORS.AllowOrigins)
	router := apihttp.NewRouter(handler, mw)

	return &App{
		bootstrap:  bootstrap,
		dispatcher: dispatcher,
		submitter:  submitter,
		router:     router,
	}, nil
}

// Run 启动服务并阻塞；addr 形如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// Hertz 日志对齐 bootstrap 配置
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：链路追踪
	if cfg.Monitoring.Tracing.Enable {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "pdf-ingest-api"
		}
		exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
			a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		} else {
			a.hertz = a.router.Build(addr)
		}
	} else {
		a.hertz = a.router.Build(addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// jobstore=postgres 时 API 只做控制面，Job 由独立 Worker 认领执行
	if a.dispatcher != nil {
		a.dispatcher.Start(ctx)
	} else {
		a.bootstrap.Logger.Info("Job 存储为 postgres，执行交由独立 Worker")
	}

	go a.janitor(ctx)

	return a.hertz.Run()
}

// janitor 周期清理过期终态 Job
func (a *App) janitor(ctx context.Context) {
	cfg := a.bootstrap.Config
	ticker := time.NewTicker(cfg.JobStore.SweepIntervalDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.bootstrap.Queue.CleanupOldJobs(ctx, cfg.JobStore.RetentionDuration()); err != nil {
				a.bootstrap.Logger.Warn("清理过期 Job failed", "error", err)
			}
		}
	}
}

// Shutdown 优雅停机
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.otelProvider != nil {
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			a.bootstrap.Logger.Warn("关闭链路追踪failed", "error", err)
		}
	}
	a.bootstrap.Close()
	if a.hertz != nil {
		return a.hertz.Shutdown(ctx)
	}
	return nil
}
