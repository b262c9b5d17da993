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

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pdf-ingest/internal/app"
	"pdf-ingest/internal/jobqueue"
)

// Claimer pending Job 的原子认领（Postgres 存储实现）
type Claimer interface {
	ClaimPending(ctx context.Context) (*jobqueue.Job, error)
}

// App 独立 Worker：轮询认领 pending Job 并执行，兼任周期清扫
type App struct {
	bootstrap *app.Bootstrap
	claimer   Claimer
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewApp 装配 Worker 应用；要求 jobstore.type=postgres
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	claimer, ok := bootstrap.JobStore.(Claimer)
	if !ok {
		return nil, fmt.Errorf("独立 Worker 需要支持认领的 Job 存储（jobstore.type=postgres）")
	}
	return &App{bootstrap: bootstrap, claimer: claimer}, nil
}

// Start 启动认领循环与清扫协程，不阻塞
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	cfg := a.bootstrap.Config
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	a.bootstrap.Logger.Info("Worker 启动", "concurrency", concurrency,
		"poll_interval", cfg.Worker.PollIntervalDuration())

	for i := 0; i < concurrency; i++ {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.claimLoop(ctx)
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.janitor(ctx)
	}()
	return nil
}

// claimLoop 轮询认领。认领即把 Job 置为 processing，
// 执行器对 processing 重入宽容，认领与触发不会互相打架。
func (a *App) claimLoop(ctx context.Context) {
	interval := a.bootstrap.Config.Worker.PollIntervalDuration()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := a.claimer.ClaimPending(ctx)
		if err != nil {
			a.bootstrap.Logger.Warn("认领 Job failed", "error", err)
		} else if job != nil {
			a.bootstrap.Processor.ProcessJob(ctx, job.ID)
			continue // 队列非空时不等待，继续认领
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
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

// Shutdown 停止认领并等待在途 Job 收尾
func (a *App) Shutdown(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	a.bootstrap.Close()
	return nil
}
