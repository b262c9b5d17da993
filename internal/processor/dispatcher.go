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

package processor

import (
	"context"
	"fmt"
	"sync"

	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/metrics"
)

// Dispatcher 把 HTTP 触发与 Job 执行解耦：处理器的职责止于投递，
// 固定数量的 worker 协程独占执行权
type Dispatcher struct {
	processor *Processor
	jobs      chan string
	workers   int
	logger    *log.Logger
	wg        sync.WaitGroup
}

// NewDispatcher 创建调度器；workers/queueSize 非正时取 1/64
func NewDispatcher(p *Processor, workers, queueSize int, logger *log.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{
		processor: p,
		jobs:      make(chan string, queueSize),
		workers:   workers,
		logger:    logger,
	}
}

// Start 启动 worker 协程，ctx 取消后各 worker 处理完手头 Job 即退出
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID, ok := <-d.jobs:
					if !ok {
						return
					}
					metrics.WorkerBusy.WithLabelValues(workerID).Inc()
					d.processor.ProcessJob(ctx, jobID)
					metrics.WorkerBusy.WithLabelValues(workerID).Dec()
				}
			}
		}()
	}
	d.logger.Info("调度器已启动", "workers", d.workers, "queue_size", cap(d.jobs))
}

// Submit 非阻塞投递；队列满时返回错误，由调用方决定如何响应
func (d *Dispatcher) Submit(jobID string) error {
	select {
	case d.jobs <- jobID:
		return nil
	default:
		return fmt.Errorf("任务队列已满（容量 %d）", cap(d.jobs))
	}
}

// Wait 阻塞直到全部 worker 退出，供优雅停机使用
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
