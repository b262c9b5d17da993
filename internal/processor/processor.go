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

// Package processor Job 执行编排：读文件 → 提取级联 → 向量化 → 写入集合。
// 整体受 PROCESSING_TIMEOUT 约束；无论成败，临时文件保证清理。
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"pdf-ingest/internal/collection"
	"pdf-ingest/internal/embedding"
	"pdf-ingest/internal/jobqueue"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/metrics"
	"pdf-ingest/pkg/retry"
)

// 每个网络相关阶段的重试次数
const defaultRetries = 3

// TextExtractor 文本提取能力（由提取级联实现）
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// Processor 单 Job 执行器
type Processor struct {
	queue       *jobqueue.Queue
	extractor   TextExtractor
	embedder    embedding.Embedder
	collections collection.Store
	cfg         config.ExtractConfig
	logger      *log.Logger
	retries     int
}

// New 创建 Processor
func New(queue *jobqueue.Queue, extractor TextExtractor, embedder embedding.Embedder,
	collections collection.Store, cfg config.ExtractConfig, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Processor{
		queue:       queue,
		extractor:   extractor,
		embedder:    embedder,
		collections: collections,
		cfg:         cfg,
		logger:      logger,
		retries:     defaultRetries,
	}
}

// stageError 标记失败发生的阶段，用于指标归因
type stageError struct {
	stage string // extract | embed | store | timeout | io
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "io"
}

// ProcessJob 执行一条 Job。Job 不存在时静默返回（容忍重复触发）；
// 失败只落到 Job 记录的 error 字段，不向上抛出。
func (p *Processor) ProcessJob(ctx context.Context, jobID string) {
	job, err := p.queue.Job(ctx, jobID)
	if err != nil {
		if errors.Is(err, jobqueue.ErrJobNotFound) {
			p.logger.Warn("触发了不存在的 Job，忽略", "job_id", jobID)
			return
		}
		p.logger.Error("查询 Job failed", "job_id", jobID, "error", err)
		return
	}

	if _, err := p.queue.UpdateStatus(ctx, jobID, jobqueue.StatusProcessing, ""); err != nil {
		p.logger.Warn("Job 无法进入 processing，忽略触发", "job_id", jobID, "error", err)
		return
	}

	logger := p.logger.With("job_id", jobID, "collection", job.CollectionName, "filename", job.Filename())
	logger.Info("开始处理 Job")
	start := time.Now()

	runErr := p.run(ctx, job, logger)

	if runErr != nil {
		metrics.JobFailTotal.WithLabelValues(stageOf(runErr)).Inc()
		if _, err := p.queue.UpdateStatus(ctx, jobID, jobqueue.StatusFailed, runErr.Error()); err != nil {
			logger.Error("记录 Job 失败状态failed", "error", err)
		}
		logger.Error("Job failed", "error", runErr, "elapsed", time.Since(start))
	} else {
		if _, err := p.queue.UpdateStatus(ctx, jobID, jobqueue.StatusCompleted, ""); err != nil {
			logger.Error("记录 Job 完成状态failed", "error", err)
		}
		logger.Info("Job 完成", "elapsed", time.Since(start))
	}
	metrics.JobDuration.WithLabelValues(job.CollectionName).Observe(time.Since(start).Seconds())
}

// run 读取文件并在总超时内跑完流水线。
// 返回前无条件释放缓冲并删除临时文件，清理失败只记日志。
func (p *Processor) run(ctx context.Context, job *jobqueue.Job, logger *log.Logger) error {
	if _, err := os.Stat(job.FilePath); err != nil {
		// 文件缺失不可重试，直接失败
		return &stageError{stage: "io", err: fmt.Errorf("临时文件不存在: %s", job.FilePath)}
	}

	data, err := os.ReadFile(job.FilePath)
	if err != nil {
		p.cleanup(job, logger)
		return &stageError{stage: "io", err: fmt.Errorf("读取临时文件failed: %w", err)}
	}
	logger.Info("已读入文件", "size_mb", fmt.Sprintf("%.2f", float64(len(data))/(1024*1024)))

	defer func() {
		data = nil // 释放唯一的缓冲副本
		p.cleanup(job, logger)
	}()

	timeout := p.cfg.ProcessingTimeoutDuration()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 流水线与总超时竞速；超时后不再等待流水线收尾
	done := make(chan error, 1)
	go func() {
		done <- p.runPipeline(runCtx, job, data, logger)
	}()

	select {
	case err := <-done:
		return err
	case <-runCtx.Done():
		return &stageError{stage: "timeout", err: fmt.Errorf("处理超时（%s）", timeout)}
	}
}

// runPipeline 顺序执行提取 → 向量化 → 写入集合，各阶段重试包裹
func (p *Processor) runPipeline(ctx context.Context, job *jobqueue.Job, data []byte, logger *log.Logger) error {
	fileSizeMB := float64(len(data)) / (1024 * 1024)

	text, err := retry.Do(ctx, p.retries, "文本提取", func(ctx context.Context) (string, error) {
		return p.extractor.ExtractText(ctx, data)
	})
	if err != nil {
		return &stageError{stage: "extract", err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &stageError{stage: "extract", err: fmt.Errorf("提取未产出任何文本")}
	}
	logger.Info("文本提取完成", "chars", len(text))

	vector, err := retry.Do(ctx, p.retries, "文本向量化", func(ctx context.Context) ([]float64, error) {
		return p.embedder.Embed(ctx, text)
	})
	if err != nil {
		return &stageError{stage: "embed", err: err}
	}
	if len(vector) == 0 {
		return &stageError{stage: "embed", err: fmt.Errorf("向量化返回空向量")}
	}

	coll, err := retry.Do(ctx, p.retries, "获取集合", func(ctx context.Context) (collection.Collection, error) {
		return p.collections.GetOrCreate(ctx, job.CollectionName)
	})
	if err != nil {
		return &stageError{stage: "store", err: err}
	}

	docID := uuid.New().String()
	metadata := map[string]interface{}{
		"filename":    job.Filename(),
		"jobId":       job.ID,
		"fileSize":    fmt.Sprintf("%.2f MB", fileSizeMB),
		"textLength":  len(text),
		"processedAt": time.Now().UTC().Format(time.RFC3339),
	}
	_, err = retry.Do(ctx, p.retries, "写入集合", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, coll.Add(ctx,
			[]string{docID},
			[][]float64{vector},
			[]string{text},
			[]map[string]interface{}{metadata},
		)
	})
	if err != nil {
		return &stageError{stage: "store", err: err}
	}

	logger.Info("文档已写入集合", "doc_id", docID)
	return nil
}

// cleanup 删除临时文件；失败只记日志，绝不覆盖处理结果
func (p *Processor) cleanup(job *jobqueue.Job, logger *log.Logger) {
	if err := os.Remove(job.FilePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("删除临时文件failed", "path", job.FilePath, "error", err)
	}
}
