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

package jobqueue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/metrics"
)

// Queue Job 登记与生命周期门面，状态迁移校验集中在此
type Queue struct {
	store  Store
	logger *log.Logger
}

// New 创建 Queue；store 由部署形态决定（内存或 PostgreSQL）
func New(store Store, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Queue{store: store, logger: logger}
}

// Store 暴露底层存储，供 Worker 认领路径使用
func (q *Queue) Store() Store { return q.store }

// Enqueue 登记一条新 Job，初始状态 pending
func (q *Queue) Enqueue(ctx context.Context, filePath, collectionName string) (*Job, error) {
	return q.Register(ctx, uuid.New().String(), filePath, collectionName)
}

// Register 以调用方给定的 ID 登记 Job；上传入口先用 ID 命名临时文件再登记
func (q *Queue) Register(ctx context.Context, id, filePath, collectionName string) (*Job, error) {
	job := &Job{
		ID:             id,
		FilePath:       filePath,
		CollectionName: collectionName,
		Status:         StatusPending,
		Created:        time.Now().UTC(),
	}
	if err := q.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("登记 Job failed: %w", err)
	}
	q.logger.Info("Job 已登记", "job_id", job.ID, "collection", collectionName)
	return job, nil
}

// Job 按 ID 查找；不存在返回 ErrJobNotFound
func (q *Queue) Job(ctx context.Context, id string) (*Job, error) {
	return q.store.Get(ctx, id)
}

// Jobs 列出 Job：可按状态过滤，按 Created 新到旧排序，limit > 0 时截断
func (q *Queue) Jobs(ctx context.Context, status Status, limit int) ([]*Job, error) {
	jobs, err := q.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("列出 Job failed: %w", err)
	}
	if status != "" {
		filtered := jobs[:0]
		for _, job := range jobs {
			if job.Status == status {
				filtered = append(filtered, job)
			}
		}
		jobs = filtered
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Created.After(jobs[j].Created)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// UpdateStatus 执行一次状态迁移；违反状态机约束时拒绝。
// 迁移到 failed 时记录错误信息。
func (q *Queue) UpdateStatus(ctx context.Context, id string, to Status, errMsg string) (*Job, error) {
	job, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidTransition(job.Status, to) {
		return nil, fmt.Errorf("非法状态迁移: %s → %s (job %s)", job.Status, to, id)
	}

	now := time.Now().UTC()
	job.Status = to
	job.Updated = &now
	if to == StatusFailed {
		job.Error = errMsg
	}
	if err := q.store.Put(ctx, job); err != nil {
		return nil, fmt.Errorf("更新 Job %s failed: %w", id, err)
	}
	if to.Terminal() {
		metrics.JobTotal.WithLabelValues(string(to)).Inc()
	}
	return job, nil
}

// CleanupOldJobs 清理已到终态且超过保留时长的 Job，返回清理条数
func (q *Queue) CleanupOldJobs(ctx context.Context, maxAge time.Duration) (int, error) {
	jobs, err := q.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("列出 Job failed: %w", err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, job := range jobs {
		if !job.Status.Terminal() || !job.Created.Before(cutoff) {
			continue
		}
		if err := q.store.Delete(ctx, job.ID); err != nil {
			q.logger.Warn("清理 Job failed", "job_id", job.ID, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.JobsCleanedTotal.Add(float64(removed))
		q.logger.Info("清理过期 Job", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}
