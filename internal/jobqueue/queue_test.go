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
	"errors"
	"testing"
	"time"

	"pdf-ingest/pkg/log"
)

func newTestQueue() *Queue {
	return New(NewMemoryStore(), log.NewNop())
}

func TestEnqueueCreatesPendingJob(t *testing.T) {
	q := newTestQueue()
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "/tmp/abc_report.pdf", "docs")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.ID == "" {
		t.Fatal("应生成 ID")
	}
	if job.Status != StatusPending {
		t.Fatalf("初始状态应为 pending: %s", job.Status)
	}

	got, err := q.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if got.CollectionName != "docs" {
		t.Fatalf("集合名不符: %s", got.CollectionName)
	}
}

func TestJobNotFound(t *testing.T) {
	q := newTestQueue()
	if _, err := q.Job(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("应返回 ErrJobNotFound: %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	q := newTestQueue()
	ctx := context.Background()
	job, _ := q.Enqueue(ctx, "/tmp/a.pdf", "docs")

	// pending 不能直达终态
	if _, err := q.UpdateStatus(ctx, job.ID, StatusCompleted, ""); err == nil {
		t.Fatal("pending → completed 应被拒绝")
	}

	if _, err := q.UpdateStatus(ctx, job.ID, StatusProcessing, ""); err != nil {
		t.Fatalf("pending → processing: %v", err)
	}
	// processing 可重入
	if _, err := q.UpdateStatus(ctx, job.ID, StatusProcessing, ""); err != nil {
		t.Fatalf("processing → processing 应允许: %v", err)
	}
	// 不允许回退
	if _, err := q.UpdateStatus(ctx, job.ID, StatusPending, ""); err == nil {
		t.Fatal("processing → pending 应被拒绝")
	}

	updated, err := q.UpdateStatus(ctx, job.ID, StatusFailed, "extraction produced no text")
	if err != nil {
		t.Fatalf("processing → failed: %v", err)
	}
	if updated.Error != "extraction produced no text" {
		t.Fatalf("失败信息未记录: %q", updated.Error)
	}
	if updated.Updated == nil {
		t.Fatal("迁移后 Updated 应被设置")
	}

	// 终态不可变
	if _, err := q.UpdateStatus(ctx, job.ID, StatusProcessing, ""); err == nil {
		t.Fatal("failed → processing 应被拒绝")
	}
}

func TestJobsFilterSortLimit(t *testing.T) {
	q := newTestQueue()
	ctx := context.Background()

	var last *Job
	for i := 0; i < 5; i++ {
		job, _ := q.Enqueue(ctx, "/tmp/f.pdf", "docs")
		time.Sleep(2 * time.Millisecond) // 保证 Created 有序
		last = job
	}
	_, _ = q.UpdateStatus(ctx, last.ID, StatusProcessing, "")

	all, err := q.Jobs(ctx, "", 0)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("应有 5 条: %d", len(all))
	}
	if all[0].ID != last.ID {
		t.Fatal("应按 Created 新到旧排序")
	}

	pending, _ := q.Jobs(ctx, StatusPending, 0)
	if len(pending) != 4 {
		t.Fatalf("pending 过滤应得 4 条: %d", len(pending))
	}

	limited, _ := q.Jobs(ctx, "", 2)
	if len(limited) != 2 {
		t.Fatalf("limit 应截断到 2 条: %d", len(limited))
	}
}

func TestCleanupOldJobs(t *testing.T) {
	store := NewMemoryStore()
	q := New(store, log.NewNop())
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	mkJob := func(id string, status Status, created time.Time) {
		_ = store.Put(ctx, &Job{ID: id, FilePath: "/tmp/f.pdf", CollectionName: "docs", Status: status, Created: created})
	}
	mkJob("old-done", StatusCompleted, old)
	mkJob("old-failed", StatusFailed, old)
	mkJob("old-pending", StatusPending, old) // 非终态不清理
	mkJob("fresh-done", StatusCompleted, time.Now().UTC())

	removed, err := q.CleanupOldJobs(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupOldJobs: %v", err)
	}
	if removed != 2 {
		t.Fatalf("应清理 2 条: %d", removed)
	}

	// 幂等：立即再清一次应为 0
	removed, err = q.CleanupOldJobs(ctx, 24*time.Hour)
	if err != nil || removed != 0 {
		t.Fatalf("第二次清理应为 0: %d %v", removed, err)
	}

	if _, err := q.Job(ctx, "old-pending"); err != nil {
		t.Fatal("非终态 Job 不应被清理")
	}
	if _, err := q.Job(ctx, "fresh-done"); err != nil {
		t.Fatal("保留期内的终态 Job 不应被清理")
	}
}

func TestFilename(t *testing.T) {
	job := &Job{ID: "abc-123", FilePath: "/tmp/uploads/abc-123_report.pdf"}
	if got := job.Filename(); got != "report.pdf" {
		t.Fatalf("应去掉 Job ID 前缀: %q", got)
	}
	plain := &Job{ID: "x", FilePath: "/tmp/report.pdf"}
	if got := plain.Filename(); got != "report.pdf" {
		t.Fatalf("无前缀时保持原名: %q", got)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Put(ctx, &Job{ID: "a", Status: StatusPending, Created: time.Now()})

	got, _ := store.Get(ctx, "a")
	got.Status = StatusFailed // 改写副本不应影响存储

	again, _ := store.Get(ctx, "a")
	if again.Status != StatusPending {
		t.Fatal("Get 应返回隔离副本")
	}
}
