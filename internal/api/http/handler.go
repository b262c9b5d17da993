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

// Package http PDF 摄取服务的 HTTP 接入层。
// 处理器职责止于参数校验与投递，Job 执行由调度器独占。
package http

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"pdf-ingest/internal/collection"
	"pdf-ingest/internal/jobqueue"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/errors"
	"pdf-ingest/pkg/metrics"
)

// JobSubmitter Job 投递入口（由调度器实现）
type JobSubmitter interface {
	Submit(jobID string) error
}

// Handler HTTP 处理器集合
type Handler struct {
	queue       *jobqueue.Queue
	submitter   JobSubmitter
	collections collection.Store
	uploadCfg   config.UploadConfig
}

// NewHandler 创建 Handler
func NewHandler(queue *jobqueue.Queue, submitter JobSubmitter, collections collection.Store, uploadCfg config.UploadConfig) *Handler {
	return &Handler{
		queue:       queue,
		submitter:   submitter,
		collections: collections,
		uploadCfg:   uploadCfg,
	}
}

// Upload 接收 PDF 上传并登记 pending Job
// POST /api/upload
func (h *Handler) Upload(c context.Context, ctx *app.RequestContext) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "缺少上传文件"})
		return
	}
	collectionName := string(ctx.FormValue("collectionName"))
	if collectionName == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "缺少 collectionName"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "只接受 PDF 文件"})
		return
	}
	if maxBytes := int64(h.uploadCfg.MaxFileSizeMB) * 1024 * 1024; maxBytes > 0 && fileHeader.Size > maxBytes {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("文件超过 %d MB 上限", h.uploadCfg.MaxFileSizeMB),
		})
		return
	}

	if err := os.MkdirAll(h.uploadCfg.TempDir, 0755); err != nil {
		hlog.CtxErrorf(c, "failed to create temp dir: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存上传文件failed"})
		return
	}

	jobID := uuid.New().String()
	path := filepath.Join(h.uploadCfg.TempDir, jobID+"_"+filepath.Base(fileHeader.Filename))
	if err := ctx.SaveUploadedFile(fileHeader, path); err != nil {
		hlog.CtxErrorf(c, "failed to save uploaded file: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存上传文件failed"})
		return
	}

	job, err := h.queue.Register(c, jobID, path, collectionName)
	if err != nil {
		_ = os.Remove(path)
		hlog.CtxErrorf(c, "failed to register job: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "登记 Job failed"})
		return
	}

	ctx.JSON(consts.StatusAccepted, map[string]interface{}{
		"jobId":    job.ID,
		"status":   string(job.Status),
		"filename": job.Filename(),
	})
}

// TriggerJob 触发 Job 处理；投递即返回，不等待执行
// POST /api/jobs/process
func (h *Handler) TriggerJob(c context.Context, ctx *app.RequestContext) {
	var req struct {
		JobID string `json:"jobId"`
	}
	if err := ctx.BindJSON(&req); err != nil || req.JobID == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "缺少 jobId"})
		return
	}

	if _, err := h.queue.Job(c, req.JobID); err != nil {
		if errors.Is(err, jobqueue.ErrJobNotFound) {
			ctx.JSON(consts.StatusNotFound, map[string]string{"error": "Job 不存在"})
			return
		}
		hlog.CtxErrorf(c, "failed to look up job %s: %v", req.JobID, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询 Job failed"})
		return
	}

	if err := h.submitter.Submit(req.JobID); err != nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"message": "Job 已进入处理队列",
		"jobId":   req.JobID,
	})
}

// JobStatus 查询 Job：带 jobId 查单条，否则按 status/limit 列表
// GET /api/jobs
func (h *Handler) JobStatus(c context.Context, ctx *app.RequestContext) {
	if jobID := ctx.Query("jobId"); jobID != "" {
		job, err := h.queue.Job(c, jobID)
		if err != nil {
			if errors.Is(err, jobqueue.ErrJobNotFound) {
				ctx.JSON(consts.StatusNotFound, map[string]string{"error": "Job 不存在"})
				return
			}
			hlog.CtxErrorf(c, "failed to look up job %s: %v", jobID, err)
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询 Job failed"})
			return
		}
		ctx.JSON(consts.StatusOK, job)
		return
	}

	status := jobqueue.Status(ctx.Query("status"))
	if status != "" && !status.Valid() {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("未知状态: %s", status),
		})
		return
	}
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "limit 必须是非负整数"})
			return
		}
		limit = n
	}

	jobs, err := h.queue.Jobs(c, status, limit)
	if err != nil {
		hlog.CtxErrorf(c, "failed to list jobs: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "列出 Job failed"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// ListCollections 列出全部集合
// GET /api/collections
func (h *Handler) ListCollections(c context.Context, ctx *app.RequestContext) {
	names, err := h.collections.List(c)
	if err != nil {
		hlog.CtxErrorf(c, "failed to list collections: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "列出集合failed"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"collections": names,
		"count":       len(names),
	})
}

// CreateCollection 预创建集合
// POST /api/collections
func (h *Handler) CreateCollection(c context.Context, ctx *app.RequestContext) {
	var req struct {
		Name string `json:"name"`
	}
	if err := ctx.BindJSON(&req); err != nil || req.Name == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "缺少集合名"})
		return
	}
	if _, err := h.collections.GetOrCreate(c, req.Name); err != nil {
		hlog.CtxErrorf(c, "failed to create collection %s: %v", req.Name, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "创建集合failed"})
		return
	}
	ctx.JSON(consts.StatusCreated, map[string]string{"name": req.Name})
}

// Health 健康检查
// GET /health
func (h *Handler) Health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

// Metrics Prometheus 指标
// GET /metrics
func (h *Handler) Metrics(_ context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "导出指标failed"})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4", buf.Bytes())
}
