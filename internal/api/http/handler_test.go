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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"pdf-ingest/internal/api/http/middleware"
	"pdf-ingest/internal/collection"
	"pdf-ingest/internal/jobqueue"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/log"
)

// fakeSubmitter 记录投递的 Job ID
type fakeSubmitter struct {
	ids  []string
	full bool
}

func (f *fakeSubmitter) Submit(jobID string) error {
	if f.full {
		return errFull
	}
	f.ids = append(f.ids, jobID)
	return nil
}

var errFull = errors.New("任务队列已满")

type apiEnv struct {
	queue     *jobqueue.Queue
	submitter *fakeSubmitter
	store     collection.Store
	server    *server.Hertz
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	env := &apiEnv{
		queue:     jobqueue.New(jobqueue.NewMemoryStore(), log.NewNop()),
		submitter: &fakeSubmitter{},
		store:     collection.NewMemoryStore(),
	}
	h := NewHandler(env.queue, env.submitter, env.store, config.UploadConfig{
		TempDir:       t.TempDir(),
		MaxFileSizeMB: 10,
	})
	r := NewRouter(h, middleware.NewMiddleware(nil))
	env.server = r.Build(":0")
	return env
}

func performJSON(t *testing.T, env *apiEnv, method, path string, payload []byte) (int, map[string]interface{}) {
	t.Helper()
	w := ut.PerformRequest(env.server.Engine, method, path,
		&ut.Body{Body: bytes.NewReader(payload), Len: len(payload)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
	resp := w.Result()
	var body map[string]interface{}
	_ = json.Unmarshal(resp.Body(), &body)
	return resp.StatusCode(), body
}

func multipartPDF(t *testing.T, filename, collectionName string) (contentType string, body []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if collectionName != "" {
		if err := mw.WriteField("collectionName", collectionName); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = fw.Write([]byte("%PDF-1.4 test"))
	}
	_ = mw.Close()
	return mw.FormDataContentType(), buf.Bytes()
}

func performUpload(t *testing.T, env *apiEnv, filename, collectionName string) (int, map[string]interface{}) {
	t.Helper()
	contentType, payload := multipartPDF(t, filename, collectionName)
	w := ut.PerformRequest(env.server.Engine, "POST", "/api/upload",
		&ut.Body{Body: bytes.NewReader(payload), Len: len(payload)},
		ut.Header{Key: "Content-Type", Value: contentType})
	resp := w.Result()
	var body map[string]interface{}
	_ = json.Unmarshal(resp.Body(), &body)
	return resp.StatusCode(), body
}

func TestUploadAcceptsPDF(t *testing.T) {
	env := newAPIEnv(t)

	status, body := performUpload(t, env, "report.pdf", "docs")
	if status != 202 {
		t.Fatalf("status = %d, want 202 (%v)", status, body)
	}
	if body["status"] != "pending" || body["filename"] != "report.pdf" {
		t.Fatalf("响应不符: %v", body)
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" {
		t.Fatal("应返回 jobId")
	}

	job, err := env.queue.Job(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Job 应已登记: %v", err)
	}
	if job.Status != jobqueue.StatusPending {
		t.Fatalf("应为 pending: %s", job.Status)
	}
}

func TestUploadValidation(t *testing.T) {
	env := newAPIEnv(t)

	if status, _ := performUpload(t, env, "", "docs"); status != 400 {
		t.Fatalf("缺文件 status = %d, want 400", status)
	}
	if status, _ := performUpload(t, env, "report.pdf", ""); status != 400 {
		t.Fatalf("缺集合名 status = %d, want 400", status)
	}
	if status, _ := performUpload(t, env, "report.txt", "docs"); status != 400 {
		t.Fatalf("非 PDF status = %d, want 400", status)
	}
	// 大小写不敏感
	if status, _ := performUpload(t, env, "REPORT.PDF", "docs"); status != 202 {
		t.Fatalf("大写扩展名 status = %d, want 202", status)
	}
}

func TestTriggerJob(t *testing.T) {
	env := newAPIEnv(t)
	job, _ := env.queue.Enqueue(context.Background(), "/tmp/x.pdf", "docs")

	status, _ := performJSON(t, env, "POST", "/api/jobs/process", []byte(`{}`))
	if status != 400 {
		t.Fatalf("缺 jobId status = %d, want 400", status)
	}

	status, _ = performJSON(t, env, "POST", "/api/jobs/process", []byte(`{"jobId":"missing"}`))
	if status != 404 {
		t.Fatalf("未知 Job status = %d, want 404", status)
	}

	status, body := performJSON(t, env, "POST", "/api/jobs/process", []byte(`{"jobId":"`+job.ID+`"}`))
	if status != 200 {
		t.Fatalf("status = %d, want 200 (%v)", status, body)
	}
	if len(env.submitter.ids) != 1 || env.submitter.ids[0] != job.ID {
		t.Fatalf("Job 应被投递: %v", env.submitter.ids)
	}
}

func TestTriggerJobQueueFull(t *testing.T) {
	env := newAPIEnv(t)
	env.submitter.full = true
	job, _ := env.queue.Enqueue(context.Background(), "/tmp/x.pdf", "docs")

	status, _ := performJSON(t, env, "POST", "/api/jobs/process", []byte(`{"jobId":"`+job.ID+`"}`))
	if status != 503 {
		t.Fatalf("队列满 status = %d, want 503", status)
	}
}

func TestJobStatusSingle(t *testing.T) {
	env := newAPIEnv(t)
	job, _ := env.queue.Enqueue(context.Background(), "/tmp/x.pdf", "docs")

	status, body := performJSON(t, env, "GET", "/api/jobs?jobId="+job.ID, nil)
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["jobId"] != job.ID || body["status"] != "pending" {
		t.Fatalf("Job 记录不符: %v", body)
	}

	status, _ = performJSON(t, env, "GET", "/api/jobs?jobId=missing", nil)
	if status != 404 {
		t.Fatalf("未知 Job status = %d, want 404", status)
	}
}

func TestJobStatusList(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = env.queue.Enqueue(ctx, "/tmp/x.pdf", "docs")
	}

	status, body := performJSON(t, env, "GET", "/api/jobs", nil)
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["count"].(float64) != 3 {
		t.Fatalf("count 不符: %v", body)
	}

	status, body = performJSON(t, env, "GET", "/api/jobs?limit=2", nil)
	if status != 200 || body["count"].(float64) != 2 {
		t.Fatalf("limit 截断不符: %d %v", status, body)
	}

	status, _ = performJSON(t, env, "GET", "/api/jobs?status=bogus", nil)
	if status != 400 {
		t.Fatalf("非法状态 status = %d, want 400", status)
	}
	status, _ = performJSON(t, env, "GET", "/api/jobs?limit=-1", nil)
	if status != 400 {
		t.Fatalf("非法 limit status = %d, want 400", status)
	}
}

func TestCollectionsEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	status, _ := performJSON(t, env, "POST", "/api/collections", []byte(`{"name":"docs"}`))
	if status != 201 {
		t.Fatalf("创建集合 status = %d, want 201", status)
	}
	status, _ = performJSON(t, env, "POST", "/api/collections", []byte(`{}`))
	if status != 400 {
		t.Fatalf("缺集合名 status = %d, want 400", status)
	}

	status, body := performJSON(t, env, "GET", "/api/collections", nil)
	if status != 200 || body["count"].(float64) != 1 {
		t.Fatalf("集合列表不符: %d %v", status, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newAPIEnv(t)

	status, body := performJSON(t, env, "GET", "/health", nil)
	if status != 200 || body["status"] != "ok" {
		t.Fatalf("health 不符: %d %v", status, body)
	}

	w := ut.PerformRequest(env.server.Engine, "GET", "/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("metrics status = %d, want 200", got)
	}
}
