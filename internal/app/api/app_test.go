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
	"fmt"
	"testing"

	"pdf-ingest/internal/app"
	"pdf-ingest/internal/collection"
	"pdf-ingest/internal/jobqueue"
	"pdf-ingest/internal/processor"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/log"
)

func testBootstrap(storeType string) *app.Bootstrap {
	logger := log.NewNop()
	cfg := &config.Config{}
	cfg.JobStore.Type = storeType
	cfg.Worker.Concurrency = 1
	cfg.Worker.QueueSize = 4
	return &app.Bootstrap{
		Config:      cfg,
		Logger:      logger,
		Queue:       jobqueue.New(jobqueue.NewMemoryStore(), logger),
		Collections: collection.NewMemoryStore(),
	}
}

// jobstore=postgres 时 Job 由独立 Worker 认领，API 侧触发不得经过
// 进程内队列，否则队列占满后上传会一直报队列已满
func TestNewAppPostgresModeBypassesDispatcher(t *testing.T) {
	a, err := NewApp(testBootstrap("postgres"))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if a.dispatcher != nil {
		t.Fatal("postgres 模式不应装配进程内调度器")
	}
	// 远超 queue_size 的连续触发都应成功
	for i := 0; i < 100; i++ {
		if err := a.submitter.Submit(fmt.Sprintf("job-%d", i)); err != nil {
			t.Fatalf("第 %d 次触发失败: %v", i, err)
		}
	}
}

func TestNewAppMemoryModeUsesDispatcher(t *testing.T) {
	a, err := NewApp(testBootstrap("memory"))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if a.dispatcher == nil {
		t.Fatal("memory 模式应装配进程内调度器")
	}
	if s, ok := a.submitter.(*processor.Dispatcher); !ok || s != a.dispatcher {
		t.Fatal("memory 模式下投递入口应为进程内调度器")
	}
}
