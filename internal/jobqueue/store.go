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

	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/errors"
)

// ErrJobNotFound Job 不存在
var ErrJobNotFound = errors.ErrNotFound

// Store Job 登记表的存取接口。内存实现供单机部署与测试，
// Postgres 实现供多实例部署（独立 Worker 经 ClaimPending 抢占）。
type Store interface {
	// Put 插入或整体覆盖一条 Job 记录
	Put(ctx context.Context, job *Job) error
	// Get 按 ID 查找；不存在返回 ErrJobNotFound
	Get(ctx context.Context, id string) (*Job, error)
	// List 返回全部 Job，无序
	List(ctx context.Context) ([]*Job, error)
	// Delete 按 ID 删除；不存在不报错
	Delete(ctx context.Context, id string) error
	// Close 释放底层资源
	Close() error
}

// NewStore 按配置创建 Job 存储
func NewStore(ctx context.Context, cfg config.JobStoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPGStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("不支持的 Job 存储类型: %s", cfg.Type)
	}
}
