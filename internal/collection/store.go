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

// Package collection 向量集合存储：Job 处理流程的最终写入目标。
// 提供内存实现（单机/测试）与 Redis 实现（多实例部署）。
package collection

import (
	"context"
	"fmt"

	"pdf-ingest/pkg/config"
)

// Collection 一个命名向量集合
type Collection interface {
	// Name 集合名
	Name() string
	// Add 批量写入文档；四个切片长度必须一致
	Add(ctx context.Context, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]interface{}) error
	// Count 集合内文档数
	Count(ctx context.Context) (int, error)
}

// Store 集合存储
type Store interface {
	// GetOrCreate 取出集合，不存在则创建
	GetOrCreate(ctx context.Context, name string) (Collection, error)
	// List 列出全部集合名
	List(ctx context.Context) ([]string, error)
	// Close 释放底层连接
	Close() error
}

// NewStore 按配置创建集合存储
func NewStore(cfg config.CollectionConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("不支持的集合存储类型: %s", cfg.Type)
	}
}

// validateAdd 校验 Add 的平行切片
func validateAdd(ids []string, embeddings [][]float64, documents []string, metadatas []map[string]interface{}) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids 不能为空")
	}
	if len(embeddings) != len(ids) || len(documents) != len(ids) || len(metadatas) != len(ids) {
		return fmt.Errorf("ids/embeddings/documents/metadatas 长度不一致: %d/%d/%d/%d",
			len(ids), len(embeddings), len(documents), len(metadatas))
	}
	return nil
}
