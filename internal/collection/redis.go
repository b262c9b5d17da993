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

package collection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pdf-ingest/pkg/config"
)

const redisKeyPrefix = "pdfingest"

// RedisStore Redis 集合存储，多实例部署共享
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 集合存储并探活
func NewRedisStore(cfg config.CollectionConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, name string) (Collection, error) {
	if err := s.client.SAdd(ctx, redisKeyPrefix+":collections", name).Err(); err != nil {
		return nil, fmt.Errorf("注册集合 %s failed: %w", name, err)
	}
	return &redisCollection{client: s.client, name: name}, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, redisKeyPrefix+":collections").Result()
	if err != nil {
		return nil, fmt.Errorf("列出集合failed: %w", err)
	}
	return names, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisCollection struct {
	client *redis.Client
	name   string
}

func (c *redisCollection) Name() string { return c.name }

func (c *redisCollection) idsKey() string {
	return fmt.Sprintf("%s:collection:%s:ids", redisKeyPrefix, c.name)
}

func (c *redisCollection) docKey(id string) string {
	return fmt.Sprintf("%s:collection:%s:doc:%s", redisKeyPrefix, c.name, id)
}

// Add 以单条 pipeline 写入全部文档，向量与元数据 JSON 编码
func (c *redisCollection) Add(ctx context.Context, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]interface{}) error {
	if err := validateAdd(ids, embeddings, documents, metadatas); err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	for i, id := range ids {
		embJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("编码向量failed: %w", err)
		}
		metaJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("编码元数据failed: %w", err)
		}
		pipe.HSet(ctx, c.docKey(id), map[string]interface{}{
			"document":  documents[i],
			"embedding": string(embJSON),
			"metadata":  string(metaJSON),
		})
		pipe.SAdd(ctx, c.idsKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入集合 %s failed: %w", c.name, err)
	}
	return nil
}

func (c *redisCollection) Count(ctx context.Context) (int, error) {
	n, err := c.client.SCard(ctx, c.idsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("统计集合 %s failed: %w", c.name, err)
	}
	return int(n), nil
}
