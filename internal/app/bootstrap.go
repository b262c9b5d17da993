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

// Package app 统一初始化：供 api 与 worker 复用，避免在 cmd 内装配业务
package app

import (
	"context"
	"fmt"

	"pdf-ingest/internal/collection"
	"pdf-ingest/internal/embedding"
	"pdf-ingest/internal/extract"
	"pdf-ingest/internal/extract/ocr"
	"pdf-ingest/internal/jobqueue"
	"pdf-ingest/internal/processor"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/secrets"
)

// Bootstrap 两个进程共用的依赖集
type Bootstrap struct {
	Config      *config.Config
	Logger      *log.Logger
	JobStore    jobqueue.Store
	Queue       *jobqueue.Queue
	Collections collection.Store
	Embedder    embedding.Embedder
	Extractor   *extract.Extractor
	Processor   *processor.Processor
}

// NewBootstrap 按配置装配全部依赖
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	secretStore, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Config:   cfg.Secrets.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化密钥存储failed: %w", err)
	}
	apiKey := ""
	if cfg.Embedding.APIKeySecret != "" {
		apiKey, err = secretStore.Get(ctx, cfg.Embedding.APIKeySecret)
		if err != nil {
			return nil, fmt.Errorf("读取 Embedding API 密钥failed: %w", err)
		}
	}

	jobStore, err := jobqueue.NewStore(ctx, cfg.JobStore)
	if err != nil {
		return nil, fmt.Errorf("初始化 Job 存储failed: %w", err)
	}
	queue := jobqueue.New(jobStore, logger)

	collections, err := collection.NewStore(cfg.Collection)
	if err != nil {
		jobStore.Close()
		return nil, fmt.Errorf("初始化集合存储failed: %w", err)
	}

	embedder := embedding.NewRateLimited(
		embedding.NewOpenAIEmbedder(cfg.Embedding, apiKey),
		cfg.Embedding.RequestsPerMinute,
	)

	ocrEngine := ocr.NewEngine(cfg.OCR, logger)
	extractor := extract.New(cfg.Extract, cfg.OCR, ocrEngine, logger)
	proc := processor.New(queue, extractor, embedder, collections, cfg.Extract, logger)

	return &Bootstrap{
		Config:      cfg,
		Logger:      logger,
		JobStore:    jobStore,
		Queue:       queue,
		Collections: collections,
		Embedder:    embedder,
		Extractor:   extractor,
		Processor:   proc,
	}, nil
}

// Close 释放底层资源
func (b *Bootstrap) Close() {
	if b.JobStore != nil {
		if err := b.JobStore.Close(); err != nil {
			b.Logger.Warn("关闭 Job 存储failed", "error", err)
		}
	}
	if b.Collections != nil {
		if err := b.Collections.Close(); err != nil {
			b.Logger.Warn("关闭集合存储failed", "error", err)
		}
	}
}
