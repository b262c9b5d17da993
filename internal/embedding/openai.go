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

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/retry"
)

// OpenAIEmbedder OpenAI 兼容的 Embedding 客户端。
// 不在客户端内重试：重试策略统一由调用方的 retry 包控制。
type OpenAIEmbedder struct {
	model     string
	apiKey    string
	baseURL   string
	dimension int
	client    *resty.Client
}

// NewOpenAIEmbedder 创建 Embedding 客户端；apiKey 由 secrets.Store 解析后传入
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, apiKey string) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 1536
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &OpenAIEmbedder{
		model:     model,
		apiKey:    apiKey,
		baseURL:   baseURL,
		dimension: dimension,
		client:    client,
	}
}

// Dimension 返回向量维度
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed 调用 /embeddings 接口。非 2xx 响应返回 retry.HTTPError，
// 由重试策略按状态码分类处理。
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	request := map[string]interface{}{
		"model": e.model,
		"input": []string{text},
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(request).
		Post(e.baseURL + "/embeddings")

	if err != nil {
		return nil, fmt.Errorf("调用 Embedding API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: response.StatusCode(), Body: response.String()}
	}

	var result struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Embedding 响应failed: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("Embedding API 没有返回向量")
	}
	return result.Data[0].Embedding, nil
}
