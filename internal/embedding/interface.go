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

// Package embedding 文本向量化能力，供 Job 处理流程消费
package embedding

import "context"

// Embedder 文本向量化接口
type Embedder interface {
	// Embed 将文本转为向量；不可恢复错误返回 error，不返回空向量
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimension 返回向量维度
	Dimension() int
}
