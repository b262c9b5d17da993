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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-ingest/pkg/config"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c1, err := store.GetOrCreate(ctx, "docs")
	require.NoError(t, err)
	c2, err := store.GetOrCreate(ctx, "docs")
	require.NoError(t, err)
	assert.Same(t, c1, c2, "同名集合应返回同一实例")

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)
}

func TestMemoryCollectionAddCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	c, _ := store.GetOrCreate(ctx, "docs")

	err := c.Add(ctx,
		[]string{"id-1"},
		[][]float64{{0.1, 0.2}},
		[]string{"hello world"},
		[]map[string]interface{}{{"filename": "a.pdf"}},
	)
	require.NoError(t, err)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryCollectionAddValidation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	c, _ := store.GetOrCreate(ctx, "docs")

	assert.Error(t, c.Add(ctx, nil, nil, nil, nil), "空 ids 应报错")
	assert.Error(t, c.Add(ctx, []string{"a"}, nil, []string{"d"}, nil), "切片长度不一致应报错")
}

func TestNewStoreTypes(t *testing.T) {
	_, err := NewStore(config.CollectionConfig{Type: "memory"})
	assert.NoError(t, err)
	_, err = NewStore(config.CollectionConfig{})
	assert.NoError(t, err, "默认类型应为 memory")
	_, err = NewStore(config.CollectionConfig{Type: "cassandra"})
	assert.Error(t, err, "未知类型应报错")
}
