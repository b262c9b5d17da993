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
	"sort"
	"sync"
)

// MemoryStore 进程内集合存储；不跨进程、不持久化
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore 创建内存集合存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, name string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	c := &memoryCollection{name: name}
	s.collections[name] = c
	return c, nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }

type memoryDoc struct {
	id        string
	embedding []float64
	document  string
	metadata  map[string]interface{}
}

type memoryCollection struct {
	mu   sync.RWMutex
	name string
	docs []memoryDoc
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Add(_ context.Context, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]interface{}) error {
	if err := validateAdd(ids, embeddings, documents, metadatas); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range ids {
		c.docs = append(c.docs, memoryDoc{
			id:        ids[i],
			embedding: embeddings[i],
			document:  documents[i],
			metadata:  metadatas[i],
		})
	}
	return nil
}

func (c *memoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs), nil
}
