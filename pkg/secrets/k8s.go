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

package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pdf-ingest/pkg/errors"
)

// K8sConfig Kubernetes 挂载密钥配置
type K8sConfig struct {
	// MountPath Secret volume 的挂载目录，默认 /etc/secrets；
	// 每个密钥对应目录下的一个文件，文件名即密钥名
	MountPath string `yaml:"mount_path"`
}

// k8sStore 从 Pod 内挂载的 Secret volume 读取密钥。
// 挂载内容对 Pod 只读，Set/Delete 仅作用于本地缓存。
type k8sStore struct {
	mountPath string
	mu        sync.RWMutex
	cache     map[string]string
}

// NewK8sStore 创建 Kubernetes 挂载密钥存储
func NewK8sStore(config K8sConfig) (Store, error) {
	mountPath := config.MountPath
	if mountPath == "" {
		mountPath = "/etc/secrets"
	}
	if _, err := os.Stat(mountPath); err != nil {
		return nil, errors.Wrapf(err, "密钥挂载目录不可用: %s", mountPath)
	}
	return &k8sStore{
		mountPath: mountPath,
		cache:     make(map[string]string),
	}, nil
}

func (k *k8sStore) Get(_ context.Context, key string) (string, error) {
	k.mu.RLock()
	if value, ok := k.cache[key]; ok {
		k.mu.RUnlock()
		return value, nil
	}
	k.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(k.mountPath, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(errors.ErrNotFound, "密钥不存在: %s", key)
		}
		return "", errors.Wrapf(err, "读取密钥文件 failed: %s", key)
	}

	value := strings.TrimSpace(string(data))
	k.mu.Lock()
	k.cache[key] = value
	k.mu.Unlock()
	return value, nil
}

func (k *k8sStore) Set(_ context.Context, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cache[key] = value
	return nil
}

func (k *k8sStore) Delete(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.cache, key)
	return nil
}

func (k *k8sStore) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(k.mountPath)
	if err != nil {
		return nil, errors.Wrapf(err, "读取密钥挂载目录 failed: %s", k.mountPath)
	}
	var keys []string
	for _, e := range entries {
		// Secret volume 内的 ..data 等符号链接目录跳过
		if e.IsDir() || strings.HasPrefix(e.Name(), "..") {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}
