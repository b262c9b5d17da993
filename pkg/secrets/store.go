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

	"pdf-ingest/pkg/errors"
)

// Store 密钥存储接口；服务启动时通过它解析外部凭证（如 Embedding API Key），
// 算法代码不直接读环境变量
type Store interface {
	// Get 获取密钥值；不存在时返回包装了 errors.ErrNotFound 的错误
	Get(ctx context.Context, key string) (string, error)

	// Set 写入密钥值（只读 Provider 仅更新本地缓存）
	Set(ctx context.Context, key string, value string) error

	// Delete 删除密钥
	Delete(ctx context.Context, key string) error

	// List 列出指定前缀的密钥名
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config 密钥存储配置
type Config struct {
	Provider string            `yaml:"provider"` // env | memory | vault | k8s
	Config   map[string]string `yaml:"config"`   // Provider 专属参数
}

// NewStore 按 Provider 创建密钥存储；Provider 为空时默认 env
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Config["address"],
			Token:      config.Config["token"],
			PathPrefix: config.Config["path_prefix"],
		})
	case "k8s":
		return NewK8sStore(K8sConfig{
			MountPath: config.Config["mount_path"],
		})
	default:
		return nil, errors.Wrapf(errors.ErrInvalidArg, "不支持的密钥 Provider: %s", config.Provider)
	}
}
