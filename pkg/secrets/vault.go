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
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"pdf-ingest/pkg/errors"
)

// VaultConfig HashiCorp Vault 配置
type VaultConfig struct {
	Address    string `yaml:"address"`     // Vault 地址，如 http://vault:8200
	Token      string `yaml:"token"`       // 访问 token
	PathPrefix string `yaml:"path_prefix"` // 密钥路径前缀，默认 "secret"
}

// vaultStore 通过 Vault logical API 读写密钥；
// 每个密钥存为 <prefix>/<key> 路径下 data["value"]
type vaultStore struct {
	client     *vault.Client
	pathPrefix string
}

// NewVaultStore 创建 Vault 密钥存储并校验连通性
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if config.Address != "" {
		cfg.Address = config.Address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "创建 Vault 客户端 failed")
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	if _, err := client.Sys().Health(); err != nil {
		return nil, errors.Wrapf(err, "连接 Vault failed: %s", cfg.Address)
	}

	prefix := config.PathPrefix
	if prefix == "" {
		prefix = "secret"
	}
	return &vaultStore{client: client, pathPrefix: prefix}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path(key))
	if err != nil {
		return "", errors.Wrapf(err, "读取 Vault 密钥 failed: %s", key)
	}
	if secret == nil {
		return "", errors.Wrapf(errors.ErrNotFound, "密钥不存在: %s", key)
	}
	if value, ok := secret.Data["value"].(string); ok {
		return value, nil
	}
	return "", errors.Wrapf(errors.ErrNotFound, "密钥 %s 缺少 value 字段", key)
}

func (v *vaultStore) Set(ctx context.Context, key, value string) error {
	_, err := v.client.Logical().WriteWithContext(ctx, v.path(key), map[string]interface{}{
		"value": value,
	})
	if err != nil {
		return errors.Wrapf(err, "写入 Vault 密钥 failed: %s", key)
	}
	return nil
}

func (v *vaultStore) Delete(ctx context.Context, key string) error {
	if _, err := v.client.Logical().DeleteWithContext(ctx, v.path(key)); err != nil {
		return errors.Wrapf(err, "删除 Vault 密钥 failed: %s", key)
	}
	return nil
}

func (v *vaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	secret, err := v.client.Logical().ListWithContext(ctx, v.pathPrefix)
	if err != nil {
		return nil, errors.Wrapf(err, "列举 Vault 密钥 failed: %s", v.pathPrefix)
	}
	if secret == nil {
		return nil, nil
	}
	raw, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, nil
	}
	var keys []string
	for _, k := range raw {
		if name, ok := k.(string); ok && strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

func (v *vaultStore) path(key string) string {
	return fmt.Sprintf("%s/%s", v.pathPrefix, key)
}
