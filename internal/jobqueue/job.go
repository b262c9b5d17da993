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

// Package jobqueue PDF 摄取 Job 的登记与生命周期管理。
// 状态机：pending → processing → {completed | failed}，终态不可变。
package jobqueue

import (
	"path/filepath"
	"strings"
	"time"
)

// Status Job 生命周期状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal 终态判定
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ValidTransition 状态机约束：单向推进，processing 内部可重入，终态不可离开
func ValidTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusProcessing || to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// Job 一次 PDF 摄取任务
type Job struct {
	ID             string     `json:"jobId"`
	FilePath       string     `json:"filePath"`
	CollectionName string     `json:"collectionName"`
	Status         Status     `json:"status"`
	Created        time.Time  `json:"created"`
	Updated        *time.Time `json:"updated,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// Filename 去掉 Job ID 前缀后的原始文件名
func (j *Job) Filename() string {
	base := filepath.Base(j.FilePath)
	return strings.TrimPrefix(base, j.ID+"_")
}

// Clone 深拷贝，内存实现返回副本防止外部改写
func (j *Job) Clone() *Job {
	out := *j
	if j.Updated != nil {
		u := *j.Updated
		out.Updated = &u
	}
	return &out
}
