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

// Package retry 通用操作重试：指数退避 + 抖动，按错误分类决定是否重试。
// 所有依赖网络的步骤（提取子步骤、Embedding、集合写入）都经由 Do 包装。
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"pdf-ingest/pkg/metrics"
)

// DefaultMaxRetries 默认最大尝试次数（含首次）
const DefaultMaxRetries = 3

const (
	baseDelay = time.Second
	maxDelay  = 10 * time.Second
	maxJitter = time.Second
)

// HTTPError 带状态码的 HTTP 错误；客户端在非 2xx 响应时返回此类型，供重试分类使用
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error 实现 error
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// Retryable 判断错误是否可重试。
// 可重试：无 HTTP 状态的网络层错误、连接重置/超时/解析失败、5xx、429；
// 不可重试：429 以外的 4xx，以及 context 取消/超时（由调用方的 deadline 决定放弃）。
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// 与原行为一致：没有 HTTP 状态的错误按网络层故障处理
	return true
}

// Backoff 返回第 attempt 次（从 1 起）失败后的等待时间：min(1s*2^attempt + jitter, 10s)
func Backoff(attempt int) time.Duration {
	d := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
	d += time.Duration(rand.Int63n(int64(maxJitter)))
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// sleep 可在测试中替换以跳过真实等待
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do 执行 op，失败且可重试时退避后再试，最多 maxRetries 次尝试（含首次）。
// 不可重试错误在首次失败后立即返回；重试耗尽后返回最后一次错误。
func Do[T any](ctx context.Context, maxRetries int, description string, op func(context.Context) (T, error)) (T, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err) {
			return zero, fmt.Errorf("%s: %w", description, err)
		}
		if attempt == maxRetries {
			break
		}

		metrics.RetryTotal.WithLabelValues(description).Inc()
		if err := sleep(ctx, Backoff(attempt)); err != nil {
			return zero, fmt.Errorf("%s: %w", description, err)
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", description, maxRetries, lastErr)
}
