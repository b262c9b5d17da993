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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API/Worker 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		JobDuration, JobTotal, JobFailTotal,
		ExtractStageTotal, OCRPagesTotal, RetryTotal,
		WorkerBusy, JobsCleanedTotal,
	)
}

// JobDuration Job 执行耗时（秒）
var JobDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pdfingest_job_duration_seconds",
		Help:    "Job 执行耗时（秒）",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
	[]string{"collection"},
)

// JobTotal Job 总数（按终态）
var JobTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pdfingest_job_total",
		Help: "Job 总数（按终态）",
	},
	[]string{"status"}, // completed | failed
)

// JobFailTotal Job 失败总数（按失败阶段）
var JobFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pdfingest_job_fail_total",
		Help: "Job 失败总数（按失败阶段）",
	},
	[]string{"stage"}, // extract | embed | store | timeout | io
)

// ExtractStageTotal 提取级联各策略命中次数
var ExtractStageTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pdfingest_extract_stage_total",
		Help: "提取级联各策略产出最终文本的次数",
	},
	[]string{"stage"}, // fast | layout | ocr | fallback | empty
)

// OCRPagesTotal OCR 页处理计数
var OCRPagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pdfingest_ocr_pages_total",
		Help: "OCR 页处理计数",
	},
	[]string{"result"}, // ok | failed
)

// RetryTotal 重试次数（按操作描述）
var RetryTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pdfingest_retry_total",
		Help: "重试次数（按操作描述）",
	},
	[]string{"operation"},
)

// WorkerBusy 当前正在执行的 Job 数（每 Worker）
var WorkerBusy = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "pdfingest_worker_busy",
		Help: "当前正在执行的 Job 数",
	},
	[]string{"worker_id"},
)

// JobsCleanedTotal 清理的终态 Job 总数
var JobsCleanedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pdfingest_jobs_cleaned_total",
		Help: "清理的终态 Job 总数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
