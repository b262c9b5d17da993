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

package extract

import (
	"math"

	"pdf-ingest/internal/pdf"
)

// Settings 单文档自适应参数：根据页数与抽样文本项密度推导，
// 每次提取重新计算，不持久化。
type Settings struct {
	OCRScale     float64
	MaxPages     int
	PageSegMode  int
	EnableLayout bool
}

// 抽样页数上限
const samplePages = 3

// sampleItemCounts 统计前 samplePages 页的文本项数量。
// 单页统计失败按 0 计，不中断。
func sampleItemCounts(doc pdf.Document) (counts []int, avg float64) {
	n := doc.NumPages()
	if n > samplePages {
		n = samplePages
	}
	if n == 0 {
		return nil, 0
	}
	total := 0
	for i := 1; i <= n; i++ {
		items, err := doc.PageItems(i)
		if err != nil {
			counts = append(counts, 0)
			continue
		}
		counts = append(counts, len(items))
		total += len(items)
	}
	return counts, float64(total) / float64(n)
}

// OptimalSettings 基于页数与抽样密度推导本次提取的自适应参数：
// 大文档压缩 OCR 页数与缩放；超高密度页关闭布局重建；
// 稀疏文档提高 OCR 缩放并改用快速分段模式。
func (e *Extractor) OptimalSettings(doc pdf.Document) Settings {
	s := Settings{
		OCRScale:     e.ocrCfg.Scale,
		MaxPages:     e.ocrCfg.MaxPages,
		PageSegMode:  e.ocrCfg.PageSegMode,
		EnableLayout: true,
	}

	pages := doc.NumPages()
	_, avg := sampleItemCounts(doc)

	switch {
	case pages > 50:
		s.MaxPages = 5
		s.OCRScale = 1.0
	case pages > 20:
		s.MaxPages = 8
		s.OCRScale = 1.1
	}

	if avg > 2000 {
		s.EnableLayout = false
		e.logger.Info("页面密度过高，切换简化模式", "avg_items", avg)
	}
	if avg < 100 {
		s.OCRScale = math.Min(1.5, s.OCRScale*1.25)
		s.PageSegMode = 3 // 全自动、无方向检测
	}
	return s
}

// IsScanned 判断文档是否为扫描件：抽样前 3 页，
// 任一页文本项超过 20 判为非扫描；平均低于 5 判为扫描。
// 抽样页无法分析时按扫描件处理，宁可多走一次 OCR。
func (e *Extractor) IsScanned(doc pdf.Document) bool {
	n := doc.NumPages()
	if n > samplePages {
		n = samplePages
	}
	if n == 0 {
		return false
	}
	total := 0
	for i := 1; i <= n; i++ {
		items, err := doc.PageItems(i)
		if err != nil {
			e.logger.Warn("扫描件判定时页面分析failed，按扫描件处理", "page", i, "error", err)
			return true
		}
		if len(items) > 20 {
			return false
		}
		total += len(items)
	}
	return float64(total)/float64(n) < 5
}
