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
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"pdf-ingest/internal/pdf"
)

// 触发排序/列检测/标题识别的页面文本项规模门限
const (
	sortMinItems    = 100
	columnMinItems  = 50
	headingMinItems = 200
)

// extractWithLayout 逐页重建布局文本，受 ProcessingTimeout 墙钟约束；
// 超时返回已累计的部分文本而非报错。单页失败按空贡献处理。
func (e *Extractor) extractWithLayout(ctx context.Context, doc pdf.Document, settings Settings) string {
	deadline := time.Now().Add(e.cfg.ProcessingTimeoutDuration())

	var pages []string
	for p := 1; p <= doc.NumPages(); p++ {
		select {
		case <-ctx.Done():
			e.logger.Warn("布局提取被取消，返回部分文本", "page", p)
			return strings.TrimSpace(strings.Join(pages, "\n\n"))
		default:
		}
		if time.Now().After(deadline) {
			e.logger.Warn("布局提取超时，返回部分文本", "pages_done", p-1, "total", doc.NumPages())
			break
		}

		text, err := e.layoutPage(doc, p, settings)
		if err != nil {
			e.logger.Warn("页面布局提取failed，跳过", "page", p, "error", err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.TrimSpace(strings.Join(pages, "\n\n"))
}

// layoutPage 重建单页文本；EnableLayout=false 时走简化单遍模式
func (e *Extractor) layoutPage(doc pdf.Document, pageNum int, settings Settings) (string, error) {
	items, err := doc.PageItems(pageNum)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}

	if len(items) > e.cfg.MaxItemsPerPage && e.cfg.EnableDynamicScaling {
		e.logger.Warn("页面文本项超限，截断处理",
			"page", pageNum, "items", len(items), "limit", e.cfg.MaxItemsPerPage)
		items = items[:e.cfg.MaxItemsPerPage]
	}

	if !settings.EnableLayout {
		return simplifiedLines(items), nil
	}

	// 琐碎页面跳过排序
	if len(items) > sortMinItems {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Y != items[j].Y {
				return items[i].Y > items[j].Y
			}
			return items[i].X < items[j].X
		})
	}

	if len(items) > columnMinItems {
		width, _, err := doc.PageSize(pageNum)
		if err != nil {
			width = 612 // US Letter 兜底
		}
		if cols := DetectColumns(items, width); len(cols) > 1 {
			e.logger.Debug("检测到多列布局", "page", pageNum, "columns", len(cols))
		}
	}

	var sb strings.Builder
	var lastY, lastX, lastFont float64
	for i, it := range items {
		if i > 0 {
			// 四条断行规则互斥，按优先级取首个命中者
			gap := math.Abs(lastY - it.Y)
			switch {
			case gap > e.cfg.ParaThreshold:
				sb.WriteString("\n\n")
			case gap > e.cfg.LineThreshold:
				sb.WriteString("\n")
			case it.X < lastX-e.cfg.ColumnThreshold:
				// 同一高度上横向大幅回跳，视为换列
				sb.WriteString("\n")
			case len(items) > headingMinItems && lastFont > 0 && it.FontSize > lastFont*1.5:
				// 标题启发：仅在复杂页面启用，避免简单页误判
				sb.WriteString("\n\n")
			}
		}
		if sb.Len() > 0 && !endsWithSpace(&sb) {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.Text)
		lastY, lastX, lastFont = it.Y, it.X, it.FontSize
	}
	return strings.TrimSpace(sb.String()), nil
}

// 简化模式的行容差，与精细模式的阈值配置无关
const simplifiedLineTolerance = 10

// simplifiedLines 粗排（上到下、左到右，行容差 10）后单遍按行聚合，
// 不检测列，供超高密度页面使用
func simplifiedLines(items []pdf.Item) string {
	sorted := make([]pdf.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > simplifiedLineTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var sb strings.Builder
	var lastY float64
	for i, it := range sorted {
		if i > 0 {
			if math.Abs(it.Y-lastY) > simplifiedLineTolerance {
				sb.WriteString("\n")
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(it.Text)
		lastY = it.Y
	}
	return strings.TrimSpace(sb.String())
}

// DetectColumns 将 x 坐标以页宽相关的桶宽聚类，保留频次超过 8% 的桶，
// 过滤间距不足 3 倍桶宽的相邻聚类，按 x 升序返回列起始位置。
func DetectColumns(items []pdf.Item, pageWidth float64) []float64 {
	if len(items) == 0 {
		return nil
	}
	cluster := math.Max(5, pageWidth/100)

	buckets := make(map[int]int)
	for _, it := range items {
		buckets[int(it.X/cluster)]++
	}

	threshold := float64(len(items)) * 0.08
	var candidates []float64
	for b, n := range buckets {
		if float64(n) > threshold {
			candidates = append(candidates, float64(b)*cluster)
		}
	}
	sort.Float64s(candidates)

	var cols []float64
	for _, c := range candidates {
		if len(cols) == 0 || c-cols[len(cols)-1] >= cluster*3 {
			cols = append(cols, c)
		}
	}
	return cols
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	if s == "" {
		return true
	}
	last := s[len(s)-1]
	return last == ' ' || last == '\n' || last == '\t'
}
