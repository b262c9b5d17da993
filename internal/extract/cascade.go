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

// Package extract 实现文本提取级联：快速解析 → 布局重建 → OCR。
// 按成本从低到高依次尝试，产出足够文本即短路返回；
// 可恢复失败一律降级，不向上抛出。
package extract

import (
	"context"
	"strings"

	"pdf-ingest/internal/pdf"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/errors"
	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/metrics"
)

// OCREngine 光学识别引擎；settings 提供本次提取的自适应参数
type OCREngine interface {
	Recognize(ctx context.Context, doc pdf.Document, settings Settings) (string, error)
}

// Extractor 文本提取级联
type Extractor struct {
	cfg     config.ExtractConfig
	ocrCfg  config.OCRConfig
	ocr     OCREngine
	logger  *log.Logger
	openDoc func(data []byte) (pdf.Document, error)
}

// New 创建提取级联；ocr 可为 nil，此时跳过 OCR 策略
func New(cfg config.ExtractConfig, ocrCfg config.OCRConfig, ocr OCREngine, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Extractor{
		cfg:     cfg,
		ocrCfg:  ocrCfg,
		ocr:     ocr,
		logger:  logger,
		openDoc: pdf.Open,
	}
}

// ExtractText 对 PDF 字节执行提取级联，返回当前能得到的最优文本。
// 仅在 PDF 本身无法打开时返回错误；各策略的失败内部降级。
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	doc, err := e.openDoc(data)
	if err != nil {
		return "", errors.Wrap(err, "打开 PDF 文档failed")
	}

	// 策略一：快速全文解析，常见且最廉价的路径
	fast, err := doc.Text()
	if err != nil {
		e.logger.Warn("快速解析failed，进入布局重建", "error", err)
		fast = ""
	}
	fast = strings.TrimSpace(fast)
	if len(fast) > e.cfg.SufficientTextLength {
		metrics.ExtractStageTotal.WithLabelValues("fast").Inc()
		e.logger.Info("快速解析产出足够文本", "chars", len(fast))
		return fast, nil
	}

	// 策略二：布局重建
	settings := e.OptimalSettings(doc)
	layout := e.extractWithLayout(ctx, doc, settings)
	if len(layout) > e.cfg.SufficientTextLength {
		metrics.ExtractStageTotal.WithLabelValues("layout").Inc()
		e.logger.Info("布局重建产出足够文本", "chars", len(layout))
		return layout, nil
	}

	prior := fast
	if len(layout) > len(prior) {
		prior = layout
	}

	// 策略三：OCR，仅对扫描件且先前文本不足时启用
	if e.ocr != nil && len(prior) <= e.cfg.MinTextLength && e.IsScanned(doc) {
		e.logger.Info("判定为扫描件，启动 OCR",
			"pages", doc.NumPages(), "scale", settings.OCRScale, "max_pages", settings.MaxPages)
		ocrText, err := e.ocr.Recognize(ctx, doc, settings)
		if err != nil {
			e.logger.Warn("OCR failed，回退既有文本", "error", err)
		} else if len(strings.TrimSpace(ocrText)) > e.cfg.MinTextLength {
			metrics.ExtractStageTotal.WithLabelValues("ocr").Inc()
			return strings.TrimSpace(ocrText), nil
		}
	}

	// 兜底：返回既有策略中最长者
	if prior == "" {
		metrics.ExtractStageTotal.WithLabelValues("empty").Inc()
		e.logger.Warn("所有提取策略均无产出")
		return "", nil
	}
	metrics.ExtractStageTotal.WithLabelValues("fallback").Inc()
	return prior, nil
}
