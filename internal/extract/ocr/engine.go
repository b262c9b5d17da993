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

// Package ocr 实现扫描件的光学识别：逐页栅格化后送识别器，
// 受总时长与单页时长双重约束，局部失败降级为空贡献。
package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pdf-ingest/internal/extract"
	"pdf-ingest/internal/pdf"
	"pdf-ingest/pkg/config"
	"pdf-ingest/pkg/errors"
	"pdf-ingest/pkg/log"
	"pdf-ingest/pkg/metrics"
)

// 每批并发识别的页数，约束内存与 CPU 峰值
const batchSize = 2

// Recognizer 一次 OCR 会话；非并发安全，调用方负责串行化与 Close
type Recognizer interface {
	Recognize(png []byte) (string, error)
	Close() error
}

// Engine OCR 引擎，实现 extract.OCREngine
type Engine struct {
	cfg    config.OCRConfig
	logger *log.Logger

	// 测试可替换的识别器工厂
	newRecognizer func(language string, pageSegMode int) (Recognizer, error)
}

// NewEngine 创建基于 Tesseract 的 OCR 引擎
func NewEngine(cfg config.OCRConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger, newRecognizer: newGosseractRecognizer}
}

// Recognize 对文档执行 OCR。最多处理 settings.MaxPages 页，每批 2 页并发；
// 超过三分之一页面失败或总超时触发时提前中止，返回已累计文本。
// 识别器无论结果如何都会被关闭。
func (e *Engine) Recognize(ctx context.Context, doc pdf.Document, settings extract.Settings) (string, error) {
	rec, err := e.newRecognizer(e.cfg.Language, settings.PageSegMode)
	if err != nil {
		return "", errors.Wrap(err, "初始化 OCR 识别器failed")
	}
	defer func() {
		if cerr := rec.Close(); cerr != nil {
			e.logger.Warn("关闭 OCR 识别器failed", "error", cerr)
		}
	}()

	total := doc.NumPages()
	if settings.MaxPages > 0 && total > settings.MaxPages {
		total = settings.MaxPages
	}
	if total == 0 {
		return "", nil
	}

	overall, cancel := context.WithTimeout(ctx, e.cfg.MaxTime())
	defer cancel()
	perPage := e.cfg.MaxTime() / 3

	results := make([]string, total)
	var failed atomic.Int32
	var recMu sync.Mutex // 识别器非并发安全，批内串行识别、并行渲染

	for start := 0; start < total; start += batchSize {
		if overall.Err() != nil {
			e.logger.Warn("OCR 总超时，返回部分文本", "pages_done", start, "total", total)
			break
		}
		if int(failed.Load()) > total/3 {
			e.logger.Warn("OCR 失败页过多，提前中止",
				"failed", failed.Load(), "total", total)
			break
		}

		end := start + batchSize
		if end > total {
			end = total
		}
		g := new(errgroup.Group)
		for p := start; p < end; p++ {
			p := p
			g.Go(func() error {
				text, err := e.recognizePage(overall, doc, rec, &recMu, p+1, settings.OCRScale, perPage)
				if err != nil {
					// 单页失败按空贡献处理，不中断整体
					e.logger.Warn("OCR 单页failed", "page", p+1, "error", err)
					metrics.OCRPagesTotal.WithLabelValues("failed").Inc()
					failed.Add(1)
					return nil
				}
				results[p] = strings.TrimSpace(text)
				metrics.OCRPagesTotal.WithLabelValues("ok").Inc()
				return nil
			})
		}
		_ = g.Wait()
		e.logger.Debug("OCR 批次完成", "pages_done", end, "total", total)
	}

	var pages []string
	for _, r := range results {
		if r != "" {
			pages = append(pages, r)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// recognizePage 渲染并识别单页，受 timeout 约束。
// 识别调用无法中途取消，超时后不再等待其结果。
func (e *Engine) recognizePage(ctx context.Context, doc pdf.Document, rec Recognizer,
	recMu *sync.Mutex, pageNum int, scale float64, timeout time.Duration) (string, error) {

	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type pageResult struct {
		text string
		err  error
	}
	done := make(chan pageResult, 1)
	go func() {
		img, err := doc.RenderPage(pageNum, scale)
		if err != nil {
			done <- pageResult{err: fmt.Errorf("渲染第 %d 页failed: %w", pageNum, err)}
			return
		}
		recMu.Lock()
		text, err := rec.Recognize(img)
		recMu.Unlock()
		if err != nil {
			done <- pageResult{err: fmt.Errorf("识别第 %d 页failed: %w", pageNum, err)}
			return
		}
		done <- pageResult{text: text}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-pageCtx.Done():
		return "", errors.Wrapf(errors.ErrTimeout, "第 %d 页 OCR 超时", pageNum)
	}
}
