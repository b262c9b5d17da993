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

package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"unicode"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"
)

// unipdfDocument 基于 unipdf 的 Document 实现
type unipdfDocument struct {
	reader   *model.PdfReader
	numPages int
}

// Open 从 PDF 二进制数据打开文档
func Open(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("PDF 数据为空")
	}
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("打开 PDF failed: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("获取页数failed: %w", err)
	}
	return &unipdfDocument{reader: reader, numPages: numPages}, nil
}

func (d *unipdfDocument) NumPages() int {
	return d.numPages
}

// Text 按页拼接整文档文本，页间空行分隔
func (d *unipdfDocument) Text() (string, error) {
	var buf strings.Builder
	for i := 1; i <= d.numPages; i++ {
		page, err := d.reader.GetPage(i)
		if err != nil {
			return buf.String(), fmt.Errorf("获取第 %d 页failed: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return buf.String(), fmt.Errorf("创建第 %d 页提取器failed: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return buf.String(), fmt.Errorf("提取第 %d 页文本failed: %w", i, err)
		}
		if text != "" {
			buf.WriteString(text)
			if i < d.numPages {
				buf.WriteString("\n\n")
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

// PageItems 提取页面文本标记并合并为词级 Item
func (d *unipdfDocument) PageItems(pageNum int) ([]Item, error) {
	page, err := d.reader.GetPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("获取第 %d 页failed: %w", pageNum, err)
	}
	ex, err := extractor.New(page)
	if err != nil {
		return nil, fmt.Errorf("创建第 %d 页提取器failed: %w", pageNum, err)
	}
	pageText, _, _, err := ex.ExtractPageText()
	if err != nil {
		return nil, fmt.Errorf("提取第 %d 页文本项failed: %w", pageNum, err)
	}
	return groupMarks(pageText.Marks().Elements()), nil
}

func (d *unipdfDocument) PageSize(pageNum int) (float64, float64, error) {
	page, err := d.reader.GetPage(pageNum)
	if err != nil {
		return 0, 0, fmt.Errorf("获取第 %d 页failed: %w", pageNum, err)
	}
	mbox, err := page.GetMediaBox()
	if err != nil {
		return 0, 0, fmt.Errorf("获取第 %d 页 MediaBox failed: %w", pageNum, err)
	}
	return mbox.Width(), mbox.Height(), nil
}

// RenderPage 渲染页面为 PNG；scale 以页面 MediaBox 宽度为基准
func (d *unipdfDocument) RenderPage(pageNum int, scale float64) ([]byte, error) {
	page, err := d.reader.GetPage(pageNum)
	if err != nil {
		return nil, fmt.Errorf("获取第 %d 页failed: %w", pageNum, err)
	}
	mbox, err := page.GetMediaBox()
	if err != nil {
		return nil, fmt.Errorf("获取第 %d 页 MediaBox failed: %w", pageNum, err)
	}
	if scale <= 0 {
		scale = 1.0
	}

	device := render.NewImageDevice()
	device.OutputWidth = int(mbox.Width() * scale)
	img, err := device.Render(page)
	if err != nil {
		return nil, fmt.Errorf("渲染第 %d 页failed: %w", pageNum, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码第 %d 页 PNG failed: %w", pageNum, err)
	}
	return buf.Bytes(), nil
}

// groupMarks 将字符级 TextMark 合并为词级 Item：空白标记或行位置跳变处断词。
// Item 坐标取词首字符的左下角。
const wordYTolerance = 0.5

func groupMarks(marks []extractor.TextMark) []Item {
	var items []Item
	var word strings.Builder
	var startX, startY, fontSize float64

	flush := func() {
		if word.Len() == 0 {
			return
		}
		items = append(items, Item{Text: word.String(), X: startX, Y: startY, FontSize: fontSize})
		word.Reset()
	}

	for _, mark := range marks {
		if mark.Meta {
			continue
		}
		text := mark.Text
		if text == "" || isWhitespace(text) {
			flush()
			continue
		}
		if word.Len() > 0 && absFloat(mark.BBox.Lly-startY) > wordYTolerance {
			// 行位置变化，当前词结束
			flush()
		}
		if word.Len() == 0 {
			startX = mark.BBox.Llx
			startY = mark.BBox.Lly
			fontSize = mark.FontSize
		}
		word.WriteString(text)
	}
	flush()
	return items
}

func isWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
