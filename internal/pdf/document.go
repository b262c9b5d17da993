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

// Package pdf 封装 PDF 文档访问：全文提取、词级文本项、页面栅格化。
// 提取级联与 OCR 只依赖 Document 接口，便于测试注入。
package pdf

// Item 页面上的一个词级文本项；坐标原点在页面左下角，Y 向上递增
type Item struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
}

// Document PDF 文档访问接口
type Document interface {
	// NumPages 返回页数
	NumPages() int
	// Text 整文档快速文本提取（无布局感知）
	Text() (string, error)
	// PageItems 返回第 pageNum 页（从 1 起）的词级文本项
	PageItems(pageNum int) ([]Item, error)
	// PageSize 返回第 pageNum 页 MediaBox 的宽高（PDF 点）
	PageSize(pageNum int) (width, height float64, err error)
	// RenderPage 将第 pageNum 页按 scale 栅格化为 PNG 字节
	RenderPage(pageNum int, scale float64) ([]byte, error)
}
