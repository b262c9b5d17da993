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
	"strings"
	"testing"

	"pdf-ingest/internal/pdf"
	"pdf-ingest/pkg/log"
)

func TestDetectColumnsTwoClusters(t *testing.T) {
	// 两组 x 坐标，组内聚集、组间远离（> 3 倍桶宽），各占 50%
	var items []pdf.Item
	for i := 0; i < 25; i++ {
		items = append(items, pdf.Item{X: 50 + float64(i%3), Y: float64(700 - i*10)})
		items = append(items, pdf.Item{X: 350 + float64(i%3), Y: float64(700 - i*10)})
	}
	cols := DetectColumns(items, 612)
	if len(cols) != 2 {
		t.Fatalf("应检测出恰好 2 列，得到 %v", cols)
	}
	if cols[0] >= cols[1] {
		t.Fatalf("列位置应升序: %v", cols)
	}
}

func TestDetectColumnsFiltersNearbyClusters(t *testing.T) {
	// 相邻聚类间距不足 3 倍桶宽时只保留首个
	var items []pdf.Item
	for i := 0; i < 50; i++ {
		items = append(items, pdf.Item{X: 50, Y: float64(i)})
		items = append(items, pdf.Item{X: 58, Y: float64(i)}) // 桶宽约 6，相距 1 桶
	}
	cols := DetectColumns(items, 612)
	if len(cols) != 1 {
		t.Fatalf("间距不足应合并为 1 列，得到 %v", cols)
	}
}

func TestDetectColumnsEmpty(t *testing.T) {
	if cols := DetectColumns(nil, 612); cols != nil {
		t.Fatalf("空输入应返回 nil: %v", cols)
	}
}

func TestLayoutPageBreaks(t *testing.T) {
	cfg, ocrCfg := testConfig()
	e := New(cfg, ocrCfg, nil, log.NewNop())

	doc := &fakeDoc{pages: [][]pdf.Item{{
		{Text: "first", X: 10, Y: 700, FontSize: 10},
		{Text: "line", X: 50, Y: 700, FontSize: 10},
		{Text: "second", X: 10, Y: 692, FontSize: 10},  // 垂直间距 8：换行
		{Text: "paragraph", X: 10, Y: 660, FontSize: 10}, // 垂直间距 32：换段
	}}}

	text, err := e.layoutPage(doc, 1, Settings{EnableLayout: true})
	if err != nil {
		t.Fatalf("layoutPage: %v", err)
	}
	want := "first line\nsecond\n\nparagraph"
	if text != want {
		t.Fatalf("布局输出不符:\n得到 %q\n期望 %q", text, want)
	}
}

func TestLayoutPageColumnWrap(t *testing.T) {
	cfg, ocrCfg := testConfig()
	e := New(cfg, ocrCfg, nil, log.NewNop())

	doc := &fakeDoc{pages: [][]pdf.Item{{
		{Text: "right", X: 400, Y: 700, FontSize: 10},
		{Text: "left", X: 30, Y: 700, FontSize: 10}, // 同高度大幅回跳
	}}}

	text, err := e.layoutPage(doc, 1, Settings{EnableLayout: true})
	if err != nil {
		t.Fatalf("layoutPage: %v", err)
	}
	if text != "right\nleft" {
		t.Fatalf("换列应产生换行: %q", text)
	}
}

func TestLayoutPageTruncatesOversized(t *testing.T) {
	cfg, ocrCfg := testConfig()
	cfg.MaxItemsPerPage = 10
	e := New(cfg, ocrCfg, nil, log.NewNop())

	items := make([]pdf.Item, 20)
	for i := range items {
		items[i] = pdf.Item{Text: "w", X: float64(i), Y: 700}
	}
	doc := &fakeDoc{pages: [][]pdf.Item{items}}

	text, err := e.layoutPage(doc, 1, Settings{EnableLayout: true})
	if err != nil {
		t.Fatalf("layoutPage: %v", err)
	}
	if got := len(strings.Fields(text)); got != 10 {
		t.Fatalf("超限页面应截断到 10 项，得到 %d", got)
	}
}

func TestSimplifiedLines(t *testing.T) {
	items := []pdf.Item{
		{Text: "a", Y: 700},
		{Text: "b", Y: 700},
		{Text: "c", Y: 680},
	}
	got := simplifiedLines(items)
	if got != "a b\nc" {
		t.Fatalf("简化模式输出不符: %q", got)
	}
}

func TestSimplifiedLinesSortsBeforeGathering(t *testing.T) {
	// 乱序输入：粗排后仍应得到上到下、左到右的行序
	items := []pdf.Item{
		{Text: "c", X: 10, Y: 680},
		{Text: "b", X: 40, Y: 700},
		{Text: "a", X: 10, Y: 703}, // 与 b 垂直差 3，同行，按 X 排序
	}
	got := simplifiedLines(items)
	if got != "a b\nc" {
		t.Fatalf("简化模式应先粗排再聚合: %q", got)
	}
}

func TestLayoutPageHeadingBreakExclusive(t *testing.T) {
	cfg, ocrCfg := testConfig()
	e := New(cfg, ocrCfg, nil, log.NewNop())

	// 超过 200 项以启用标题启发；末项同时满足换行间距与字号跳变，
	// 断行规则互斥，只应产生一个换行
	items := make([]pdf.Item, 0, 211)
	for i := 0; i < 210; i++ {
		items = append(items, pdf.Item{Text: "w", X: float64(i) * 3, Y: 700, FontSize: 10})
	}
	items = append(items, pdf.Item{Text: "标题", X: 10, Y: 692, FontSize: 20}) // 垂直间距 8：换行 + 字号 2 倍

	doc := &fakeDoc{pages: [][]pdf.Item{items}}
	text, err := e.layoutPage(doc, 1, Settings{EnableLayout: true})
	if err != nil {
		t.Fatalf("layoutPage: %v", err)
	}
	if strings.Contains(text, "\n\n") {
		t.Fatalf("换行与标题规则不应叠加出空行: %q", text)
	}
	if strings.Count(text, "\n") != 1 {
		t.Fatalf("应只产生一个换行: %q", text)
	}
}

// cancellingDoc 在读取指定页后取消 context，模拟处理中途被叫停
type cancellingDoc struct {
	*fakeDoc
	cancel    context.CancelFunc
	afterPage int
}

func (d *cancellingDoc) PageItems(n int) ([]pdf.Item, error) {
	items, err := d.fakeDoc.PageItems(n)
	if n == d.afterPage {
		d.cancel()
	}
	return items, err
}

func TestExtractWithLayoutCancelledReturnsPartial(t *testing.T) {
	cfg, ocrCfg := testConfig()
	e := New(cfg, ocrCfg, nil, log.NewNop())

	page := func(text string) []pdf.Item {
		return []pdf.Item{{Text: text, X: 10, Y: 700, FontSize: 10}}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc := &cancellingDoc{
		fakeDoc:   &fakeDoc{pages: [][]pdf.Item{page("one"), page("two"), page("three")}},
		cancel:    cancel,
		afterPage: 1,
	}

	got := e.extractWithLayout(ctx, doc, Settings{EnableLayout: true})
	if got != "one" {
		t.Fatalf("取消后应返回已累计的部分文本: %q", got)
	}
	if doc.pageItemsCalls != 1 {
		t.Fatalf("取消后不应再读取后续页面，实际读取 %d 页", doc.pageItemsCalls)
	}
}
