package printview

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/hongguan-lab/macro_deck/pkg/model"
)

func TestDecodeSlidesParam(t *testing.T) {
	raw := `[{"title":"宏观概览","content":["要点"],"charts":[]}]`
	param := base64.StdEncoding.EncodeToString([]byte(raw))

	slides, err := DecodeSlidesParam(param)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(slides) != 1 || slides[0].Title != "宏观概览" {
		t.Errorf("slides = %+v", slides)
	}
}

func TestDecodeSlidesParamWithoutPadding(t *testing.T) {
	raw := `[{"content":[],"charts":[]}]`
	param := strings.TrimRight(base64.StdEncoding.EncodeToString([]byte(raw)), "=")

	if _, err := DecodeSlidesParam(param); err != nil {
		t.Errorf("decode without padding: %v", err)
	}
}

func TestDecodeSlidesParamInvalid(t *testing.T) {
	if _, err := DecodeSlidesParam("%%%"); err == nil {
		t.Error("expected error for invalid base64")
	}
	notArray := base64.StdEncoding.EncodeToString([]byte(`{"title":"x"}`))
	if _, err := DecodeSlidesParam(notArray); err == nil {
		t.Error("expected error for non-array payload")
	}
}

func TestRenderSlidePage(t *testing.T) {
	slides := model.Report{
		{
			Title:   "一季度宏观经济",
			Content: []string{"GDP同比增长5.2%"},
			Charts: []model.Chart{
				{Type: model.ChartTable, Table: &model.TableChartData{
					Title: "主要指标",
					Columns: model.TableData{
						"指标": {{Value: "GDP"}},
						"数值": {{Value: "5.2%", Style: map[string]string{"font-weight": "bold", "color": "#f00"}}},
					},
				}},
				{Type: model.ChartImage, Image: &model.ImageData{Src: "https://example.com/a.png"}},
				{Type: model.ChartECharts, ECharts: model.EChartsOption{"series": []any{map[string]any{"type": "line"}}}},
			},
		},
	}

	var buf bytes.Buffer
	if err := Render(&buf, slides, 3); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"一季度宏观经济",
		"GDP同比增长5.2%",
		"主要指标",
		`style="font-weight:bold;color:#f00"`,
		`src="https://example.com/a.png"`,
		`id="echarts-0-2"`,
		"echarts@5.5.1",
		"__PRINT_READY__",
		`<div class="page-number">4</div>`, // startIndex 3 -> 页码 4
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestRenderWithoutEChartsSkipsCDN(t *testing.T) {
	var buf bytes.Buffer
	slides := model.Report{{Content: []string{"纯文字页"}}}
	if err := Render(&buf, slides, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(buf.String(), "echarts@") {
		t.Error("echarts CDN script included for slide without echarts chart")
	}
}

func TestRenderRaggedTable(t *testing.T) {
	slides := model.Report{{
		Charts: []model.Chart{{Type: model.ChartTable, Table: &model.TableChartData{
			Columns: model.TableData{
				"长列": {{Value: "a"}, {Value: "b"}, {Value: "c"}},
				"短列": {{Value: "x"}},
			},
		}}},
	}}

	var buf bytes.Buffer
	if err := Render(&buf, slides, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	// 3 行 × 2 列 = 6 个单元格，缺失处为空
	if got := strings.Count(buf.String(), "<td"); got != 6 {
		t.Errorf("cell count = %d, want 6", got)
	}
}
