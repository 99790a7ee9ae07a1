package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestChartUnmarshalDispatch(t *testing.T) {
	raw := `[
		{"type":"table","data":{"指标":["GDP","CPI"],"数值":[5.2,0.3]}},
		{"type":"echarts","data":{"series":[{"type":"line"}]}},
		{"type":"image","data":{"src":"https://example.com/a.png"}}
	]`
	var charts []Chart
	if err := json.Unmarshal([]byte(raw), &charts); err != nil {
		t.Fatalf("unmarshal charts: %v", err)
	}
	if charts[0].Type != ChartTable || charts[0].Table == nil {
		t.Errorf("chart 0 = %+v, want table", charts[0])
	}
	if charts[1].Type != ChartECharts || charts[1].ECharts == nil {
		t.Errorf("chart 1 = %+v, want echarts", charts[1])
	}
	if charts[2].Type != ChartImage || charts[2].Image.Src != "https://example.com/a.png" {
		t.Errorf("chart 2 = %+v, want image", charts[2])
	}
}

func TestChartUnmarshalUnknownType(t *testing.T) {
	var c Chart
	if err := json.Unmarshal([]byte(`{"type":"gauge","data":{}}`), &c); err == nil {
		t.Error("unmarshal unknown chart type: expected error")
	}
}

func TestReportRoundTrip(t *testing.T) {
	raw := `[{"title":"宏观经济概览","content":["一季度GDP同比增长5.2%","CPI温和回升"],"charts":[` +
		`{"type":"table","data":{"指标":["GDP","CPI"],"同比":[{"value":5.2,"font-weight":"bold","color":"#f00"},0.3]}},` +
		`{"type":"echarts","data":{"title":{"text":"GDP走势"},"series":[{"type":"line","data":[1,2,3]}]}},` +
		`{"type":"image","data":{"src":"https://example.com/a.png"}}]},` +
		`{"content":[],"charts":[]}]`

	report, err := DecodeReport([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := DecodeReport(encoded)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if !reflect.DeepEqual(report, again) {
		t.Errorf("round trip mismatch:\n first = %+v\nsecond = %+v", report, again)
	}
}

func TestDecodeReportRejectsNonArray(t *testing.T) {
	for _, raw := range []string{`{"title":"x"}`, `null`, ` null `, `"text"`, `5`, ``} {
		if _, err := DecodeReport([]byte(raw)); err == nil {
			t.Errorf("DecodeReport(%q) accepted non-array payload", raw)
		}
	}
}

func TestDecodeReportLeadingWhitespace(t *testing.T) {
	report, err := DecodeReport([]byte(" \n\t[]"))
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("len = %d, want 0", len(report))
	}
}

func TestCellValueBare(t *testing.T) {
	var cell CellValue
	if err := json.Unmarshal([]byte(`5`), &cell); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := cell.Display(); got != "5" {
		t.Errorf("Display() = %q, want %q", got, "5")
	}
	if cell.InlineStyle() != "" {
		t.Errorf("InlineStyle() = %q, want empty", cell.InlineStyle())
	}
}

func TestCellValueStyled(t *testing.T) {
	var cell CellValue
	raw := `{"value":5,"font-weight":"bold","color":"#f00","text-decoration":"underline"}`
	if err := json.Unmarshal([]byte(raw), &cell); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := cell.Display(); got != "5" {
		t.Errorf("Display() = %q, want %q", got, "5")
	}
	want := "font-weight:bold;color:#f00;text-decoration:underline"
	if got := cell.InlineStyle(); got != want {
		t.Errorf("InlineStyle() = %q, want %q", got, want)
	}
}

func TestCellValueStyledMissingValue(t *testing.T) {
	var cell CellValue
	if err := json.Unmarshal([]byte(`{"color":"#f00"}`), &cell); err == nil {
		t.Error("expected error for styled cell without value")
	}
}

func TestTableRaggedColumns(t *testing.T) {
	var table TableChartData
	raw := `{"长列":["a","b","c"],"短列":["x"]}`
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := table.RowCount(); got != 3 {
		t.Errorf("RowCount() = %d, want 3", got)
	}
	if _, ok := table.Cell("短列", 2); ok {
		t.Error("Cell beyond column length should report missing")
	}
	if cell, ok := table.Cell("长列", 2); !ok || cell.Display() != "c" {
		t.Errorf("Cell(长列, 2) = %v, %v", cell, ok)
	}
}

func TestTableWithTitleWrapper(t *testing.T) {
	var table TableChartData
	raw := `{"title":"主要指标","data":{"指标":["GDP"]}}`
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if table.Title != "主要指标" {
		t.Errorf("Title = %q", table.Title)
	}
	if table.RowCount() != 1 {
		t.Errorf("RowCount() = %d, want 1", table.RowCount())
	}

	encoded, err := json.Marshal(table)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(encoded), `"title":"主要指标"`) {
		t.Errorf("encoded = %s, want title wrapper preserved", encoded)
	}
}

func TestTableBareColumnNamedTitle(t *testing.T) {
	var table TableChartData
	raw := `{"title":["2023","2024"],"增速":["5.2%","4.8%"]}`
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if table.Title != "" {
		t.Errorf("Title = %q, want empty for bare columns", table.Title)
	}
	if got := table.ColumnNames(); len(got) != 2 {
		t.Fatalf("ColumnNames() = %v, want 2 columns", got)
	}
	if cell, ok := table.Cell("title", 1); !ok || cell.Display() != "2024" {
		t.Errorf("Cell(title, 1) = %v, %v", cell, ok)
	}
}

func TestEChartsLayoutDefaults(t *testing.T) {
	opt := EChartsOption{
		"title": map[string]any{"text": "GDP走势"},
		"grid":  map[string]any{"left": 20},
		"xAxis": map[string]any{"type": "category"},
	}
	merged := opt.WithLayoutDefaults()

	grid := merged["grid"].(map[string]any)
	if grid["left"] != 20 {
		t.Errorf("caller grid.left overridden: %v", grid["left"])
	}
	if grid["bottom"] != 42 || grid["containLabel"] != true {
		t.Errorf("grid defaults missing: %v", grid)
	}

	title := merged["title"].(map[string]any)
	if title["text"] != "GDP走势" {
		t.Errorf("title.text lost: %v", title)
	}
	if ts := title["textStyle"].(map[string]any); ts["fontSize"] != printTitleFontSize {
		t.Errorf("title font size = %v", ts["fontSize"])
	}

	xAxis := merged["xAxis"].(map[string]any)
	if al := xAxis["axisLabel"].(map[string]any); al["fontSize"] != printFontSize {
		t.Errorf("xAxis label font size = %v", al["fontSize"])
	}

	// 无 legend 时不应凭空生成
	if _, ok := merged["legend"]; ok {
		t.Error("legend injected without caller value")
	}
}

func TestEChartsLayoutDefaultsKeepCallerFontSize(t *testing.T) {
	opt := EChartsOption{"textStyle": map[string]any{"fontSize": 30}}
	merged := opt.WithLayoutDefaults()
	if ts := merged["textStyle"].(map[string]any); ts["fontSize"] != 30 {
		t.Errorf("caller textStyle.fontSize overridden: %v", ts["fontSize"])
	}
}

func TestSlideContext(t *testing.T) {
	slides := []Slide{
		{Title: "概览", Content: []string{"要点一"}},
		{Content: []string{}, Charts: []Chart{
			{Type: ChartTable, Table: &TableChartData{Columns: TableData{
				"指标": {{Value: "GDP"}, {Value: "CPI"}},
				"数值": {{Value: json.Number("5.2")}},
			}}},
			{Type: ChartImage, Image: &ImageData{Src: "https://example.com/a.png"}},
		}},
	}

	ctx := SlideContext(slides, 1)
	for _, want := range []string{
		"总共 2 张幻灯片，当前查看第 2 张。",
		"## 幻灯片 1: 概览",
		"【当前幻灯片】",
		"列: 数值, 指标",
		"行数: 2",
		"#### 图片 2",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestSlideContextEmpty(t *testing.T) {
	if got := SlideContext(nil, 0); got != "当前没有幻灯片内容。" {
		t.Errorf("SlideContext(nil) = %q", got)
	}
}
