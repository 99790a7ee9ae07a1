// Package model 定义幻灯片报告的数据模型：
// 一份报告是一组有序幻灯片，每张幻灯片最多携带四条要点和四个图表。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Slide 单张幻灯片
type Slide struct {
	Title   string   `json:"title,omitempty"`
	Content []string `json:"content"`
	Charts  []Chart  `json:"charts"`
}

// Report 完整报告（幻灯片有序列表）
type Report = []Slide

// ChartType 图表类型标签
type ChartType string

const (
	ChartTable   ChartType = "table"
	ChartECharts ChartType = "echarts"
	ChartImage   ChartType = "image"
)

// Chart 是 table / echarts / image 三种图表之上的封闭和类型。
// 线上格式为 {"type": "...", "data": ...}，data 的形状由 type 决定，
// 反序列化时按标签分派，渲染处按类型穷举。
type Chart struct {
	Type    ChartType
	Table   *TableChartData
	ECharts EChartsOption
	Image   *ImageData
}

// ImageData 图片图表载荷
type ImageData struct {
	Src string `json:"src"`
}

type chartEnvelope struct {
	Type ChartType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UnmarshalJSON 按 type 标签解码 data 载荷。
func (c *Chart) UnmarshalJSON(b []byte) error {
	var env chartEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	switch env.Type {
	case ChartTable:
		var t TableChartData
		if err := t.unmarshal(env.Data); err != nil {
			return fmt.Errorf("table chart data: %w", err)
		}
		*c = Chart{Type: ChartTable, Table: &t}
	case ChartECharts:
		var opt EChartsOption
		if err := decodeUseNumber(env.Data, &opt); err != nil {
			return fmt.Errorf("echarts chart data: %w", err)
		}
		*c = Chart{Type: ChartECharts, ECharts: opt}
	case ChartImage:
		var img ImageData
		if err := json.Unmarshal(env.Data, &img); err != nil {
			return fmt.Errorf("image chart data: %w", err)
		}
		*c = Chart{Type: ChartImage, Image: &img}
	default:
		return fmt.Errorf("unknown chart type %q", env.Type)
	}
	return nil
}

// MarshalJSON 还原 {type, data} 线上格式。
func (c Chart) MarshalJSON() ([]byte, error) {
	var data any
	switch c.Type {
	case ChartTable:
		data = c.Table
	case ChartECharts:
		data = c.ECharts
	case ChartImage:
		data = c.Image
	default:
		return nil, fmt.Errorf("unknown chart type %q", c.Type)
	}
	return json.Marshal(struct {
		Type ChartType `json:"type"`
		Data any       `json:"data"`
	}{Type: c.Type, Data: data})
}

// TableData 表格数据：列名 -> 单元格数组。行由各列下标对齐隐式构成。
type TableData map[string][]CellValue

// TableChartData 表格图表载荷。线上存在两种形状：
// 裸列映射，或带标题的 {"title": ..., "data": {列映射}} 包装。
type TableChartData struct {
	Title   string
	Columns TableData
}

func (t *TableChartData) unmarshal(b []byte) error {
	// 探测失败不视为错误：列名恰好叫 title 的裸映射也要能解析
	var probe struct {
		Title *string         `json:"title"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &probe); err == nil && probe.Title != nil && len(probe.Data) > 0 {
		t.Title = *probe.Title
		return decodeUseNumber(probe.Data, &t.Columns)
	}
	return decodeUseNumber(b, &t.Columns)
}

// UnmarshalJSON 识别带标题包装与裸列映射两种形状。
func (t *TableChartData) UnmarshalJSON(b []byte) error {
	return t.unmarshal(b)
}

// MarshalJSON 只在有标题时输出包装形状，保证无标题数据往返无损。
func (t TableChartData) MarshalJSON() ([]byte, error) {
	if t.Title == "" {
		return json.Marshal(t.Columns)
	}
	return json.Marshal(struct {
		Title string    `json:"title"`
		Data  TableData `json:"data"`
	}{Title: t.Title, Data: t.Columns})
}

// RowCount 行数取各列长度最大值，参差列在超出自身长度处渲染为空。
func (t TableChartData) RowCount() int {
	max := 0
	for _, col := range t.Columns {
		if len(col) > max {
			max = len(col)
		}
	}
	return max
}

// ColumnNames 返回确定顺序的列名（按名称排序，map 无序）。
func (t TableChartData) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cell 返回指定列、行的单元格；越界返回 false。
func (t TableChartData) Cell(column string, row int) (CellValue, bool) {
	col, ok := t.Columns[column]
	if !ok || row < 0 || row >= len(col) {
		return CellValue{}, false
	}
	return col[row], true
}

// CellValue 表格单元格：裸字符串/数字，或携带内联样式的
// {"value": ..., "<css-prop>": ...} 记录。数字用 json.Number 保存，
// 序列化时按原样回写。
type CellValue struct {
	Value any               // string 或 json.Number
	Style map[string]string // kebab-case CSS 属性，裸值为 nil
}

// UnmarshalJSON 区分裸值与带样式记录。
func (v *CellValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case string, json.Number:
		*v = CellValue{Value: val}
		return nil
	case map[string]any:
		inner, ok := val["value"]
		if !ok {
			return fmt.Errorf("styled cell missing value field")
		}
		switch inner.(type) {
		case string, json.Number:
		default:
			return fmt.Errorf("styled cell value must be string or number")
		}
		style := make(map[string]string, len(val)-1)
		for k, sv := range val {
			if k == "value" {
				continue
			}
			switch s := sv.(type) {
			case string:
				style[k] = s
			case json.Number:
				style[k] = s.String()
			}
		}
		*v = CellValue{Value: inner, Style: style}
		return nil
	default:
		return fmt.Errorf("unsupported cell value %s", string(b))
	}
}

// MarshalJSON 裸值原样输出，带样式的还原为记录形状。
func (v CellValue) MarshalJSON() ([]byte, error) {
	if v.Style == nil {
		return json.Marshal(v.Value)
	}
	obj := make(map[string]any, len(v.Style)+1)
	obj["value"] = v.Value
	for k, s := range v.Style {
		obj[k] = s
	}
	return json.Marshal(obj)
}

// Display 返回单元格的展示文本。
func (v CellValue) Display() string {
	switch val := v.Value.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// InlineStyle 生成内联 CSS 文本。font-weight 与 color 固定在前，
// 其余属性按名称排序，使输出可预测。
func (v CellValue) InlineStyle() string {
	if len(v.Style) == 0 {
		return ""
	}
	var sb strings.Builder
	appendProp := func(k string) {
		if val, ok := v.Style[k]; ok {
			if sb.Len() > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			sb.WriteString(val)
		}
	}
	appendProp("font-weight")
	appendProp("color")
	rest := make([]string, 0, len(v.Style))
	for k := range v.Style {
		if k != "font-weight" && k != "color" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		appendProp(k)
	}
	return sb.String()
}

// DecodeReport 解析报告 JSON，载荷必须是幻灯片数组。
// null 解码进切片不报错，须先行拒绝。
func DecodeReport(b []byte) (Report, error) {
	trimmed := bytes.TrimLeft(b, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("report must decode to a slide array")
	}
	var report Report
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("report must decode to a slide array: %w", err)
	}
	return report, nil
}

func decodeUseNumber(b []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}
