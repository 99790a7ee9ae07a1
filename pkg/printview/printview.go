// Package printview 渲染打印视图：每张幻灯片固定 1920×1080 独占一页，
// 供 PDF 导出流水线用无头浏览器逐页截取。页面脚本在「幻灯片已解码 ∧
// 字体就绪 ∧ 静置延迟结束」后置位 window.__PRINT_READY__，导出端轮询
// 该条件作为截取时机。
package printview

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/hongguan-lab/macro_deck/pkg/model"
)

//go:embed print.html.tmpl
var tmplFS embed.FS

var pageTmpl = template.Must(template.ParseFS(tmplFS, "print.html.tmpl"))

// 字体就绪后的额外静置时间，等待图表动画与回流收敛。
const settleDelayMs = 2000

type tableCell struct {
	Display string
	Style   template.CSS
}

type tableView struct {
	Title   string
	Columns []string
	Rows    [][]tableCell
}

type chartView struct {
	Kind     string // "table" | "echarts" | "image"
	Table    *tableView
	ImageSrc string
	DivID    string
}

type slideView struct {
	PageNumber int
	Title      string
	Content    []string
	Charts     []chartView
}

type echartsInit struct {
	ID     string         `json:"id"`
	Option map[string]any `json:"option"`
}

type pageData struct {
	Slides        []slideView
	HasECharts    bool
	EChartsInit   template.JS
	SettleDelayMs int
}

// DecodeSlidesParam 解码 URL 里的 slides 参数：UTF-8 JSON 的 base64。
func DecodeSlidesParam(param string) (model.Report, error) {
	raw, err := base64.StdEncoding.DecodeString(param)
	if err != nil {
		// 浏览器侧 btoa/encodeURIComponent 组合可能丢掉填充
		raw, err = base64.RawStdEncoding.DecodeString(param)
		if err != nil {
			return nil, fmt.Errorf("decode slides param: %w", err)
		}
	}
	return model.DecodeReport(raw)
}

// Render 把幻灯片渲染为完整 HTML 页面。startIndex 是首页的页码偏移
// （从0计），导出端逐张导出时据此保持连续页码。
func Render(w io.Writer, slides model.Report, startIndex int) error {
	data := pageData{SettleDelayMs: settleDelayMs}
	var inits []echartsInit

	for i, slide := range slides {
		view := slideView{
			PageNumber: startIndex + i + 1,
			Title:      slide.Title,
			Content:    slide.Content,
		}
		for j, chart := range slide.Charts {
			// 渲染处按图表类型穷举
			switch chart.Type {
			case model.ChartTable:
				view.Charts = append(view.Charts, chartView{Kind: "table", Table: buildTableView(chart.Table)})
			case model.ChartECharts:
				id := fmt.Sprintf("echarts-%d-%d", i, j)
				view.Charts = append(view.Charts, chartView{Kind: "echarts", DivID: id})
				inits = append(inits, echartsInit{ID: id, Option: chart.ECharts.WithLayoutDefaults()})
			case model.ChartImage:
				view.Charts = append(view.Charts, chartView{Kind: "image", ImageSrc: chart.Image.Src})
			}
		}
		data.Slides = append(data.Slides, view)
	}

	if len(inits) > 0 {
		encoded, err := json.Marshal(inits)
		if err != nil {
			return fmt.Errorf("encode echarts options: %w", err)
		}
		data.HasECharts = true
		data.EChartsInit = template.JS(encoded)
	}

	return pageTmpl.Execute(w, data)
}

func buildTableView(table *model.TableChartData) *tableView {
	view := &tableView{
		Title:   table.Title,
		Columns: table.ColumnNames(),
	}
	rowCount := table.RowCount()
	for row := 0; row < rowCount; row++ {
		cells := make([]tableCell, 0, len(view.Columns))
		for _, col := range view.Columns {
			// 参差列越界处渲染为空单元格
			cell, ok := table.Cell(col, row)
			if !ok {
				cells = append(cells, tableCell{})
				continue
			}
			cells = append(cells, tableCell{
				Display: cell.Display(),
				Style:   template.CSS(cell.InlineStyle()),
			})
		}
		view.Rows = append(view.Rows, cells)
	}
	return view
}
